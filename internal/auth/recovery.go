package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"registrar/internal/apperror"
	"registrar/internal/models"
	"registrar/internal/repository"
)

// MinSecurityQuestions is the number of answers a user must configure
const MinSecurityQuestions = 3

const minAnswerLength = 2

var (
	// ErrRecoveryUnavailable hides whether the user exists or has no questions
	ErrRecoveryUnavailable = apperror.NotFound("invalid credentials or security questions not configured")
	// ErrInvalidAnswers hides which part of a recovery attempt failed
	ErrInvalidAnswers = apperror.Unauthenticated("invalid credentials or answers")
	// ErrAlreadyConfigured is returned when answers already exist for the user
	ErrAlreadyConfigured = apperror.Conflict("security questions already configured")
)

// Recovery implements security question based password recovery
type Recovery struct {
	users     repository.UserRepository
	questions repository.SecurityQuestionRepository
	policy    *PolicyEngine
	hasher    *Hasher
	// dummyHash keeps the unknown-user path as slow as a real comparison
	dummyHash string
}

// NewRecovery creates the recovery flow
func NewRecovery(users repository.UserRepository, questions repository.SecurityQuestionRepository,
	policy *PolicyEngine, hasher *Hasher) *Recovery {
	return &Recovery{
		users:     users,
		questions: questions,
		policy:    policy,
		hasher:    hasher,
		dummyHash: mustDummyHash(hasher),
	}
}

// NormalizeAnswer trims and lowercases an answer before hashing or comparison
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Catalog lists the fixed question catalog
func (r *Recovery) Catalog(ctx context.Context) ([]models.SecurityQuestion, error) {
	questions, err := r.questions.ListCatalog(ctx)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return questions, nil
}

// ListQuestionsFor returns the questions a user configured. Unknown users
// and users without questions get the same error.
func (r *Recovery) ListQuestionsFor(ctx context.Context, username string) ([]models.UserQuestion, error) {
	user, err := r.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrRecoveryUnavailable
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}

	questions, err := r.questions.ListUserQuestions(ctx, user.ID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if len(questions) == 0 {
		return nil, ErrRecoveryUnavailable
	}
	return questions, nil
}

// VerifyAnswers checks a complete answer set. Every configured answer must
// be supplied exactly once and match; any failure returns ErrInvalidAnswers.
func (r *Recovery) VerifyAnswers(ctx context.Context, username string, answers []models.RecoveryAnswer) (*models.User, error) {
	user, err := r.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		_, _ = r.hasher.Verify(username, r.dummyHash)
		return nil, ErrInvalidAnswers
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}

	stored, err := r.questions.ListAnswers(ctx, user.ID)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if len(stored) == 0 || len(answers) != len(stored) {
		return nil, ErrInvalidAnswers
	}

	byID := make(map[int64]string, len(stored))
	for _, a := range stored {
		byID[a.ID] = a.AnswerHash
	}

	seen := make(map[int64]bool, len(answers))
	for _, answer := range answers {
		hash, ok := byID[answer.AnswerID]
		if !ok || seen[answer.AnswerID] {
			return nil, ErrInvalidAnswers
		}
		seen[answer.AnswerID] = true

		normalized := NormalizeAnswer(answer.AnswerText)
		if normalized == "" {
			return nil, ErrInvalidAnswers
		}
		match, err := r.hasher.Verify(normalized, hash)
		if err != nil {
			return nil, err
		}
		if !match {
			return nil, ErrInvalidAnswers
		}
	}
	return user, nil
}

// ResetPassword verifies the answers and then sets newPassword, applying
// complexity and history checks but not the minimum age.
func (r *Recovery) ResetPassword(ctx context.Context, username string, answers []models.RecoveryAnswer, newPassword string) (*models.User, error) {
	user, err := r.VerifyAnswers(ctx, username, answers)
	if err != nil {
		return nil, err
	}
	return r.policy.ResetPassword(ctx, user.ID, newPassword)
}

// Configure stores a user's answers once. Later calls fail with
// ErrAlreadyConfigured until an admin reset.
func (r *Recovery) Configure(ctx context.Context, username string, answers []models.SecurityAnswerInput) error {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}
	known := make(map[int64]bool, len(catalog))
	for _, q := range catalog {
		known[q.ID] = true
	}

	var reasons []string
	if len(answers) < MinSecurityQuestions {
		reasons = append(reasons, fmt.Sprintf("at least %d security questions are required", MinSecurityQuestions))
	}
	seen := make(map[int64]bool, len(answers))
	rows := make([]models.UserSecurityAnswer, 0, len(answers))
	normalized := make([]string, 0, len(answers))
	for i, answer := range answers {
		switch {
		case !known[answer.QuestionID]:
			reasons = append(reasons, fmt.Sprintf("answer %d references an unknown question", i+1))
		case seen[answer.QuestionID]:
			reasons = append(reasons, fmt.Sprintf("answer %d repeats a question", i+1))
		}
		seen[answer.QuestionID] = true

		text := NormalizeAnswer(answer.AnswerText)
		if utf8.RuneCountInString(text) < minAnswerLength {
			reasons = append(reasons, fmt.Sprintf("answer %d must be at least %d characters", i+1, minAnswerLength))
		}
		rows = append(rows, models.UserSecurityAnswer{QuestionID: answer.QuestionID})
		normalized = append(normalized, text)
	}
	if len(reasons) > 0 {
		return &apperror.Error{
			Kind:    apperror.KindInvalidInput,
			Message: "invalid security answers",
			Reasons: reasons,
		}
	}

	return r.users.Transaction(ctx, func(ctx context.Context) error {
		user, err := r.users.GetByUsernameForUpdate(ctx, username)
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return apperror.Storage(err)
		}

		count, err := r.questions.CountAnswers(ctx, user.ID)
		if err != nil {
			return apperror.Storage(err)
		}
		if count > 0 {
			return ErrAlreadyConfigured
		}

		for i := range rows {
			hashed, err := r.hasher.Hash(normalized[i])
			if err != nil {
				return err
			}
			rows[i].AnswerHash = hashed
		}

		err = r.questions.CreateAnswers(ctx, user.ID, rows)
		if errors.Is(err, repository.ErrAnswersExist) {
			return ErrAlreadyConfigured
		}
		if err != nil {
			return apperror.Storage(err)
		}
		return nil
	})
}

// AdminReset deletes every answer of a user so they can configure again
func (r *Recovery) AdminReset(ctx context.Context, userID int64) (int64, error) {
	if _, err := r.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, apperror.Storage(err)
	}
	deleted, err := r.questions.DeleteAnswers(ctx, userID)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return deleted, nil
}

func mustDummyHash(h *Hasher) string {
	hashed, err := h.Hash("registrar-dummy-secret")
	if err != nil {
		panic(err)
	}
	return hashed
}
