package auth

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"registrar/internal/apperror"
	"registrar/internal/models"
	"registrar/internal/repository"
)

// Password length bounds shared by every path that sets a password
const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
)

var (
	// ErrCurrentPasswordMismatch is returned when the supplied current password is wrong
	ErrCurrentPasswordMismatch = apperror.InvalidInput("current password is incorrect")
	// ErrPasswordReused is returned when the new password matches a recent one
	ErrPasswordReused = apperror.Conflict("password was used recently, choose a different password")
	// ErrUserNotFound is returned for an unknown user id on authenticated paths
	ErrUserNotFound = apperror.NotFound("user not found")
)

var (
	sequentialRuns = []string{"0123456789", "abcdefghijklmnopqrstuvwxyz"}
	weakPatterns   = []string{"password", "qwerty", "12345678", "abc123", "letmein", "welcome", "admin"}
)

// ValidateComplexity returns every rule the password violates. An empty
// result means the password is acceptable.
func ValidateComplexity(password string) []string {
	var reasons []string

	length := utf8.RuneCountInString(password)
	if length < MinPasswordLength {
		reasons = append(reasons, "must be at least 12 characters long")
	}
	if length > MaxPasswordLength {
		reasons = append(reasons, "must be at most 128 characters long")
	}

	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	if !upper {
		reasons = append(reasons, "must contain an uppercase letter")
	}
	if !lower {
		reasons = append(reasons, "must contain a lowercase letter")
	}
	if !digit {
		reasons = append(reasons, "must contain a digit")
	}
	if !special {
		reasons = append(reasons, "must contain a special character")
	}

	folded := strings.ToLower(password)
	if hasSequentialRun(folded) {
		reasons = append(reasons, "must not contain sequential characters such as 123 or abc")
	}
	for _, pattern := range weakPatterns {
		if strings.Contains(folded, pattern) {
			reasons = append(reasons, "must not contain common patterns such as "+pattern)
			break
		}
	}

	return reasons
}

// hasSequentialRun reports whether s contains three ascending consecutive
// characters from a digit or letter run
func hasSequentialRun(s string) bool {
	for _, run := range sequentialRuns {
		for i := 0; i+3 <= len(run); i++ {
			if strings.Contains(s, run[i:i+3]) {
				return true
			}
		}
	}
	return false
}

// WeakPasswordError builds the error listing every violated complexity rule
func WeakPasswordError(reasons []string) *apperror.Error {
	return &apperror.Error{
		Kind:    apperror.KindInvalidInput,
		Message: "password does not meet complexity requirements",
		Reasons: reasons,
	}
}

// PasswordTooYoungError builds the minimum-age rejection
func PasswordTooYoungError(hoursRemaining int) *apperror.Error {
	return &apperror.Error{
		Kind:           apperror.KindInvalidInput,
		Message:        "password was changed too recently",
		HoursRemaining: hoursRemaining,
	}
}

// PolicyEngine applies the password change state machine
type PolicyEngine struct {
	users        repository.UserRepository
	history      repository.PasswordHistoryRepository
	hasher       *Hasher
	minAge       time.Duration
	historyDepth int
	now          func() time.Time
}

// NewPolicyEngine creates a policy engine
func NewPolicyEngine(users repository.UserRepository, history repository.PasswordHistoryRepository,
	hasher *Hasher, minAge time.Duration, historyDepth int) *PolicyEngine {
	return &PolicyEngine{
		users:        users,
		history:      history,
		hasher:       hasher,
		minAge:       minAge,
		historyDepth: historyDepth,
		now:          time.Now,
	}
}

// CheckMinimumAge rejects a change while the current password is younger than the minimum age
func (p *PolicyEngine) CheckMinimumAge(user *models.User, now time.Time) error {
	if user.PasswordChangedAt == nil || p.minAge <= 0 {
		return nil
	}
	elapsed := now.Sub(*user.PasswordChangedAt)
	if elapsed >= p.minAge {
		return nil
	}
	remaining := int(math.Ceil((p.minAge - elapsed).Hours()))
	return PasswordTooYoungError(remaining)
}

// ChangePassword runs the self-service path: minimum age, current password,
// complexity, history, then persist. It returns the updated user.
func (p *PolicyEngine) ChangePassword(ctx context.Context, userID int64, current, next string) (*models.User, error) {
	var updated *models.User
	err := p.users.Transaction(ctx, func(ctx context.Context) error {
		user, err := p.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		now := p.now()
		if err := p.CheckMinimumAge(user, now); err != nil {
			return err
		}
		ok, err := p.hasher.Verify(current, user.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCurrentPasswordMismatch
		}
		if err := p.apply(ctx, user, next, now); err != nil {
			return err
		}
		updated = user
		return nil
	})
	return updated, err
}

// ResetPassword runs the recovery path, which skips the minimum age and
// current password checks
func (p *PolicyEngine) ResetPassword(ctx context.Context, userID int64, next string) (*models.User, error) {
	var updated *models.User
	err := p.users.Transaction(ctx, func(ctx context.Context) error {
		user, err := p.lockUser(ctx, userID)
		if err != nil {
			return err
		}
		if err := p.apply(ctx, user, next, p.now()); err != nil {
			return err
		}
		updated = user
		return nil
	})
	return updated, err
}

// CheckReuse returns ErrPasswordReused when candidate matches one of the
// newest history entries
func (p *PolicyEngine) CheckReuse(ctx context.Context, userID int64, candidate string) error {
	recent, err := p.history.GetRecent(ctx, userID, p.historyDepth)
	if err != nil {
		return apperror.Storage(err)
	}
	for _, entry := range recent {
		ok, err := p.hasher.Verify(candidate, entry.PasswordHash)
		if err != nil {
			return err
		}
		if ok {
			return ErrPasswordReused
		}
	}
	return nil
}

// SetInitial records the first password of a newly created account
func (p *PolicyEngine) SetInitial(ctx context.Context, userID int64, hashed string) error {
	if err := p.history.Add(ctx, userID, hashed); err != nil {
		return apperror.Storage(err)
	}
	return nil
}

func (p *PolicyEngine) apply(ctx context.Context, user *models.User, next string, now time.Time) error {
	if reasons := ValidateComplexity(next); len(reasons) > 0 {
		return WeakPasswordError(reasons)
	}
	if err := p.CheckReuse(ctx, user.ID, next); err != nil {
		return err
	}

	hashed, err := p.hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := p.users.UpdatePassword(ctx, user.ID, hashed, now); err != nil {
		return apperror.Storage(err)
	}
	if err := p.history.Add(ctx, user.ID, hashed); err != nil {
		return apperror.Storage(err)
	}

	user.PasswordHash = hashed
	user.PasswordChangedAt = &now
	return nil
}

func (p *PolicyEngine) lockUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := p.users.GetByIDForUpdate(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return user, nil
}
