package postgres

import (
	"context"
	"database/sql"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"
)

type securityQuestionRepository struct {
	repository.BaseRepository
}

// NewSecurityQuestionRepository creates a new PostgreSQL security question repository
func NewSecurityQuestionRepository(db *sql.DB) repository.SecurityQuestionRepository {
	return &securityQuestionRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *securityQuestionRepository) ListCatalog(ctx context.Context) ([]models.SecurityQuestion, error) {
	rows, err := r.Conn(ctx).QueryContext(ctx, `SELECT id, question_text FROM security_questions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.SecurityQuestion
	for rows.Next() {
		var q models.SecurityQuestion
		if err := rows.Scan(&q.ID, &q.QuestionText); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *securityQuestionRepository) ListUserQuestions(ctx context.Context, userID int64) ([]models.UserQuestion, error) {
	query := `
		SELECT a.id, q.id, q.question_text
		FROM user_security_answers a
		JOIN security_questions q ON q.id = a.question_id
		WHERE a.user_id = $1
		ORDER BY a.id`

	rows, err := r.Conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.UserQuestion
	for rows.Next() {
		var q models.UserQuestion
		if err := rows.Scan(&q.ID, &q.QuestionID, &q.QuestionText); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *securityQuestionRepository) ListAnswers(ctx context.Context, userID int64) ([]models.UserSecurityAnswer, error) {
	query := `
		SELECT id, user_id, question_id, answer_hash, created_at
		FROM user_security_answers
		WHERE user_id = $1
		ORDER BY id`

	rows, err := r.Conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.UserSecurityAnswer
	for rows.Next() {
		var a models.UserSecurityAnswer
		if err := rows.Scan(&a.ID, &a.UserID, &a.QuestionID, &a.AnswerHash, &a.CreatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (r *securityQuestionRepository) CountAnswers(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.Conn(ctx).QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_security_answers WHERE user_id = $1",
		userID,
	).Scan(&count)
	return count, err
}

func (r *securityQuestionRepository) CreateAnswers(ctx context.Context, userID int64, answers []models.UserSecurityAnswer) error {
	query := `
		INSERT INTO user_security_answers (
			user_id, question_id, answer_hash, created_at
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING id`

	now := time.Now()
	for i := range answers {
		err := r.Conn(ctx).QueryRowContext(ctx, query,
			userID,
			answers[i].QuestionID,
			answers[i].AnswerHash,
			now,
		).Scan(&answers[i].ID)
		if _, ok := uniqueConstraint(err); ok {
			return repository.ErrAnswersExist
		}
		if err != nil {
			return err
		}
		answers[i].UserID = userID
		answers[i].CreatedAt = now
	}
	return nil
}

func (r *securityQuestionRepository) DeleteAnswers(ctx context.Context, userID int64) (int64, error) {
	result, err := r.Conn(ctx).ExecContext(ctx, "DELETE FROM user_security_answers WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
