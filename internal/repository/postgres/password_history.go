package postgres

import (
	"context"
	"database/sql"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"
)

type passwordHistoryRepository struct {
	repository.BaseRepository
}

// NewPasswordHistoryRepository creates a new PostgreSQL password history repository
func NewPasswordHistoryRepository(db *sql.DB) repository.PasswordHistoryRepository {
	return &passwordHistoryRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *passwordHistoryRepository) Add(ctx context.Context, userID int64, passwordHash string) error {
	query := `
		INSERT INTO password_history (
			user_id, password_hash, created_at
		) VALUES (
			$1, $2, $3
		)`

	_, err := r.Conn(ctx).ExecContext(ctx, query, userID, passwordHash, time.Now())
	return err
}

func (r *passwordHistoryRepository) GetRecent(ctx context.Context, userID int64, limit int) ([]models.PasswordHistory, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := `
		SELECT id, user_id, password_hash, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.Conn(ctx).QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var histories []models.PasswordHistory
	for rows.Next() {
		var history models.PasswordHistory
		if err := rows.Scan(
			&history.ID,
			&history.UserID,
			&history.PasswordHash,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return histories, nil
}
