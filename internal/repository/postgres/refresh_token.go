package postgres

import (
	"context"
	"database/sql"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"
)

type refreshTokenRepository struct {
	repository.BaseRepository
}

// NewRefreshTokenRepository creates a new PostgreSQL refresh token repository
func NewRefreshTokenRepository(db *sql.DB) repository.RefreshTokenRepository {
	return &refreshTokenRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *refreshTokenRepository) Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (
			user_id, token_hash, expires_at, created_at
		) VALUES (
			$1, $2, $3, $4
		)
		RETURNING id, created_at`

	token := &models.RefreshToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}
	err := r.Conn(ctx).QueryRowContext(ctx, query, userID, tokenHash, expiresAt, time.Now()).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return nil, err
	}
	return token, nil
}

func (r *refreshTokenRepository) ListUnrevoked(ctx context.Context, userID int64, forUpdate bool) ([]models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE
		ORDER BY created_at DESC, id DESC`
	if forUpdate {
		query += " FOR UPDATE"
	}

	rows, err := r.Conn(ctx).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.RefreshToken
	for rows.Next() {
		var rt models.RefreshToken
		err := rows.Scan(
			&rt.ID,
			&rt.UserID,
			&rt.TokenHash,
			&rt.ExpiresAt,
			&rt.Revoked,
			&rt.RevokedAt,
			&rt.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, rt)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tokens, nil
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE id = $2 AND revoked = FALSE`

	result, err := r.Conn(ctx).ExecContext(ctx, query, at, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error) {
	query := `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE user_id = $2 AND revoked = FALSE`

	result, err := r.Conn(ctx).ExecContext(ctx, query, at, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < $1`
	result, err := r.Conn(ctx).ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
