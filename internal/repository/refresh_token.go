package repository

import (
	"context"
	"time"

	"registrar/internal/models"
)

// RefreshTokenRepository defines the interface for refresh token operations.
// Implementations only ever see token hashes.
type RefreshTokenRepository interface {
	Repository
	Create(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error)
	// ListUnrevoked returns the user's non-revoked rows, newest first. With
	// forUpdate the rows stay locked until the surrounding transaction ends.
	ListUnrevoked(ctx context.Context, userID int64, forUpdate bool) ([]models.RefreshToken, error)
	// Revoke marks a single row revoked. It returns false when the row was
	// already revoked or does not exist.
	Revoke(ctx context.Context, id int64, at time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
