package repository

import (
	"context"
	"registrar/internal/models"
)

// PasswordHistoryRepository defines the interface for password history operations
type PasswordHistoryRepository interface {
	Repository
	Add(ctx context.Context, userID int64, passwordHash string) error
	// GetRecent returns at most limit entries, newest first
	GetRecent(ctx context.Context, userID int64, limit int) ([]models.PasswordHistory, error)
}
