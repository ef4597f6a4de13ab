package repository

import (
	"context"
	"time"

	"registrar/internal/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Repository
	Create(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
	// LockForBootstrap blocks concurrent user inserts until the surrounding
	// transaction ends, so a Count followed by Create cannot race. It returns
	// ErrNoTransaction outside a transaction.
	LockForBootstrap(ctx context.Context) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByIDForUpdate and GetByUsernameForUpdate lock the row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameForUpdate(ctx context.Context, username string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string, changedAt time.Time) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	// RecordFailedLogin increments the failure counter and returns its new value
	RecordFailedLogin(ctx context.Context, id int64, at time.Time) (int, error)
	// RecordSuccessfulLogin resets the failure counter and clears any lock
	RecordSuccessfulLogin(ctx context.Context, id int64, at time.Time) error
	Lock(ctx context.Context, id int64, until time.Time) error
}
