package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"
)

const userColumns = `
	id, username, email, role, first_name, last_name, password_hash,
	password_changed_at, failed_login_attempts, last_login_at,
	last_failed_login, locked_until, created_at, updated_at`

type userRepository struct {
	repository.BaseRepository
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{
		BaseRepository: repository.NewBaseRepository(db),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (
			username, email, role, first_name, last_name, password_hash,
			password_changed_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8
		)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	err := r.Conn(ctx).QueryRowContext(ctx, query,
		user.Username,
		user.Email,
		user.Role,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
		user.PasswordChangedAt,
		now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)

	switch {
	case err == nil:
		return nil
	case isUniqueViolationOn(err, "username"):
		return repository.ErrUsernameExists
	case isUniqueViolationOn(err, "email"):
		return repository.ErrEmailExists
	default:
		return err
	}
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.Conn(ctx).QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func (r *userRepository) LockForBootstrap(ctx context.Context) error {
	tx, ok := repository.TxFromContext(ctx)
	if !ok {
		return repository.ErrNoTransaction
	}
	// SHARE ROW EXCLUSIVE conflicts with itself and with the ROW EXCLUSIVE
	// lock taken by INSERT
	_, err := tx.ExecContext(ctx, "LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE")
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT"+userColumns+" FROM users WHERE id = $1", id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT"+userColumns+" FROM users WHERE username = $1", username)
}

func (r *userRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, "SELECT"+userColumns+" FROM users WHERE id = $1 FOR UPDATE", id)
}

func (r *userRepository) GetByUsernameForUpdate(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT"+userColumns+" FROM users WHERE username = $1 FOR UPDATE", username)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := r.Conn(ctx).QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.FirstName,
		&user.LastName,
		&user.PasswordHash,
		&user.PasswordChangedAt,
		&user.FailedLoginAttempts,
		&user.LastLoginAt,
		&user.LastFailedLogin,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1,
			password_changed_at = $2,
			updated_at = $2
		WHERE id = $3`

	return r.execOne(ctx, query, hashedPassword, changedAt, id)
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	query := `UPDATE users SET role = $1, updated_at = $2 WHERE id = $3`
	return r.execOne(ctx, query, role, time.Now(), id)
}

func (r *userRepository) RecordFailedLogin(ctx context.Context, id int64, at time.Time) (int, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
			last_failed_login = $1
		WHERE id = $2
		RETURNING failed_login_attempts`

	var attempts int
	err := r.Conn(ctx).QueryRowContext(ctx, query, at, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrUserNotFound
	}
	return attempts, err
}

func (r *userRepository) RecordSuccessfulLogin(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
			locked_until = NULL,
			last_login_at = $1
		WHERE id = $2`

	return r.execOne(ctx, query, at, id)
}

func (r *userRepository) Lock(ctx context.Context, id int64, until time.Time) error {
	query := `
		UPDATE users
		SET locked_until = $1,
			failed_login_attempts = 0
		WHERE id = $2`

	return r.execOne(ctx, query, until, id)
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}
