// Package testutil provides utilities for testing
package testutil

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"
)

// DefaultQuestions seeds the in-memory question catalog
var DefaultQuestions = []string{
	"What was the name of your first pet?",
	"In what city were you born?",
	"What is your mother's maiden name?",
	"What was the name of your elementary school?",
	"What was the make of your first car?",
}

type txKey struct{}

// Store is an in-memory stand-in for the Postgres repositories. All
// repositories handed out by one Store share its data. Transactions are
// serialized but not rolled back on error.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID        int64
	users         map[int64]*models.User
	refreshTokens []*models.RefreshToken
	history       []*models.PasswordHistory
	catalog       []models.SecurityQuestion
	answers       []*models.UserSecurityAnswer
	auditLogs     []*models.AuditLog

	bootstrapLocks int

	// AuditErr, when set, is returned by every audit log write
	AuditErr error
	// RefreshErr, when set, is returned by every refresh token write
	RefreshErr error
}

// NewStore creates a store seeded with DefaultQuestions
func NewStore() *Store {
	s := &Store{users: make(map[int64]*models.User)}
	for _, text := range DefaultQuestions {
		s.catalog = append(s.catalog, models.SecurityQuestion{ID: s.id(), QuestionText: text})
	}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Users returns the user repository
func (s *Store) Users() repository.UserRepository { return &userRepo{base{s}} }

// RefreshTokens returns the refresh token repository
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return &refreshTokenRepo{base{s}} }

// PasswordHistory returns the password history repository
func (s *Store) PasswordHistory() repository.PasswordHistoryRepository {
	return &passwordHistoryRepo{base{s}}
}

// SecurityQuestions returns the security question repository
func (s *Store) SecurityQuestions() repository.SecurityQuestionRepository {
	return &securityQuestionRepo{base{s}}
}

// AuditLogs returns the audit log repository
func (s *Store) AuditLogs() repository.AuditLogRepository { return &auditLogRepo{base{s}} }

// Catalog returns a copy of the seeded question catalog
func (s *Store) Catalog() []models.SecurityQuestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SecurityQuestion(nil), s.catalog...)
}

// StoredRefreshTokens returns copies of every refresh token row
func (s *Store) StoredRefreshTokens() []models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.RefreshToken, 0, len(s.refreshTokens))
	for _, t := range s.refreshTokens {
		out = append(out, *t)
	}
	return out
}

// AuditEvents returns every audit entry of eventType in insertion order
func (s *Store) AuditEvents(eventType models.AuditEventType) []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuditLog
	for _, l := range s.auditLogs {
		if l.EventType == eventType {
			out = append(out, *l)
		}
	}
	return out
}

// BootstrapLocks reports how many times LockForBootstrap succeeded
func (s *Store) BootstrapLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapLocks
}

// SetPasswordChangedAt backdates a user's last password change
func (s *Store) SetPasswordChangedAt(userID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		u.PasswordChangedAt = &at
	}
}

type base struct {
	s *Store
}

func (b base) DB() *sql.DB { return nil }

func (b base) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	b.s.txMu.Lock()
	defer b.s.txMu.Unlock()
	return fn(context.WithValue(ctx, txKey{}, true))
}

type userRepo struct{ base }

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUsernameExists
		}
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	now := time.Now()
	user.ID = s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	s.users[user.ID] = &stored
	return nil
}

func (r *userRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.users)), nil
}

// LockForBootstrap only checks that a transaction is open; Store already
// serializes transactions.
func (r *userRepo) LockForBootstrap(ctx context.Context) error {
	if ctx.Value(txKey{}) == nil {
		return repository.ErrNoTransaction
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.bootstrapLocks++
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *userRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r *userRepo) GetByUsernameForUpdate(ctx context.Context, username string) (*models.User, error) {
	return r.GetByUsername(ctx, username)
}

func (r *userRepo) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	fn(u)
	return nil
}

func (r *userRepo) UpdatePassword(_ context.Context, id int64, hashedPassword string, changedAt time.Time) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = hashedPassword
		u.PasswordChangedAt = &changedAt
		u.UpdatedAt = changedAt
	})
}

func (r *userRepo) UpdateRole(_ context.Context, id int64, role models.Role) error {
	return r.update(id, func(u *models.User) {
		u.Role = role
		u.UpdatedAt = time.Now()
	})
}

func (r *userRepo) RecordFailedLogin(_ context.Context, id int64, at time.Time) (int, error) {
	var attempts int
	err := r.update(id, func(u *models.User) {
		u.FailedLoginAttempts++
		u.LastFailedLogin = &at
		attempts = u.FailedLoginAttempts
	})
	return attempts, err
}

func (r *userRepo) RecordSuccessfulLogin(_ context.Context, id int64, at time.Time) error {
	return r.update(id, func(u *models.User) {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.LastLoginAt = &at
	})
}

func (r *userRepo) Lock(_ context.Context, id int64, until time.Time) error {
	return r.update(id, func(u *models.User) {
		u.LockedUntil = &until
		u.FailedLoginAttempts = 0
	})
}

type refreshTokenRepo struct{ base }

func (r *refreshTokenRepo) Create(_ context.Context, userID int64, tokenHash string, expiresAt time.Time) (*models.RefreshToken, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.RefreshErr != nil {
		return nil, s.RefreshErr
	}
	t := &models.RefreshToken{
		ID:        s.id(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	s.refreshTokens = append(s.refreshTokens, t)
	out := *t
	return &out, nil
}

func (r *refreshTokenRepo) ListUnrevoked(_ context.Context, userID int64, _ bool) ([]models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.RefreshToken
	for i := len(r.s.refreshTokens) - 1; i >= 0; i-- {
		t := r.s.refreshTokens[i]
		if t.UserID == userID && !t.Revoked {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *refreshTokenRepo) Revoke(_ context.Context, id int64, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.RefreshErr != nil {
		return false, r.s.RefreshErr
	}
	for _, t := range r.s.refreshTokens {
		if t.ID == id && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (r *refreshTokenRepo) RevokeAllForUser(_ context.Context, userID int64, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.refreshTokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			t.RevokedAt = &at
			n++
		}
	}
	return n, nil
}

func (r *refreshTokenRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.refreshTokens[:0]
	var n int64
	for _, t := range r.s.refreshTokens {
		if t.ExpiresAt.Before(now) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	r.s.refreshTokens = kept
	return n, nil
}

type passwordHistoryRepo struct{ base }

func (r *passwordHistoryRepo) Add(_ context.Context, userID int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.history = append(r.s.history, &models.PasswordHistory{
		ID:           r.s.id(),
		UserID:       userID,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	})
	return nil
}

func (r *passwordHistoryRepo) GetRecent(_ context.Context, userID int64, limit int) ([]models.PasswordHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.PasswordHistory
	for i := len(r.s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if h := r.s.history[i]; h.UserID == userID {
			out = append(out, *h)
		}
	}
	return out, nil
}

type securityQuestionRepo struct{ base }

func (r *securityQuestionRepo) ListCatalog(context.Context) ([]models.SecurityQuestion, error) {
	return r.s.Catalog(), nil
}

func (r *securityQuestionRepo) ListUserQuestions(_ context.Context, userID int64) ([]models.UserQuestion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.UserQuestion
	for _, a := range r.s.answers {
		if a.UserID != userID {
			continue
		}
		for _, q := range r.s.catalog {
			if q.ID == a.QuestionID {
				out = append(out, models.UserQuestion{ID: a.ID, QuestionID: q.ID, QuestionText: q.QuestionText})
			}
		}
	}
	return out, nil
}

func (r *securityQuestionRepo) ListAnswers(_ context.Context, userID int64) ([]models.UserSecurityAnswer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.UserSecurityAnswer
	for _, a := range r.s.answers {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *securityQuestionRepo) CountAnswers(ctx context.Context, userID int64) (int, error) {
	answers, err := r.ListAnswers(ctx, userID)
	return len(answers), err
}

func (r *securityQuestionRepo) CreateAnswers(_ context.Context, userID int64, answers []models.UserSecurityAnswer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.answers {
		for _, a := range answers {
			if existing.UserID == userID && existing.QuestionID == a.QuestionID {
				return repository.ErrAnswersExist
			}
		}
	}
	now := time.Now()
	for i := range answers {
		answers[i].ID = r.s.id()
		answers[i].UserID = userID
		answers[i].CreatedAt = now
		stored := answers[i]
		r.s.answers = append(r.s.answers, &stored)
	}
	return nil
}

func (r *securityQuestionRepo) DeleteAnswers(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.answers[:0]
	var n int64
	for _, a := range r.s.answers {
		if a.UserID == userID {
			n++
			continue
		}
		kept = append(kept, a)
	}
	r.s.answers = kept
	return n, nil
}

type auditLogRepo struct{ base }

func (r *auditLogRepo) Create(_ context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.AuditErr != nil {
		return r.s.AuditErr
	}
	log.ID = r.s.id()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	stored := *log
	r.s.auditLogs = append(r.s.auditLogs, &stored)
	return nil
}

func (r *auditLogRepo) matching(filter repository.AuditLogFilter) []models.AuditLog {
	var out []models.AuditLog
	for _, l := range r.s.auditLogs {
		if len(filter.EventTypes) > 0 && !containsType(filter.EventTypes, l.EventType) {
			continue
		}
		if filter.UserID != nil && (l.UserID == nil || *l.UserID != *filter.UserID) {
			continue
		}
		if filter.Username != nil && (l.Username == nil || *l.Username != *filter.Username) {
			continue
		}
		if filter.IPAddress != nil && l.IPAddress != *filter.IPAddress {
			continue
		}
		if filter.CreatedAfter != nil && !l.CreatedAt.After(*filter.CreatedAfter) {
			continue
		}
		out = append(out, *l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *auditLogRepo) List(_ context.Context, filter repository.AuditLogFilter) ([]models.AuditLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := r.matching(filter)
	if filter.Offset != nil {
		if *filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[*filter.Offset:]
	}
	if filter.Limit != nil && *filter.Limit < len(out) {
		out = out[:*filter.Limit]
	}
	return out, nil
}

func (r *auditLogRepo) Count(_ context.Context, filter repository.AuditLogFilter) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.matching(filter))), nil
}

func (r *auditLogRepo) CountByEventType(_ context.Context, filter repository.AuditLogFilter) (map[models.AuditEventType]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := make(map[models.AuditEventType]int64)
	for _, l := range r.matching(filter) {
		counts[l.EventType]++
	}
	return counts, nil
}

func (r *auditLogRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := r.s.auditLogs[:0]
	var n int64
	for _, l := range r.s.auditLogs {
		if l.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.s.auditLogs = kept
	return n, nil
}

func containsType(types []models.AuditEventType, t models.AuditEventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
