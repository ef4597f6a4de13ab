package auth

import (
	"context"
	"time"

	"registrar/internal/apperror"
	"registrar/internal/models"
	"registrar/internal/repository"
)

// RefreshStore persists refresh tokens as hashes and checks presented tokens
// against them. The raw token is never written.
type RefreshStore struct {
	repo   repository.RefreshTokenRepository
	hasher *Hasher
	now    func() time.Time
}

// NewRefreshStore creates a refresh token store
func NewRefreshStore(repo repository.RefreshTokenRepository, hasher *Hasher) *RefreshStore {
	return &RefreshStore{repo: repo, hasher: hasher, now: time.Now}
}

// Issue stores the hash of raw for userID
func (s *RefreshStore) Issue(ctx context.Context, userID int64, raw string, expiresAt time.Time) error {
	hashed, err := s.hasher.Hash(raw)
	if err != nil {
		return err
	}
	if _, err := s.repo.Create(ctx, userID, hashed, expiresAt); err != nil {
		return apperror.Storage(err)
	}
	return nil
}

// Validate reports whether raw matches one of the user's live tokens
func (s *RefreshStore) Validate(ctx context.Context, userID int64, raw string) (bool, error) {
	match, err := s.findLive(ctx, userID, raw, false)
	return match != nil, err
}

// Revoke revokes the live token matching raw. It returns false when no live
// token matches, so a second call with the same token is a no-op.
func (s *RefreshStore) Revoke(ctx context.Context, userID int64, raw string) (bool, error) {
	var revoked bool
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		match, err := s.findLive(ctx, userID, raw, true)
		if err != nil || match == nil {
			return err
		}
		revoked, err = s.repo.Revoke(ctx, match.ID, s.now())
		if err != nil {
			return apperror.Storage(err)
		}
		return nil
	})
	return revoked, err
}

// Rotate revokes the live token matching raw and stores next in its place,
// atomically. It returns false, storing nothing, when raw does not match.
func (s *RefreshStore) Rotate(ctx context.Context, userID int64, raw, next string, nextExpiresAt time.Time) (bool, error) {
	var rotated bool
	err := s.repo.Transaction(ctx, func(ctx context.Context) error {
		match, err := s.findLive(ctx, userID, raw, true)
		if err != nil || match == nil {
			return err
		}
		ok, err := s.repo.Revoke(ctx, match.ID, s.now())
		if err != nil {
			return apperror.Storage(err)
		}
		if !ok {
			return nil
		}
		if err := s.Issue(ctx, userID, next, nextExpiresAt); err != nil {
			return err
		}
		rotated = true
		return nil
	})
	return rotated, err
}

// RevokeAll revokes every live token of the user and returns how many were revoked
func (s *RefreshStore) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.RevokeAllForUser(ctx, userID, s.now())
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return n, nil
}

// CleanupExpired deletes expired rows. It is idempotent.
func (s *RefreshStore) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return n, nil
}

func (s *RefreshStore) findLive(ctx context.Context, userID int64, raw string, forUpdate bool) (*models.RefreshToken, error) {
	if raw == "" {
		return nil, nil
	}
	tokens, err := s.repo.ListUnrevoked(ctx, userID, forUpdate)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	now := s.now()
	for i := range tokens {
		if !tokens[i].IsLive(now) {
			continue
		}
		ok, err := s.hasher.Verify(raw, tokens[i].TokenHash)
		if err != nil {
			return nil, err
		}
		if ok {
			return &tokens[i], nil
		}
	}
	return nil, nil
}
