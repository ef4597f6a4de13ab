package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"registrar/internal/apperror"
	"registrar/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRefreshStore() (*RefreshStore, *testutil.Store, *fixedClock) {
	store := testutil.NewStore()
	clock := &fixedClock{t: time.Now()}
	rs := NewRefreshStore(store.RefreshTokens(), NewHasher(bcrypt.MinCost))
	rs.now = clock.now
	return rs, store, clock
}

func TestRefreshStore_IssueValidateRevoke(t *testing.T) {
	rs, store, clock := newTestRefreshStore()
	ctx := context.Background()
	raw := "raw-refresh-token"

	require.NoError(t, rs.Issue(ctx, 1, raw, clock.t.Add(time.Hour)))

	stored := store.StoredRefreshTokens()
	require.Len(t, stored, 1)
	require.NotEqual(t, raw, stored[0].TokenHash)

	ok, err := rs.Validate(ctx, 1, raw)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = rs.Validate(ctx, 2, raw)
	require.NoError(t, err)
	require.False(t, ok, "bound to its user")

	revoked, err := rs.Revoke(ctx, 1, raw)
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = rs.Revoke(ctx, 1, raw)
	require.NoError(t, err)
	require.False(t, revoked)

	ok, err = rs.Validate(ctx, 1, raw)
	require.NoError(t, err)
	require.False(t, ok)

	revoked, err = rs.Revoke(ctx, 1, "never-issued")
	require.NoError(t, err)
	require.False(t, revoked)
}

func TestRefreshStore_MultipleSessions(t *testing.T) {
	rs, _, clock := newTestRefreshStore()
	ctx := context.Background()

	for _, raw := range []string{"laptop", "phone", "tablet"} {
		require.NoError(t, rs.Issue(ctx, 1, raw, clock.t.Add(time.Hour)))
	}

	revoked, err := rs.Revoke(ctx, 1, "phone")
	require.NoError(t, err)
	require.True(t, revoked)

	ok, err := rs.Validate(ctx, 1, "laptop")
	require.NoError(t, err)
	require.True(t, ok)

	n, err := rs.RevokeAll(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	ok, err = rs.Validate(ctx, 1, "tablet")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshStore_ExpiryAndCleanup(t *testing.T) {
	rs, store, clock := newTestRefreshStore()
	ctx := context.Background()

	require.NoError(t, rs.Issue(ctx, 1, "short", clock.t.Add(time.Minute)))
	require.NoError(t, rs.Issue(ctx, 1, "long", clock.t.Add(time.Hour)))

	clock.advance(2 * time.Minute)

	ok, err := rs.Validate(ctx, 1, "short")
	require.NoError(t, err)
	require.False(t, ok)

	revoked, err := rs.Revoke(ctx, 1, "short")
	require.NoError(t, err)
	require.False(t, revoked)

	deleted, err := rs.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	deleted, err = rs.CleanupExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, deleted)
	require.Len(t, store.StoredRefreshTokens(), 1)
}

func TestRefreshStore_Rotate(t *testing.T) {
	rs, _, clock := newTestRefreshStore()
	ctx := context.Background()
	require.NoError(t, rs.Issue(ctx, 1, "old", clock.t.Add(time.Hour)))

	rotated, err := rs.Rotate(ctx, 1, "old", "new", clock.t.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, rotated)

	rotated, err = rs.Rotate(ctx, 1, "old", "newer", clock.t.Add(time.Hour))
	require.NoError(t, err)
	require.False(t, rotated, "a rotated token cannot be replayed")

	ok, err := rs.Validate(ctx, 1, "new")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = rs.Validate(ctx, 1, "newer")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRefreshStore_StorageErrorsPropagate(t *testing.T) {
	rs, store, clock := newTestRefreshStore()
	store.RefreshErr = errors.New("connection refused")

	err := rs.Issue(context.Background(), 1, "raw", clock.t.Add(time.Hour))
	require.Error(t, err)
	require.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}
