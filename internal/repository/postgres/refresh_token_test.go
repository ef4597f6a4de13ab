package postgres_test

import (
	"context"
	"testing"
	"time"

	"registrar/internal/repository/postgres"

	"github.com/stretchr/testify/require"
)

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	conn := setupDB(t)
	repo := postgres.NewRefreshTokenRepository(conn)
	ctx := context.Background()
	user := createUser(t, conn, "frank")
	now := time.Now()

	first, err := repo.Create(ctx, user.ID, "hash-1", now.Add(time.Hour))
	require.NoError(t, err)
	_, err = repo.Create(ctx, user.ID, "hash-2", now.Add(-time.Hour))
	require.NoError(t, err)

	tokens, err := repo.ListUnrevoked(ctx, user.ID, false)
	require.NoError(t, err)
	require.Len(t, tokens, 2)

	revoked, err := repo.Revoke(ctx, first.ID, now)
	require.NoError(t, err)
	require.True(t, revoked)

	revoked, err = repo.Revoke(ctx, first.ID, now)
	require.NoError(t, err)
	require.False(t, revoked)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	tokens, err = repo.ListUnrevoked(ctx, user.ID, false)
	require.NoError(t, err)
	require.Empty(t, tokens)
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	conn := setupDB(t)
	repo := postgres.NewRefreshTokenRepository(conn)
	ctx := context.Background()
	user := createUser(t, conn, "grace")
	other := createUser(t, conn, "heidi")
	expires := time.Now().Add(time.Hour)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, user.ID, "hash", expires)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, other.ID, "hash", expires)
	require.NoError(t, err)

	count, err := repo.RevokeAllForUser(ctx, user.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	remaining, err := repo.ListUnrevoked(ctx, other.ID, false)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
