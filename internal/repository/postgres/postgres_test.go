package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"registrar/internal/models"
	"registrar/internal/repository/postgres"
	"registrar/internal/testutil/db"

	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := db.LoadTestConfig(t)
	return db.SetupTestDB(t, &cfg.Database)
}

func createUser(t *testing.T, conn *sql.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.edu",
		Role:         models.RoleStudent,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
	}
	require.NoError(t, postgres.NewUserRepository(conn).Create(context.Background(), user))
	return user
}
