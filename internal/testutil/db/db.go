// Package db provides database utilities for testing
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"registrar/internal/config"
	"registrar/internal/database"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

// registrarTables lists every table the migrations create, children first.
// schema_migrations is golang-migrate's version table.
var registrarTables = []string{
	"audit_logs",
	"user_security_answers",
	"security_questions",
	"password_history",
	"refresh_tokens",
	"users",
	"schema_migrations",
}

// CleanupTestDB drops the registrar tables so migrations can start over.
// Unrelated tables in the test database are left alone.
func CleanupTestDB(db *sql.DB) error {
	query := "DROP TABLE IF EXISTS " + strings.Join(registrarTables, ", ") + " CASCADE"
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to drop registrar tables: %w", err)
	}
	return nil
}

// SetupTestDB connects to the test database, drops the registrar tables and applies
// the migrations from scratch
func SetupTestDB(t *testing.T, cfg *config.DatabaseConfig) *sql.DB {
	t.Helper()

	db, err := database.Connect(*cfg)
	require.NoError(t, err, "Failed to connect to test database")
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database unreachable: %v", err)
	}
	t.Cleanup(func() {
		_ = CleanupTestDB(db)
		db.Close()
	})

	// Clean up any existing tables
	err = CleanupTestDB(db)
	require.NoError(t, err, "Failed to cleanup test database")

	var remaining int
	err = db.QueryRow(`SELECT COUNT(*) FROM pg_tables WHERE schemaname = 'public' AND tablename = ANY($1)`,
		pq.Array(registrarTables)).Scan(&remaining)
	require.NoError(t, err, "Failed to count tables")
	require.Zero(t, remaining, "registrar tables should be gone before running migrations")

	// Run migrations using the same setup as the main app
	err = database.RunMigrations(*cfg)
	require.NoError(t, err, "Failed to run migrations")

	return db
}
