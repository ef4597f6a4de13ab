// Package apptest assembles an auth service over the in-memory store for
// HTTP layer tests.
package apptest

import (
	"context"
	"testing"
	"time"

	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/models"
	"registrar/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Password satisfies the complexity policy
const Password = "Tr0ub4dor&Zebra!"

// App bundles the service graph used by handlers and middleware
type App struct {
	Config *config.Config
	Store  *testutil.Store
	Auth   *auth.Service
	Trail  *audit.Trail
}

// Config returns settings suitable for fast tests
func Config() *config.Config {
	cfg := &config.Config{
		API: config.APIConfig{Port: "8080", Environment: "test"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret",
			AccessTokenDuration:  time.Hour,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			RefreshRotation:      true,
			SecureCookies:        true,
			RegistrationOpen:     true,
			HashCost:             bcrypt.MinCost,
		},
		Policy: config.PolicyConfig{
			PasswordMinAge:   24 * time.Hour,
			HistoryDepth:     5,
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
		},
		Audit: config.AuditConfig{RetentionDays: 90, WriteTimeout: time.Second},
	}
	cfg.RateLimit.Requests = 1000
	cfg.RateLimit.Window = 60
	cfg.RateLimit.Burst = 1000
	return cfg
}

// New builds an App. A nil cfg uses Config().
func New(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	if cfg == nil {
		cfg = Config()
	}
	store := testutil.NewStore()
	trail := audit.NewTrail(store.AuditLogs(), zap.NewNop(), cfg.Audit.WriteTimeout)
	svc := auth.NewService(cfg, auth.Repositories{
		Users:             store.Users(),
		RefreshTokens:     store.RefreshTokens(),
		PasswordHistory:   store.PasswordHistory(),
		SecurityQuestions: store.SecurityQuestions(),
	}, trail, zap.NewNop())

	return &App{Config: cfg, Store: store, Auth: svc, Trail: trail}
}

// Register creates an account through the service
func (a *App) Register(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := a.Auth.Register(context.Background(), models.RegisterRequest{
		Username:  username,
		Email:     username + "@example.edu",
		Password:  Password,
		FirstName: "Test",
		LastName:  "User",
	}, nil, audit.RequestInfo{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	return user
}

// AccessToken issues an access token for user
func (a *App) AccessToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := a.Auth.Tokens().IssueAccessToken(user)
	require.NoError(t, err)
	return token
}
