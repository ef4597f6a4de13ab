package auth

import (
	"context"
	"testing"
	"time"

	"registrar/internal/audit"
	"registrar/internal/config"
	"registrar/internal/models"
	"registrar/internal/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	alicePassword = "Tr0ub4dor&Zebra!"
	wrongPassword = "Wrong#Guess1990"
)

var testReq = audit.RequestInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent", Method: "POST", Path: "/api/v1/auth/login"}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret",
			AccessTokenDuration:  time.Hour,
			RefreshTokenDuration: 7 * 24 * time.Hour,
			RefreshRotation:      true,
			RegistrationOpen:     true,
			HashCost:             bcrypt.MinCost,
		},
		Policy: config.PolicyConfig{
			PasswordMinAge:   24 * time.Hour,
			HistoryDepth:     5,
			LockoutThreshold: 5,
			LockoutDuration:  15 * time.Minute,
		},
	}
}

// fixedClock is a settable clock shared by every component of a test service
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time         { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, cfg *config.Config) (*Service, *testutil.Store, *fixedClock) {
	t.Helper()
	store := testutil.NewStore()
	trail := audit.NewTrail(store.AuditLogs(), zap.NewNop(), time.Second)
	svc := NewService(cfg, Repositories{
		Users:             store.Users(),
		RefreshTokens:     store.RefreshTokens(),
		PasswordHistory:   store.PasswordHistory(),
		SecurityQuestions: store.SecurityQuestions(),
	}, trail, zap.NewNop())

	clock := &fixedClock{t: time.Now()}
	svc.now = clock.now
	svc.tokens.now = clock.now
	svc.refresh.now = clock.now
	svc.policy.now = clock.now
	return svc, store, clock
}

func registerUser(t *testing.T, svc *Service, username, password string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), models.RegisterRequest{
		Username:  username,
		Email:     username + "@example.edu",
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	}, nil, testReq)
	require.NoError(t, err)
	return user
}
