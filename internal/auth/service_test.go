package auth

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"registrar/internal/apperror"
	"registrar/internal/audit"
	"registrar/internal/models"

	"github.com/stretchr/testify/require"
)

func TestService_LoginSuccess(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	result, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.NotEmpty(t, result.RefreshToken)
	require.Equal(t, "alice", result.User.Username)
	require.NotNil(t, result.User.LastLoginAt)

	body, err := json.Marshal(result.User)
	require.NoError(t, err)
	require.NotContains(t, string(body), "password_hash")
	require.NotContains(t, string(body), result.User.PasswordHash)

	claims := svc.Tokens().Verify(result.AccessToken)
	require.NotNil(t, claims)
	require.Equal(t, result.User.ID, claims.UserID)

	tokens := store.StoredRefreshTokens()
	require.Len(t, tokens, 1)
	require.NotEqual(t, result.RefreshToken, tokens[0].TokenHash)

	successes := store.AuditEvents(models.EventAuthSuccess)
	require.Len(t, successes, 1)
	require.Equal(t, "alice", *successes[0].Username)
	require.Equal(t, "203.0.113.7", successes[0].IPAddress)
}

func TestService_LoginEnumerationResistance(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	_, unknownErr := svc.Login(ctx, "nonexistent_user", "x", testReq)
	_, wrongErr := svc.Login(ctx, "alice", "wrong_password", testReq)

	require.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	require.ErrorIs(t, wrongErr, ErrInvalidCredentials)
	require.Equal(t, unknownErr.Error(), wrongErr.Error())
	require.Equal(t, apperror.As(unknownErr).Kind.Status(), apperror.As(wrongErr).Kind.Status())

	failures := store.AuditEvents(models.EventAuthFailure)
	require.Len(t, failures, 2)
	require.Equal(t, "nonexistent_user", *failures[0].Username)
	require.Nil(t, failures[0].UserID)
}

func TestService_Lockout(t *testing.T) {
	svc, store, clock := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "alice", wrongPassword, testReq)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	require.Len(t, store.AuditEvents(models.EventAuthFailure), 5)
	lockouts := store.AuditEvents(models.EventAuthLockout)
	require.Len(t, lockouts, 1)
	require.Equal(t, models.AuditStatusBlocked, lockouts[0].Status)

	// Locked: even the right password gets the generic failure
	_, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.ErrorIs(t, err, ErrInvalidCredentials)
	require.Len(t, store.AuditEvents(models.EventAuthLockout), 2)

	clock.advance(16 * time.Minute)
	result, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)
	require.Zero(t, result.User.FailedLoginAttempts)
}

func TestService_SuccessResetsFailureCounter(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	for round := 0; round < 2; round++ {
		for i := 0; i < 4; i++ {
			_, err := svc.Login(ctx, "alice", wrongPassword, testReq)
			require.Error(t, err)
		}
		_, err := svc.Login(ctx, "alice", alicePassword, testReq)
		require.NoError(t, err)
	}
	require.Empty(t, store.AuditEvents(models.EventAuthLockout))
}

func TestService_RefreshRotation(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken, testReq)
	require.NoError(t, err)
	require.NotNil(t, svc.Tokens().Verify(refreshed.AccessToken))
	require.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	_, err = svc.Refresh(ctx, login.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "old token was rotated out")

	_, err = svc.Refresh(ctx, refreshed.RefreshToken, testReq)
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, login.AccessToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "access tokens cannot refresh")
}

func TestService_RefreshWithoutRotation(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RefreshRotation = false
	svc, _, _ := newTestService(t, cfg)
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		refreshed, err := svc.Refresh(ctx, login.RefreshToken, testReq)
		require.NoError(t, err)
		require.Equal(t, login.RefreshToken, refreshed.RefreshToken)
	}
}

func TestService_LogoutRevokes(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	svc.Logout(ctx, login.RefreshToken, testReq)
	svc.Logout(ctx, login.RefreshToken, testReq)
	svc.Logout(ctx, "garbage", testReq)
	svc.Logout(ctx, "", testReq)

	_, err = svc.Refresh(ctx, login.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestService_LogoutAll(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	user := registerUser(t, svc, "alice", alicePassword)

	first, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)
	_, err = svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	revoked, err := svc.LogoutAll(ctx, user.ID, testReq)
	require.NoError(t, err)
	require.Equal(t, int64(2), revoked)

	_, err = svc.Refresh(ctx, first.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.Len(t, store.AuditEvents(models.EventDataModification), 1)
}

func TestService_ChangePasswordRevokesOtherSessions(t *testing.T) {
	svc, store, clock := newTestService(t, testConfig())
	ctx := context.Background()
	user := registerUser(t, svc, "alice", alicePassword)

	other, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	clock.advance(25 * time.Hour)
	result, err := svc.ChangePassword(ctx, user.ID, alicePassword, "Gl4cier#Meadow!", testReq)
	require.NoError(t, err)
	require.NotNil(t, svc.Tokens().Verify(result.AccessToken))

	_, err = svc.Refresh(ctx, other.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.Refresh(ctx, result.RefreshToken, testReq)
	require.NoError(t, err)

	require.Len(t, store.AuditEvents(models.EventPasswordChange), 1)

	_, err = svc.Login(ctx, "alice", alicePassword, testReq)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_ChangePasswordFailureIsAudited(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	user := registerUser(t, svc, "alice", alicePassword)

	_, err := svc.ChangePassword(context.Background(), user.ID, alicePassword, "Gl4cier#Meadow!", testReq)
	require.Error(t, err)
	require.Len(t, store.AuditEvents(models.EventValidationFailure), 1)
	require.Empty(t, store.AuditEvents(models.EventPasswordChange))
}

func TestService_Register(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()

	first := registerUser(t, svc, "root", alicePassword)
	require.Equal(t, models.RoleAdmin, first.Role, "first account bootstraps the system")

	second := registerUser(t, svc, "alice", alicePassword)
	require.Equal(t, models.RoleStudent, second.Role)
	require.Len(t, store.AuditEvents(models.EventAccountCreated), 2)

	tests := []struct {
		name    string
		input   models.RegisterRequest
		actor   *models.User
		wantErr error
		kind    apperror.Kind
		ok      bool
	}{
		{
			name:  "Duplicate Username",
			input: models.RegisterRequest{Username: "alice", Email: "other@example.edu", Password: alicePassword},
			kind:  apperror.KindConflict,
		},
		{
			name:  "Duplicate Email",
			input: models.RegisterRequest{Username: "bob", Email: "alice@example.edu", Password: alicePassword},
			kind:  apperror.KindConflict,
		},
		{
			name:  "Weak Password",
			input: models.RegisterRequest{Username: "bob", Email: "bob@example.edu", Password: "password1"},
			kind:  apperror.KindInvalidInput,
		},
		{
			name:    "Role Escalation",
			input:   models.RegisterRequest{Username: "mallory", Email: "mallory@example.edu", Password: alicePassword, Role: models.RoleAdmin},
			actor:   second,
			wantErr: ErrRoleAssignment,
			kind:    apperror.KindForbidden,
		},
		{
			name:  "Admin Assigns Faculty",
			input: models.RegisterRequest{Username: "prof", Email: "prof@example.edu", Password: alicePassword, Role: models.RoleFaculty},
			actor: first,
			ok:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Register(ctx, tt.input, tt.actor, testReq)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, tt.input.Role, user.Role)
				return
			}
			require.Error(t, err)
			require.Equal(t, tt.kind, apperror.KindOf(err))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	require.Len(t, store.AuditEvents(models.EventAccessDenied), 1)
}

func TestService_RegistrationClosed(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.RegistrationOpen = false
	svc, store, _ := newTestService(t, cfg)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		Username: "alice", Email: "alice@example.edu", Password: alicePassword,
	}, nil, testReq)
	require.ErrorIs(t, err, ErrRegistrationClosed)
	denied := store.AuditEvents(models.EventAccessDenied)
	require.Len(t, denied, 1)
	require.Equal(t, "alice", *denied[0].Username)
	require.Nil(t, denied[0].UserID)

	admin := &models.User{ID: 1, Username: "root", Role: models.RoleAdmin}
	_, err = svc.Register(context.Background(), models.RegisterRequest{
		Username: "alice", Email: "alice@example.edu", Password: alicePassword,
	}, admin, testReq)
	require.NoError(t, err)
}

func TestService_ChangeRole(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	admin := registerUser(t, svc, "root", alicePassword)
	alice := registerUser(t, svc, "alice", alicePassword)

	updated, err := svc.ChangeRole(ctx, admin, alice.ID, models.RoleFaculty, testReq)
	require.NoError(t, err)
	require.Equal(t, models.RoleFaculty, updated.Role)
	require.Len(t, store.AuditEvents(models.EventRoleChange), 1)

	_, err = svc.ChangeRole(ctx, alice, admin.ID, models.RoleStudent, testReq)
	require.ErrorIs(t, err, ErrAdminRequired)
	require.Len(t, store.AuditEvents(models.EventAccessDenied), 1)

	_, err = svc.ChangeRole(ctx, admin, admin.ID, models.RoleStudent, testReq)
	require.ErrorIs(t, err, ErrSelfDemotion)

	_, err = svc.ChangeRole(ctx, admin, 9999, models.RoleFaculty, testReq)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.ChangeRole(ctx, admin, alice.ID, models.Role("dean"), testReq)
	require.ErrorIs(t, err, ErrInvalidRole)

	me, err := svc.Me(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleFaculty, me.Role)
}

func TestService_ResetPasswordAudits(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	user := registerUser(t, svc, "alice", alicePassword)
	q := configureAnswers(t, svc, store, user)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	bad := []models.RecoveryAnswer{
		{AnswerID: q[0].ID, AnswerText: "rex"},
		{AnswerID: q[1].ID, AnswerText: "springfield"},
		{AnswerID: q[2].ID, AnswerText: "wrong"},
	}
	err = svc.ResetPassword(ctx, "alice", bad, "Gl4cier#Meadow!", testReq)
	require.ErrorIs(t, err, ErrInvalidAnswers)
	require.Len(t, store.AuditEvents(models.EventAuthFailure), 1)

	good := append([]models.RecoveryAnswer(nil), bad...)
	good[2].AnswerText = "SMITH"
	require.NoError(t, svc.ResetPassword(ctx, "alice", good, "Gl4cier#Meadow!", testReq))

	changes := store.AuditEvents(models.EventPasswordChange)
	require.Len(t, changes, 1)
	require.JSONEq(t, `{"method":"security_questions"}`, string(changes[0].Details))

	_, err = svc.Refresh(ctx, login.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken, "reset revokes sessions")
}

// countingHasher records how many bcrypt comparisons a call costs
type countingHasher struct {
	*Hasher
	verifies int
}

func (h *countingHasher) Verify(secret, hashed string) (bool, error) {
	h.verifies++
	return h.Hasher.Verify(secret, hashed)
}

func TestService_LoginFailuresCostOneComparison(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)
	registerUser(t, svc, "bob", alicePassword)

	for i := 0; i < 5; i++ {
		_, err := svc.Login(ctx, "alice", wrongPassword, testReq)
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	hasher := &countingHasher{Hasher: svc.hasher.(*Hasher)}
	svc.hasher = hasher

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "Locked Account", username: "alice", password: alicePassword},
		{name: "Wrong Password", username: "bob", password: wrongPassword},
		{name: "Unknown User", username: "nobody", password: wrongPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasher.verifies = 0
			_, err := svc.Login(ctx, tt.username, tt.password, testReq)
			require.ErrorIs(t, err, ErrInvalidCredentials)
			require.Equal(t, 1, hasher.verifies)
		})
	}
}

func TestService_RegisterTakesBootstrapLock(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())

	first := registerUser(t, svc, "alice", alicePassword)
	second := registerUser(t, svc, "bob", alicePassword)

	require.Equal(t, models.RoleAdmin, first.Role)
	require.Equal(t, models.RoleStudent, second.Role)
	require.Equal(t, 2, store.BootstrapLocks())
}

func TestService_RefreshIsAudited(t *testing.T) {
	svc, store, _ := newTestService(t, testConfig())
	ctx := context.Background()
	user := registerUser(t, svc, "alice", alicePassword)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)
	refreshed, err := svc.Refresh(ctx, login.RefreshToken, testReq)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, login.RefreshToken, testReq)
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	require.NotEmpty(t, refreshed.AccessToken)

	successes := store.AuditEvents(models.EventAuthSuccess)
	require.Len(t, successes, 2)
	require.Equal(t, audit.ResourceLogin, successes[0].Resource)
	require.Equal(t, audit.ResourceRefresh, successes[1].Resource)
	require.Equal(t, user.ID, *successes[1].UserID)

	failures := store.AuditEvents(models.EventAuthFailure)
	require.Len(t, failures, 1)
	require.Equal(t, audit.ResourceRefresh, failures[0].Resource)
}

func TestService_ValidateToken(t *testing.T) {
	svc, _, _ := newTestService(t, testConfig())
	ctx := context.Background()
	registerUser(t, svc, "alice", alicePassword)

	login, err := svc.Login(ctx, "alice", alicePassword, testReq)
	require.NoError(t, err)

	user, err := svc.ValidateToken(ctx, login.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "alice", user.Username)

	user, err = svc.ValidateToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	require.Nil(t, user, "refresh tokens are not access tokens")

	user, err = svc.ValidateToken(ctx, "garbage")
	require.NoError(t, err)
	require.Nil(t, user)
}
