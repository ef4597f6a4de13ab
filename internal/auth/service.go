// Package auth implements the credential lifecycle: password hashing, token
// issuance, refresh token storage, the password policy and security question
// recovery. Service composes them and records every attempt on the audit trail.
package auth

import (
	"context"
	"errors"
	"time"

	"registrar/internal/apperror"
	"registrar/internal/audit"
	"registrar/internal/config"
	"registrar/internal/models"
	"registrar/internal/repository"

	"go.uber.org/zap"
)

var (
	// ErrInvalidCredentials is the single login failure; it never reveals
	// whether the username exists or the account is locked.
	ErrInvalidCredentials = apperror.Unauthenticated("invalid username and/or password")
	// ErrInvalidRefreshToken covers expired, revoked, forged and unknown refresh tokens
	ErrInvalidRefreshToken = apperror.Unauthenticated("invalid or expired refresh token")
	// ErrRegistrationClosed is returned when self registration is disabled
	ErrRegistrationClosed = apperror.Forbidden("registration is closed")
	// ErrRoleAssignment is returned when a non-admin asks for a privileged role
	ErrRoleAssignment = apperror.Forbidden("only administrators can assign roles")
	// ErrAdminRequired is returned when a non-admin calls an admin operation
	ErrAdminRequired = apperror.Forbidden("admin access required")
	// ErrSelfDemotion prevents an admin from removing their own admin role
	ErrSelfDemotion = apperror.Conflict("administrators cannot change their own role")
	// ErrInvalidRole is returned for a role outside student, faculty and admin
	ErrInvalidRole = apperror.InvalidInput("invalid role")
)

// Repositories groups the stores the service depends on
type Repositories struct {
	Users             repository.UserRepository
	RefreshTokens     repository.RefreshTokenRepository
	PasswordHistory   repository.PasswordHistoryRepository
	SecurityQuestions repository.SecurityQuestionRepository
}

// LoginResult is a freshly issued session
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         *models.User
}

// RefreshResult carries the new access token and the refresh token the
// client should keep (rotated when rotation is on)
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// secretHasher is the part of Hasher the service calls directly
type secretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hashed string) (bool, error)
}

// Service provides authentication functionality
type Service struct {
	users            repository.UserRepository
	hasher           secretHasher
	tokens           *TokenCodec
	refresh          *RefreshStore
	policy           *PolicyEngine
	recovery         *Recovery
	trail            *audit.Trail
	logger           *zap.Logger
	rotation         bool
	registrationOpen bool
	lockoutThreshold int
	lockoutDuration  time.Duration
	dummyHash        string
	now              func() time.Time
}

// NewService creates a new authentication service
func NewService(cfg *config.Config, repos Repositories, trail *audit.Trail, logger *zap.Logger) *Service {
	hasher := NewHasher(cfg.Auth.HashCost)
	policy := NewPolicyEngine(repos.Users, repos.PasswordHistory, hasher, cfg.Policy.PasswordMinAge, cfg.Policy.HistoryDepth)
	recovery := NewRecovery(repos.Users, repos.SecurityQuestions, policy, hasher)

	return &Service{
		users:            repos.Users,
		hasher:           hasher,
		tokens:           NewTokenCodec(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration),
		refresh:          NewRefreshStore(repos.RefreshTokens, hasher),
		policy:           policy,
		recovery:         recovery,
		trail:            trail,
		logger:           logger.With(zap.String("component", "auth")),
		rotation:         cfg.Auth.RefreshRotation,
		registrationOpen: cfg.Auth.RegistrationOpen,
		lockoutThreshold: cfg.Policy.LockoutThreshold,
		lockoutDuration:  cfg.Policy.LockoutDuration,
		dummyHash:        recovery.dummyHash,
		now:              time.Now,
	}
}

// Tokens returns the codec used to verify access tokens
func (s *Service) Tokens() *TokenCodec {
	return s.tokens
}

// RefreshStore returns the refresh token store used by maintenance jobs
func (s *Service) RefreshStore() *RefreshStore {
	return s.refresh
}

type loginOutcome int

const (
	outcomeSuccess loginOutcome = iota
	outcomeUnknownUser
	outcomeBadPassword
	outcomeLockedNow
	outcomeLocked
)

// Login authenticates username and password and issues a session. The
// failure counter and lock are updated under a row lock so concurrent
// attempts cannot lose increments.
func (s *Service) Login(ctx context.Context, username, password string, req audit.RequestInfo) (*LoginResult, error) {
	var (
		user     *models.User
		outcome  loginOutcome
		attempts int
	)

	err := s.users.Transaction(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByUsernameForUpdate(ctx, username)
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = s.hasher.Verify(password, s.dummyHash)
			outcome = outcomeUnknownUser
			return nil
		}
		if err != nil {
			return apperror.Storage(err)
		}
		user = u

		now := s.now()
		if u.IsLocked(now) {
			// Same bcrypt cost as every other failure so the lock does not
			// reveal that the username exists
			_, _ = s.hasher.Verify(password, u.PasswordHash)
			outcome = outcomeLocked
			return nil
		}

		ok, err := s.hasher.Verify(password, u.PasswordHash)
		if err != nil {
			return err
		}
		if !ok {
			attempts, err = s.users.RecordFailedLogin(ctx, u.ID, now)
			if err != nil {
				return apperror.Storage(err)
			}
			outcome = outcomeBadPassword
			if s.lockoutThreshold > 0 && attempts >= s.lockoutThreshold {
				if err := s.users.Lock(ctx, u.ID, now.Add(s.lockoutDuration)); err != nil {
					return apperror.Storage(err)
				}
				outcome = outcomeLockedNow
			}
			return nil
		}

		if err := s.users.RecordSuccessfulLogin(ctx, u.ID, now); err != nil {
			return apperror.Storage(err)
		}
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
		outcome = outcomeSuccess
		return nil
	})
	if err != nil {
		s.logger.Error("login failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}

	switch outcome {
	case outcomeUnknownUser:
		s.trail.AuthFailure(ctx, req, audit.UsernameSubject(username), audit.ResourceLogin, "unknown_user")
		return nil, ErrInvalidCredentials
	case outcomeBadPassword:
		s.trail.AuthFailure(ctx, req, audit.UserSubject(user), audit.ResourceLogin, "invalid_password")
		return nil, ErrInvalidCredentials
	case outcomeLockedNow:
		s.trail.AuthFailure(ctx, req, audit.UserSubject(user), audit.ResourceLogin, "invalid_password")
		s.trail.AuthLockout(ctx, req, audit.UserSubject(user), audit.Details{
			"reason":        "too many failed attempts",
			"attempt_count": attempts,
			"locked_for":    s.lockoutDuration.String(),
		})
		s.logger.Warn("account locked", zap.Int64("user_id", user.ID), zap.Int("attempts", attempts))
		return nil, ErrInvalidCredentials
	case outcomeLocked:
		s.trail.AuthLockout(ctx, req, audit.UserSubject(user), audit.Details{"reason": "account locked"})
		return nil, ErrInvalidCredentials
	}

	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.trail.AuthSuccess(ctx, req, user)
	return result, nil
}

// Refresh exchanges a refresh token for a new access token. With rotation
// on, the presented token is revoked and a successor returned.
func (s *Service) Refresh(ctx context.Context, refreshToken string, req audit.RequestInfo) (*RefreshResult, error) {
	claims := s.tokens.VerifyRefresh(refreshToken)
	if claims == nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}

	result := &RefreshResult{RefreshToken: refreshToken}
	if s.rotation {
		next, expiresAt, err := s.tokens.IssueRefreshToken(user)
		if err != nil {
			return nil, apperror.Storage(err)
		}
		ok, err := s.refresh.Rotate(ctx, user.ID, refreshToken, next, expiresAt)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.trail.AuthFailure(ctx, req, audit.UserSubject(user), audit.ResourceRefresh, "refresh_token_rejected")
			return nil, ErrInvalidRefreshToken
		}
		result.RefreshToken = next
	} else {
		ok, err := s.refresh.Validate(ctx, user.ID, refreshToken)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.trail.AuthFailure(ctx, req, audit.UserSubject(user), audit.ResourceRefresh, "refresh_token_rejected")
			return nil, ErrInvalidRefreshToken
		}
	}

	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	result.AccessToken = access
	s.trail.RefreshSuccess(ctx, req, user, s.rotation)
	return result, nil
}

// Logout revokes the refresh token when it is valid. It never fails.
func (s *Service) Logout(ctx context.Context, refreshToken string, req audit.RequestInfo) {
	claims := s.tokens.VerifyRefresh(refreshToken)
	if claims == nil {
		return
	}
	revoked, err := s.refresh.Revoke(ctx, claims.UserID, refreshToken)
	if err != nil {
		s.logger.Warn("logout revocation failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return
	}
	s.logger.Debug("logout", zap.Int64("user_id", claims.UserID), zap.Bool("revoked", revoked),
		zap.String("ip", req.IPAddress))
}

// LogoutAll revokes every refresh token of the user
func (s *Service) LogoutAll(ctx context.Context, userID int64, req audit.RequestInfo) (int64, error) {
	user, err := s.Me(ctx, userID)
	if err != nil {
		return 0, err
	}
	revoked, err := s.refresh.RevokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.trail.DataModification(ctx, req, user, "/api/v1/auth/logout-all", "POST", audit.Details{"revoked_sessions": revoked})
	return revoked, nil
}

// ChangePassword runs the self-service change and returns a new session.
// Every other session of the user is revoked.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string, req audit.RequestInfo) (*LoginResult, error) {
	user, err := s.policy.ChangePassword(ctx, userID, current, next)
	if err != nil {
		s.recordPolicyFailure(ctx, req, userID, err)
		return nil, err
	}

	s.revokeSessions(ctx, user.ID)
	result, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.trail.PasswordChange(ctx, req, user, "self_service")
	return result, nil
}

// ResetPassword completes security question recovery and revokes every session
func (s *Service) ResetPassword(ctx context.Context, username string, answers []models.RecoveryAnswer, newPassword string, req audit.RequestInfo) error {
	user, err := s.recovery.ResetPassword(ctx, username, answers, newPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidAnswers) {
			s.trail.AuthFailure(ctx, req, audit.UsernameSubject(username), audit.ResourceResetPassword, "invalid_answers")
		} else if apperror.KindOf(err) != apperror.KindInternal {
			s.trail.ValidationFailure(ctx, req, audit.UsernameSubject(username), audit.Details{"reason": apperror.As(err).Message})
		}
		return err
	}

	s.revokeSessions(ctx, user.ID)
	s.trail.PasswordChange(ctx, req, user, "security_questions")
	return nil
}

// SecurityQuestionCatalog lists the questions users can choose from
func (s *Service) SecurityQuestionCatalog(ctx context.Context) ([]models.SecurityQuestion, error) {
	return s.recovery.Catalog(ctx)
}

// SecurityQuestionsFor lists the questions configured by username
func (s *Service) SecurityQuestionsFor(ctx context.Context, username string) ([]models.UserQuestion, error) {
	return s.recovery.ListQuestionsFor(ctx, username)
}

// ConfigureSecurityQuestions stores the caller's answers once
func (s *Service) ConfigureSecurityQuestions(ctx context.Context, user *models.User, answers []models.SecurityAnswerInput, req audit.RequestInfo) error {
	if err := s.recovery.Configure(ctx, user.Username, answers); err != nil {
		if apperror.KindOf(err) == apperror.KindInvalidInput {
			s.trail.ValidationFailure(ctx, req, audit.UserSubject(user), audit.Details{"reasons": apperror.As(err).Reasons})
		}
		return err
	}
	s.trail.DataModification(ctx, req, user, "/api/v1/auth/security-questions", "POST", audit.Details{"count": len(answers)})
	return nil
}

// ResetSecurityQuestions lets an admin clear a user's answers
func (s *Service) ResetSecurityQuestions(ctx context.Context, admin *models.User, userID int64, req audit.RequestInfo) (int64, error) {
	if admin == nil || !admin.IsAdmin() {
		s.trail.AccessDenied(ctx, req, audit.UserSubject(admin), "admin role required")
		return 0, ErrAdminRequired
	}
	deleted, err := s.recovery.AdminReset(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.trail.DataModification(ctx, req, admin, req.Path, "DELETE", audit.Details{
		"target_user_id":  userID,
		"answers_deleted": deleted,
	})
	return deleted, nil
}

// Register creates an account. The first account is bootstrapped as admin;
// afterwards only an admin actor may assign a role other than student.
func (s *Service) Register(ctx context.Context, input models.RegisterRequest, actor *models.User, req audit.RequestInfo) (*models.User, error) {
	actorIsAdmin := actor != nil && actor.IsAdmin()
	if !s.registrationOpen && !actorIsAdmin {
		s.trail.AccessDenied(ctx, req, registrationSubject(actor, input.Username), "registration closed")
		return nil, ErrRegistrationClosed
	}

	role := input.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	if reasons := ValidateComplexity(input.Password); len(reasons) > 0 {
		s.trail.ValidationFailure(ctx, req, audit.UsernameSubject(input.Username), audit.Details{"reasons": reasons})
		return nil, WeakPasswordError(reasons)
	}

	hashed, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = s.users.Transaction(ctx, func(ctx context.Context) error {
		if err := s.users.LockForBootstrap(ctx); err != nil {
			return apperror.Storage(err)
		}
		count, err := s.users.Count(ctx)
		if err != nil {
			return apperror.Storage(err)
		}
		switch {
		case count == 0:
			role = models.RoleAdmin
		case role != models.RoleStudent && !actorIsAdmin:
			return ErrRoleAssignment
		}

		now := s.now()
		u := &models.User{
			Username:          input.Username,
			Email:             input.Email,
			Role:              role,
			FirstName:         input.FirstName,
			LastName:          input.LastName,
			PasswordHash:      hashed,
			PasswordChangedAt: &now,
		}
		switch err := s.users.Create(ctx, u); {
		case errors.Is(err, repository.ErrUsernameExists):
			return apperror.Conflict("username already exists")
		case errors.Is(err, repository.ErrEmailExists):
			return apperror.Conflict("email already exists")
		case err != nil:
			return apperror.Storage(err)
		}
		if err := s.policy.SetInitial(ctx, u.ID, hashed); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoleAssignment) {
			s.trail.AccessDenied(ctx, req, registrationSubject(actor, input.Username), "role assignment requires admin")
		}
		return nil, err
	}

	s.trail.AccountCreated(ctx, req, user)
	return user, nil
}

// registrationSubject is the signed-in actor, or the requested username for
// anonymous registrations
func registrationSubject(actor *models.User, username string) audit.Subject {
	if actor != nil {
		return audit.UserSubject(actor)
	}
	return audit.UsernameSubject(username)
}

// ChangeRole sets the role of userID on behalf of an admin
func (s *Service) ChangeRole(ctx context.Context, admin *models.User, userID int64, role models.Role, req audit.RequestInfo) (*models.User, error) {
	if admin == nil || !admin.IsAdmin() {
		s.trail.AccessDenied(ctx, req, audit.UserSubject(admin), "admin role required")
		return nil, ErrAdminRequired
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if admin.ID == userID && role != models.RoleAdmin {
		return nil, ErrSelfDemotion
	}

	var (
		target  *models.User
		oldRole models.Role
	)
	err := s.users.Transaction(ctx, func(ctx context.Context) error {
		u, err := s.users.GetByIDForUpdate(ctx, userID)
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return apperror.Storage(err)
		}
		oldRole = u.Role
		if oldRole == role {
			target = u
			return nil
		}
		if err := s.users.UpdateRole(ctx, u.ID, role); err != nil {
			return apperror.Storage(err)
		}
		u.Role = role
		target = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	if oldRole != role {
		s.trail.RoleChange(ctx, req, admin, target, oldRole)
	}
	return target, nil
}

// Me loads the current state of an authenticated user
func (s *Service) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return user, nil
}

// ValidateToken resolves an access token to its user. An invalid token or
// a deleted user yields a nil user and no error.
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.User, error) {
	claims := s.tokens.Verify(token)
	if claims == nil {
		return nil, nil
	}
	user, err := s.Me(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *Service) issueSession(ctx context.Context, user *models.User) (*LoginResult, error) {
	access, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	refresh, expiresAt, err := s.tokens.IssueRefreshToken(user)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if err := s.refresh.Issue(ctx, user.ID, refresh, expiresAt); err != nil {
		s.logger.Error("failed to store refresh token", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, err
	}
	return &LoginResult{AccessToken: access, RefreshToken: refresh, User: user}, nil
}

// revokeSessions is best effort: the password is already changed when it runs
func (s *Service) revokeSessions(ctx context.Context, userID int64) {
	if _, err := s.refresh.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("failed to revoke sessions after password change", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *Service) recordPolicyFailure(ctx context.Context, req audit.RequestInfo, userID int64, err error) {
	appErr := apperror.As(err)
	if appErr.Kind == apperror.KindInternal {
		s.logger.Error("password change failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	details := audit.Details{"reason": appErr.Message}
	if len(appErr.Reasons) > 0 {
		details["reasons"] = appErr.Reasons
	}
	s.trail.ValidationFailure(ctx, req, audit.Subject{UserID: &userID}, details)
}
