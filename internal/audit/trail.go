// Package audit records security-relevant events and serves the admin query surface.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"registrar/internal/models"
	"registrar/internal/repository"

	"go.uber.org/zap"
)

// Fixed resources for events that always originate from the same route
const (
	ResourceLogin          = "/api/v1/auth/login"
	ResourceRefresh        = "/api/v1/auth/refresh"
	ResourceRegister       = "/api/v1/auth/register"
	ResourceChangePassword = "/api/v1/auth/password"
	ResourceResetPassword  = "/api/v1/auth/reset-password"
	ResourceAdminUsers     = "/api/v1/admin/users"
)

const defaultWriteTimeout = 3 * time.Second

// Subject identifies who an event is about. Either field may be nil.
type Subject struct {
	UserID   *int64
	Username *string
}

// UserSubject builds a subject from a loaded user
func UserSubject(u *models.User) Subject {
	if u == nil {
		return Subject{}
	}
	id, name := u.ID, u.Username
	return Subject{UserID: &id, Username: &name}
}

// UsernameSubject builds a subject from a username that may not exist
func UsernameSubject(username string) Subject {
	if username == "" {
		return Subject{}
	}
	return Subject{Username: &username}
}

// Details is the structured payload stored with an entry
type Details map[string]interface{}

// Trail is the append-only audit log
type Trail struct {
	repo         repository.AuditLogRepository
	logger       *zap.Logger
	writeTimeout time.Duration
	now          func() time.Time
}

// NewTrail creates an audit trail backed by repo
func NewTrail(repo repository.AuditLogRepository, logger *zap.Logger, writeTimeout time.Duration) *Trail {
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trail{
		repo:         repo,
		logger:       logger,
		writeTimeout: writeTimeout,
		now:          time.Now,
	}
}

// Record appends entry. It never fails the caller: persistence errors are
// logged and dropped. The write is detached from ctx cancellation so an
// aborted request still leaves its trace.
func (t *Trail) Record(ctx context.Context, entry *models.AuditLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now()
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.writeTimeout)
	defer cancel()

	if err := t.repo.Create(writeCtx, entry); err != nil {
		t.logger.Error("failed to write audit log",
			zap.String("event_type", string(entry.EventType)),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

func (t *Trail) record(ctx context.Context, eventType models.AuditEventType, status models.AuditStatus,
	req RequestInfo, subject Subject, resource, action string, details Details) {
	entry := &models.AuditLog{
		EventType: eventType,
		UserID:    subject.UserID,
		Username:  subject.Username,
		IPAddress: orUnknown(req.IPAddress),
		UserAgent: orUnknown(req.UserAgent),
		Resource:  resource,
		Action:    action,
		Status:    status,
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			t.logger.Warn("dropping unencodable audit details", zap.Error(err))
		} else {
			entry.Details = raw
		}
	}
	t.Record(ctx, entry)
}

// AuthSuccess records a successful login
func (t *Trail) AuthSuccess(ctx context.Context, req RequestInfo, user *models.User) {
	t.record(ctx, models.EventAuthSuccess, models.AuditStatusSuccess, req, UserSubject(user),
		ResourceLogin, "POST", nil)
}

// RefreshSuccess records a refresh token exchanged for a new access token
func (t *Trail) RefreshSuccess(ctx context.Context, req RequestInfo, user *models.User, rotated bool) {
	t.record(ctx, models.EventAuthSuccess, models.AuditStatusSuccess, req, UserSubject(user),
		ResourceRefresh, "POST", Details{"rotated": rotated})
}

// AuthFailure records a rejected credential on resource
func (t *Trail) AuthFailure(ctx context.Context, req RequestInfo, subject Subject, resource, reason string) {
	t.record(ctx, models.EventAuthFailure, models.AuditStatusFailure, req, subject,
		resource, "POST", Details{"reason": reason})
}

// AuthLockout records a login blocked by the failure counter
func (t *Trail) AuthLockout(ctx context.Context, req RequestInfo, subject Subject, details Details) {
	t.record(ctx, models.EventAuthLockout, models.AuditStatusBlocked, req, subject,
		ResourceLogin, "POST", details)
}

// AccessDenied records an authorization failure on the request's own route
func (t *Trail) AccessDenied(ctx context.Context, req RequestInfo, subject Subject, reason string) {
	t.record(ctx, models.EventAccessDenied, models.AuditStatusFailure, req, subject,
		req.Path, req.Method, Details{"reason": reason})
}

// ValidationFailure records rejected input on the request's own route
func (t *Trail) ValidationFailure(ctx context.Context, req RequestInfo, subject Subject, details Details) {
	t.record(ctx, models.EventValidationFailure, models.AuditStatusFailure, req, subject,
		req.Path, req.Method, details)
}

// PasswordChange records a successful password update. method is
// "self_service" or "security_questions".
func (t *Trail) PasswordChange(ctx context.Context, req RequestInfo, user *models.User, method string) {
	resource := ResourceChangePassword
	if method == "security_questions" {
		resource = ResourceResetPassword
	}
	t.record(ctx, models.EventPasswordChange, models.AuditStatusSuccess, req, UserSubject(user),
		resource, "POST", Details{"method": method})
}

// AccountCreated records a new account
func (t *Trail) AccountCreated(ctx context.Context, req RequestInfo, user *models.User) {
	t.record(ctx, models.EventAccountCreated, models.AuditStatusSuccess, req, UserSubject(user),
		ResourceRegister, "POST", Details{"role": user.Role})
}

// RoleChange records an admin changing another user's role
func (t *Trail) RoleChange(ctx context.Context, req RequestInfo, admin, target *models.User, oldRole models.Role) {
	t.record(ctx, models.EventRoleChange, models.AuditStatusSuccess, req, UserSubject(admin),
		ResourceAdminUsers, "PUT", Details{
			"target_user_id":  target.ID,
			"target_username": target.Username,
			"old_role":        oldRole,
			"new_role":        target.Role,
		})
}

// DataModification records a create/update/delete performed by user
func (t *Trail) DataModification(ctx context.Context, req RequestInfo, user *models.User, resource, action string, details Details) {
	t.record(ctx, models.EventDataModification, models.AuditStatusSuccess, req, UserSubject(user),
		resource, action, details)
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}
