package models

import (
	"encoding/json"
	"time"
)

// AuditEventType is the kind of security-relevant event recorded
type AuditEventType string

const (
	EventAuthSuccess       AuditEventType = "AUTH_SUCCESS"
	EventAuthFailure       AuditEventType = "AUTH_FAILURE"
	EventAuthLockout       AuditEventType = "AUTH_LOCKOUT"
	EventAccessDenied      AuditEventType = "ACCESS_DENIED"
	EventValidationFailure AuditEventType = "VALIDATION_FAILURE"
	EventPasswordChange    AuditEventType = "PASSWORD_CHANGE"
	EventAccountCreated    AuditEventType = "ACCOUNT_CREATED"
	EventRoleChange        AuditEventType = "ROLE_CHANGE"
	EventDataModification  AuditEventType = "DATA_MODIFICATION"
)

// AuditEventTypes lists every known event type
var AuditEventTypes = []AuditEventType{
	EventAuthSuccess,
	EventAuthFailure,
	EventAuthLockout,
	EventAccessDenied,
	EventValidationFailure,
	EventPasswordChange,
	EventAccountCreated,
	EventRoleChange,
	EventDataModification,
}

// Valid reports whether t is a known event type
func (t AuditEventType) Valid() bool {
	for _, known := range AuditEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// AuditStatus is the outcome recorded with an audit event
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "SUCCESS"
	AuditStatusFailure AuditStatus = "FAILURE"
	AuditStatusBlocked AuditStatus = "BLOCKED"
)

// AuditLog represents an immutable record of a security-relevant event
type AuditLog struct {
	ID        int64           `json:"id"`
	EventType AuditEventType  `json:"event_type"`
	UserID    *int64          `json:"user_id,omitempty"`
	Username  *string         `json:"username,omitempty"`
	IPAddress string          `json:"ip_address"`
	UserAgent string          `json:"user_agent"`
	Resource  string          `json:"resource"`
	Action    string          `json:"action"`
	Details   json.RawMessage `json:"details,omitempty" swaggertype:"object"`
	Status    AuditStatus     `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
