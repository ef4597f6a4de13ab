package models

// LoginResponse represents the response to a successful login
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// RefreshResponse represents the response after refreshing an access token
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error          string   `json:"error"`
	Reasons        []string `json:"reasons,omitempty"`
	HoursRemaining int      `json:"hours_remaining,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string `json:"message"`
}

// SecurityQuestionCatalogResponse lists the question catalog
type SecurityQuestionCatalogResponse struct {
	Questions []SecurityQuestion `json:"questions"`
}

// UserQuestionsResponse lists the questions a user configured
type UserQuestionsResponse struct {
	Questions []UserQuestion `json:"questions"`
}

// AuditLogListResponse is a page of audit log entries
type AuditLogListResponse struct {
	Logs   []AuditLog `json:"logs"`
	Total  int64      `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// AuditStatsResponse holds audit counts per event type
type AuditStatsResponse struct {
	Total       int64            `json:"total"`
	ByEventType map[string]int64 `json:"by_event_type"`
}

// ValidateTokenResponse carries the token's user when it is valid
type ValidateTokenResponse struct {
	Valid bool  `json:"valid"`
	User  *User `json:"user"`
}

// LogoutAllResponse reports how many sessions were revoked
type LogoutAllResponse struct {
	RevokedSessions int64 `json:"revoked_sessions"`
}

// ResetSecurityQuestionsResponse reports how many answers an admin cleared
type ResetSecurityQuestionsResponse struct {
	AnswersDeleted int64 `json:"answers_deleted"`
}
