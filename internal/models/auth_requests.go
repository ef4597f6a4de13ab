package models

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=50" example:"alice"`
	Password string `json:"password" binding:"required,max=128"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ValidateTokenRequest asks whether an access token is still usable
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// LogoutRequest represents a logout request. The token is optional; logout always succeeds.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuditLogQuery holds the admin audit log query parameters
type AuditLogQuery struct {
	EventType string `form:"event_type"`
	UserID    *int64 `form:"user_id"`
	Username  string `form:"username"`
	IPAddress string `form:"ip_address"`
	Hours     int    `form:"hours" binding:"omitempty,min=1,max=8760"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}
