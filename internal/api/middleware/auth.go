package middleware

import (
	"net/http"
	"strings"

	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the access token for browser clients
const SessionCookie = "session"

const userKey = "user"

type AuthMiddleware struct {
	authService *auth.Service
	trail       *audit.Trail
}

func NewAuthMiddleware(authService *auth.Service, trail *audit.Trail) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
		trail:       trail,
	}
}

// bearerToken extracts the access token from the Authorization header or
// the session cookie. A malformed header is reported as not ok.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie != "" {
		return cookie, true
	}
	return "", true
}

// authenticate resolves the current user; nil means no valid credential
func (m *AuthMiddleware) authenticate(c *gin.Context) (*models.User, string) {
	token, ok := bearerToken(c)
	if !ok {
		return nil, "invalid authorization header"
	}
	if token == "" {
		return nil, "authentication required"
	}

	claims := m.authService.Tokens().Verify(token)
	if claims == nil {
		return nil, "invalid or expired token"
	}

	// Reload so role changes apply immediately
	user, err := m.authService.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, "invalid or expired token"
	}
	return user, ""
}

func (m *AuthMiddleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, reason := m.authenticate(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: reason})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid credential is present and
// continues anonymously otherwise
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, _ := m.authenticate(c); user != nil {
			c.Set(userKey, user)
		}
		c.Next()
	}
}

// AdminRequired must run after AuthRequired. Rejections are audited.
func (m *AuthMiddleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin() {
			m.trail.AccessDenied(c.Request.Context(), audit.FromRequest(c.Request), audit.UserSubject(user), "admin role required")
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{Error: "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user or nil
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}
