package handlers

import (
	"net/http"

	"registrar/internal/api/middleware"
	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for sessions, registration and passwords
type AuthHandler struct {
	authService *auth.Service
	config      *config.Config
	logger      *zap.Logger
}

// NewAuthHandler creates a new authentication handler with the given dependencies
func NewAuthHandler(authService *auth.Service, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		config:      cfg,
		logger:      logger,
	}
}

func (h *AuthHandler) startSession(c *gin.Context, accessToken string) {
	setSessionCookie(c, accessToken, h.authService.Tokens().AccessTTL(), h.config.Auth.SecureCookies)
}

// Login godoc
// @Summary User login
// @Description Authenticate with username and password. Sets the session cookie and returns access and refresh tokens.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 429 {object} models.ErrorResponse "Rate limit exceeded"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.startSession(c, result.AccessToken)
	c.JSON(http.StatusOK, models.LoginResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		User:         result.User,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Description Exchange a refresh token for a new access token. The refresh token is rotated when rotation is enabled.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RefreshRequest true "Refresh token"
// @Success 200 {object} models.RefreshResponse
// @Failure 400 {object} models.ErrorResponse "Invalid request format"
// @Failure 401 {object} models.ErrorResponse "Invalid or expired refresh token"
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.startSession(c, result.AccessToken)
	c.JSON(http.StatusOK, models.RefreshResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	})
}

// Logout godoc
// @Summary Logout
// @Description Revoke the given refresh token and clear the session cookie. Always succeeds.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LogoutRequest false "Refresh token to revoke"
// @Success 200 {object} models.SuccessResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req models.LogoutRequest
	// The body is optional
	_ = c.ShouldBindJSON(&req)

	h.authService.Logout(c.Request.Context(), req.RefreshToken, audit.FromRequest(c.Request))
	clearSessionCookie(c, h.config.Auth.SecureCookies)
	c.JSON(http.StatusOK, models.SuccessResponse{Message: "logged out"})
}

// LogoutAll godoc
// @Summary Logout everywhere
// @Description Revoke every refresh token of the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.LogoutAllResponse
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user := middleware.CurrentUser(c)
	revoked, err := h.authService.LogoutAll(c.Request.Context(), user.ID, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	clearSessionCookie(c, h.config.Auth.SecureCookies)
	c.JSON(http.StatusOK, models.LogoutAllResponse{RevokedSessions: revoked})
}

// Register godoc
// @Summary Register a new account
// @Description Create an account. The first account becomes an administrator; afterwards only administrators may assign a role other than student.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Account details"
// @Success 201 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid input or weak password"
// @Failure 403 {object} models.ErrorResponse "Registration closed or role assignment forbidden"
// @Failure 409 {object} models.ErrorResponse "Username or email already exists"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req, middleware.CurrentUser(c), audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Validate godoc
// @Summary Validate token
// @Description Report whether an access token is valid and who it belongs to
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ValidateTokenRequest true "Access token"
// @Success 200 {object} models.ValidateTokenResponse
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/validate [post]
func (h *AuthHandler) Validate(c *gin.Context) {
	var req models.ValidateTokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		c.JSON(http.StatusOK, models.ValidateTokenResponse{})
		return
	}

	user, err := h.authService.ValidateToken(c.Request.Context(), req.Token)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.ValidateTokenResponse{Valid: user != nil, User: user})
}

// Me godoc
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentUser(c))
}
