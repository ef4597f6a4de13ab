package handlers

import (
	"net/http"

	"registrar/internal/api/middleware"
	"registrar/internal/audit"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
)

// ChangePassword godoc
// @Summary Change password
// @Description Change the current user's password. Every other session is revoked and a new one is returned.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} models.LoginResponse
// @Failure 400 {object} models.ErrorResponse "Wrong current password, weak password or password too young"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 409 {object} models.ErrorResponse "Password was used recently"
// @Router /auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	result, err := h.authService.ChangePassword(c.Request.Context(), user.ID, req.CurrentPassword, req.NewPassword, audit.FromRequest(c.Request))
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

// ForgotPassword godoc
// @Summary Start password recovery
// @Description List the security questions configured for a username
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ForgotPasswordRequest true "Username"
// @Success 200 {object} models.UserQuestionsResponse
// @Failure 404 {object} models.ErrorResponse "Recovery unavailable"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	questions, err := h.authService.SecurityQuestionsFor(c.Request.Context(), req.Username)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.UserQuestionsResponse{Questions: questions})
}

// ResetPassword godoc
// @Summary Complete password recovery
// @Description Reset the password by answering every configured security question
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.ResetPasswordRequest true "Answers and new password"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Weak password"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials or answers"
// @Failure 409 {object} models.ErrorResponse "Password was used recently"
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	err := h.authService.ResetPassword(c.Request.Context(), req.Username, req.Answers, req.NewPassword, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Message: "password has been reset"})
}
