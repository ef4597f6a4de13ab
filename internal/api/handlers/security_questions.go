package handlers

import (
	"net/http"

	"registrar/internal/api/middleware"
	"registrar/internal/audit"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
)

// SecurityQuestionCatalog godoc
// @Summary List security questions
// @Description The catalog users choose their recovery questions from
// @Tags auth
// @Produce json
// @Success 200 {object} models.SecurityQuestionCatalogResponse
// @Router /auth/security-questions [get]
func (h *AuthHandler) SecurityQuestionCatalog(c *gin.Context) {
	questions, err := h.authService.SecurityQuestionCatalog(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.SecurityQuestionCatalogResponse{Questions: questions})
}

// ConfigureSecurityQuestions godoc
// @Summary Configure security questions
// @Description Store answers to at least three distinct catalog questions. Allowed once; an administrator can reset.
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ConfigureSecurityQuestionsRequest true "Answers"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse "Invalid answers"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 409 {object} models.ErrorResponse "Already configured"
// @Router /auth/security-questions [post]
func (h *AuthHandler) ConfigureSecurityQuestions(c *gin.Context) {
	var req models.ConfigureSecurityQuestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user := middleware.CurrentUser(c)
	if err := h.authService.ConfigureSecurityQuestions(c.Request.Context(), user, req.Answers, audit.FromRequest(c.Request)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{Message: "security questions configured"})
}
