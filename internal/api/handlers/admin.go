package handlers

import (
	"net/http"
	"strconv"

	"registrar/internal/api/middleware"
	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the administrator endpoints: audit queries, role
// changes and security question resets
type AdminHandler struct {
	authService *auth.Service
	trail       *audit.Trail
	logger      *zap.Logger
}

func NewAdminHandler(authService *auth.Service, trail *audit.Trail, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		authService: authService,
		trail:       trail,
		logger:      logger,
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid user ID"})
		return 0, false
	}
	return id, true
}

// ListAuditLogs godoc
// @Summary List audit logs
// @Description Filtered audit log entries, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param event_type query string false "Event type, comma separated for several"
// @Param user_id query int false "User ID"
// @Param username query string false "Username"
// @Param ip_address query string false "Client IP address"
// @Param hours query int false "Only entries from the last N hours"
// @Param limit query int false "Page size (default 50, max 500)"
// @Param offset query int false "Offset"
// @Success 200 {object} models.AuditLogListResponse
// @Failure 400 {object} models.ErrorResponse "Invalid filter"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Router /admin/audit-logs [get]
func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	var query models.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	filter, err := h.trail.FilterFrom(query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	page, err := h.trail.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.AuditLogListResponse{
		Logs:   page.Logs,
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	})
}

// AuditStats godoc
// @Summary Audit log statistics
// @Description Entry counts per event type
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param hours query int false "Only entries from the last N hours"
// @Success 200 {object} models.AuditStatsResponse
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Router /admin/audit-logs/stats [get]
func (h *AdminHandler) AuditStats(c *gin.Context) {
	var query models.AuditLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}

	filter, err := h.trail.FilterFrom(models.AuditLogQuery{Hours: query.Hours})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	counts, err := h.trail.CountByEventType(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := models.AuditStatsResponse{ByEventType: make(map[string]int64, len(counts))}
	for eventType, n := range counts {
		resp.ByEventType[string(eventType)] = n
		resp.Total += n
	}
	c.JSON(http.StatusOK, resp)
}

// ChangeRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body models.ChangeRoleRequest true "New role"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse "Invalid role"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Failure 409 {object} models.ErrorResponse "Cannot change own role"
// @Router /admin/users/{id}/role [put]
// @Router /admin/users/{id}/role [patch]
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.authService.ChangeRole(c.Request.Context(), middleware.CurrentUser(c), id, req.Role, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ResetSecurityQuestions godoc
// @Summary Reset a user's security questions
// @Description Delete every configured answer so the user can set them up again
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.ResetSecurityQuestionsResponse
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 404 {object} models.ErrorResponse "User not found"
// @Router /admin/users/{id}/security-questions [delete]
func (h *AdminHandler) ResetSecurityQuestions(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	deleted, err := h.authService.ResetSecurityQuestions(c.Request.Context(), middleware.CurrentUser(c), id, audit.FromRequest(c.Request))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.ResetSecurityQuestionsResponse{AnswersDeleted: deleted})
}
