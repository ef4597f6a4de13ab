package handlers

import (
	"net/http"

	"registrar/internal/apperror"
	"registrar/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError is the single translation point from service errors to HTTP.
// Internal failures are logged with their cause and returned generically.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperror.As(err)
	if appErr.Kind == apperror.KindInternal {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(appErr.Kind.Status(), models.ErrorResponse{
		Error:          appErr.Message,
		Reasons:        appErr.Reasons,
		HoursRemaining: appErr.HoursRemaining,
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
}
