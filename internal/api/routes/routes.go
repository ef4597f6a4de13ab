// Package routes handles the setup and configuration of API routes
package routes

import (
	_ "registrar/docs" // Import swagger docs
	"registrar/internal/api/handlers"
	"registrar/internal/api/middleware"
	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/validation"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// Dependencies are the services the routes are wired to
type Dependencies struct {
	Auth   *auth.Service
	Trail  *audit.Trail
	Health map[string]handlers.Check
	Logger *zap.Logger
}

// SetupRoutes configures all API routes and their handlers
func SetupRoutes(cfg *config.Config, deps Dependencies) *gin.Engine {
	validation.Initialize()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpLogger := logger.With(zap.String("component", "http"))

	r := gin.New()
	r.Use(middleware.Recovery(httpLogger), middleware.RequestLogger(httpLogger))

	// Routes without rate limiting
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.Use(middleware.NewRateLimiter(cfg).Middleware())

	authMiddleware := middleware.NewAuthMiddleware(deps.Auth, deps.Trail)

	healthHandler := handlers.NewHealthHandler(deps.Health)
	authHandler := handlers.NewAuthHandler(deps.Auth, cfg, httpLogger)
	adminHandler := handlers.NewAdminHandler(deps.Auth, deps.Trail, httpLogger)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/validate", authHandler.Validate)
			authGroup.POST("/register", authMiddleware.OptionalAuth(), authHandler.Register)
			authGroup.GET("/security-questions", authHandler.SecurityQuestionCatalog)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.POST("/reset-password", authHandler.ResetPassword)

			// Authenticated
			authGroup.POST("/logout-all", authMiddleware.AuthRequired(), authHandler.LogoutAll)
			authGroup.GET("/me", authMiddleware.AuthRequired(), authHandler.Me)
			authGroup.PUT("/password", authMiddleware.AuthRequired(), authHandler.ChangePassword)
			authGroup.POST("/security-questions", authMiddleware.AuthRequired(), authHandler.ConfigureSecurityQuestions)
		}

		// Admin-only routes
		admin := v1.Group("/admin")
		admin.Use(authMiddleware.AuthRequired(), authMiddleware.AdminRequired())
		{
			admin.GET("/audit-logs", adminHandler.ListAuditLogs)
			admin.GET("/audit-logs/stats", adminHandler.AuditStats)
			admin.PUT("/users/:id/role", adminHandler.ChangeRole)
			admin.PATCH("/users/:id/role", adminHandler.ChangeRole)
			admin.DELETE("/users/:id/security-questions", adminHandler.ResetSecurityQuestions)
		}
	}

	return r
}
