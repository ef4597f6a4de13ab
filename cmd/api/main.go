// Package main provides the entry point for the Registrar API server
// @title Registrar API
// @version 1.0
// @description Authentication and credential lifecycle for the course enrollment service.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
// @Security BearerAuth
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"registrar/internal/api/handlers"
	"registrar/internal/api/routes"
	"registrar/internal/api/server"
	"registrar/internal/audit"
	"registrar/internal/auth"
	"registrar/internal/config"
	"registrar/internal/database"
	"registrar/internal/jobs"
	"registrar/internal/logger"
	"registrar/internal/repository/postgres"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	envFile := flag.String("env", ".env", "Path to env file")
	flag.Parse()

	// Load environment file
	if err := godotenv.Load(*envFile); err != nil && *envFile != ".env" {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	// Load configuration
	cfg := &config.Config{}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.API.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	zl := logger.New(cfg.Log.Level, cfg.API.Environment)
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server exited with error", zap.Error(err))
	}
	zl.Info("server exiting")
}

func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and migrate
	db, err := database.SetupDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	trail := audit.NewTrail(postgres.NewAuditLogRepository(db), logger.WithComponent(zl, "audit"), cfg.Audit.WriteTimeout)
	authService := auth.NewService(cfg, auth.Repositories{
		Users:             postgres.NewUserRepository(db),
		RefreshTokens:     postgres.NewRefreshTokenRepository(db),
		PasswordHistory:   postgres.NewPasswordHistoryRepository(db),
		SecurityQuestions: postgres.NewSecurityQuestionRepository(db),
	}, trail, zl)

	health := map[string]handlers.Check{"database": db.PingContext}

	// Redis is optional; it coordinates maintenance jobs across instances
	var locker jobs.Locker = jobs.NewLocalLocker()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Warn("redis unavailable, job locks will fail until it recovers", zap.Error(err))
		}
		locker = jobs.NewRedisLocker(rdb)
		health["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	if cfg.Jobs.Enabled {
		jobsLogger := logger.WithComponent(zl, "jobs")
		scheduler := jobs.NewScheduler(locker, cfg.Jobs.LockTTL, zl)
		for _, job := range jobs.MaintenanceJobs(cfg, authService.RefreshStore(), trail, jobsLogger) {
			scheduler.Register(job)
		}
		go func() {
			if err := scheduler.Start(ctx); err != nil {
				zl.Error("job scheduler failed", zap.Error(err))
			}
		}()
	}

	router := routes.SetupRoutes(cfg, routes.Dependencies{
		Auth:   authService,
		Trail:  trail,
		Health: health,
		Logger: zl,
	})

	srv, err := server.New(cfg, router, zl)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
