// Package server provides the HTTP server implementation
package server

// @title           Registrar API
// @version         1.0
// @description     Authentication and credential lifecycle for the course enrollment service.
//
// @description.markdown
// All API endpoints are subject to per client IP rate limiting.
//
// When the rate limit is exceeded:
// * Status code 429 (Too Many Requests) is returned
// * Headers:
//   - X-RateLimit-Limit: Maximum requests allowed per window
//   - Retry-After: Seconds to wait before retrying
//
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication
//
// @response 429 {object} models.ErrorResponse "Rate limit exceeded"

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"registrar/internal/config"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server represents the HTTP server
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// New creates a new server instance serving handler on the configured port
func New(cfg *config.Config, handler http.Handler, logger *zap.Logger) (*Server, error) {
	port, err := strconv.Atoi(cfg.API.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port number: %w", err)
	}

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}, nil
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then gives outstanding requests
// shutdownTimeout to complete
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
