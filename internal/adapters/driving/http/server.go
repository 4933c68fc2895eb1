package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
	"github.com/custodia-labs/avatar-auth/internal/core/ports/driving"
)

// Readiness reports whether identity providers have finished discovery
type Readiness interface {
	Ready() bool
	Pending() []domain.ProviderType
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	shutdownTimeout time.Duration

	// Services
	gateway   driving.AuthGateway
	readiness Readiness
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// FrontendOrigin is the single origin allowed to make credentialed requests
	FrontendOrigin string

	// ShutdownTimeout bounds graceful shutdown. Zero uses 30s.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3001,
		Version:         "dev",
		FrontendOrigin:  "http://localhost:5173",
		ShutdownTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, gateway driving.AuthGateway, readiness Readiness, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	s := &Server{
		router:    http.NewServeMux(),
		version:   cfg.Version,
		logger:    logger,
		gateway:   gateway,
		readiness: readiness,
	}

	s.setupRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400,
	})

	s.handler = NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			corsHandler.Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.shutdownTimeout = cfg.ShutdownTimeout

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Session API for the frontend
	s.router.HandleFunc("GET /api/auth/me", s.handleMe)
	s.router.HandleFunc("POST /api/auth/logout", s.handleLogout)

	// Browser-facing OAuth flow
	s.router.HandleFunc("GET /auth/{provider}/login", s.handleLogin)
	s.router.HandleFunc("GET /auth/{provider}/callback", s.handleCallback)
}

// Handler returns the router wrapped in middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("starting server", "addr", s.httpServer.Addr, "version", s.version)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
