package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/databazaar/license-indexer/internal/api/middleware"
	"github.com/databazaar/license-indexer/internal/api/rest"
	"github.com/databazaar/license-indexer/internal/logger"
)

// Config holds the HTTP server configuration
type Config struct {
	Debug bool
	Host  string
	Port  int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	Auth middleware.AuthConfig
}

// Server wraps the gin router and http.Server lifecycle
type Server struct {
	config Config
	http   *http.Server
}

// New creates the API server with all routes and middleware wired
func New(cfg Config, handler rest.Handler) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())

	rest.SetupRoutes(router, handler, cfg.Auth)

	return &Server{
		config: cfg,
		http: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler: router,

			// WriteTimeout stays generous so SSE and WebSocket streams
			// are not cut off mid flight
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}
}

// Start runs the HTTP server, blocking until it stops. http.ErrServerClosed
// after a Shutdown is swallowed.
func (s *Server) Start() error {
	logger.Info("Starting API server", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")
	return s.http.Shutdown(ctx)
}
