package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	ginrouter "room-user-service/internal/adapter/gin/router"
	"room-user-service/internal/config"

	"go.uber.org/zap"
)

// Server owns the HTTP listener
type Server struct {
	Config *config.Config
	Logger *zap.Logger
	Gin    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, l *zap.Logger, deps ginrouter.Deps) *Server {
	return &Server{
		Config: cfg,
		Logger: l,
		Gin:    SetupGinServer(deps, ":"+cfg.App.HTTPPort, cfg.Env, l),
	}
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.Logger.Info("HTTP server running", zap.String("address", s.Gin.Addr))

	if err := s.Gin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve HTTP: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Gin.Shutdown(ctx)
}
