package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/wonny/astrostocks/internal/metrics"
	"github.com/wonny/astrostocks/pkg/config"
	"github.com/wonny/astrostocks/pkg/logger"
)

// Server represents the HTTP API server plus the optional metrics listener
// ⭐ SSOT: API server settings live in this file only
type Server struct {
	httpServer    *http.Server
	metricsServer *http.Server
	logger        *logger.Logger
	config        *config.Config
}

// New creates a new API server. Analyses may call a language model
// for every sector, so the write timeout is generous.
func New(cfg *config.Config, log *logger.Logger, router http.Handler) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      5 * time.Minute,
			IdleTimeout:       60 * time.Second,
		},
		logger: log.Component("api"),
		config: cfg,
	}

	if cfg.MetricsEnabled {
		metrics.Init()
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		s.metricsServer = &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	return s
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"port": s.config.Port,
		"env":  s.config.Env,
	}).Info("Starting API server")

	if s.metricsServer != nil {
		go func() {
			s.logger.WithField("port", s.config.MetricsPort).Info("Starting metrics server")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down API server")

	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.WithError(err).Warn("Failed to shutdown metrics server")
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
