// Package server provides the HTTP administration server for Bastion.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/guard"
	"bastion-hq/bastion/pkg/telemetry/health"
	"bastion-hq/bastion/pkg/telemetry/logging"
	"bastion-hq/bastion/pkg/telemetry/metrics"
	"bastion-hq/bastion/pkg/telemetry/tracing"
)

// Server exposes the guard engine over HTTP: the authorization hot
// path, administrative controls, and the telemetry endpoints.
type Server struct {
	config       *config.ServerConfig
	engine       *guard.Engine
	collector    *metrics.Collector
	checker      *health.Checker
	tracer       *tracing.Tracer
	logger       *logging.Logger
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new administration server. The collector may be
// nil, in which case no metrics endpoint is mounted.
func NewServer(cfg *config.ServerConfig, engine *guard.Engine, collector *metrics.Collector, logger *logging.Logger) *Server {
	return &Server{
		config:       cfg,
		engine:       engine,
		collector:    collector,
		logger:       logger,
		shutdownChan: make(chan struct{}),
	}
}

// SetHealthChecker attaches component readiness probes. When set, the
// /ready endpoint reports per-component results instead of a bare
// running/not-running answer. Must be called before Start.
func (s *Server) SetHealthChecker(checker *health.Checker) {
	s.checker = checker
}

// SetTracer attaches a tracer; each request then runs under its own
// span. Must be called before Start.
func (s *Server) SetTracer(tracer *tracing.Tracer) {
	s.tracer = tracer
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        s.setupRoutes(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting admin server", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		s.logger.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		s.logger.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("admin server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", NewHealthHandler())
	mux.Handle("/ready", NewReadyHandler(s))

	mux.Handle("/v1/authorize", NewAuthorizeHandler(s.engine))
	mux.Handle("/v1/complete", NewCompleteHandler(s.engine))
	mux.Handle("/v1/metrics/observe", NewObserveHandler(s.engine))

	mux.Handle("/v1/pause", NewPauseHandler(s.engine))
	mux.Handle("/v1/breaker", NewBreakerHandler(s.engine))
	mux.Handle("/v1/breaker/config", NewBreakerConfigHandler(s.engine))
	mux.Handle("/v1/timelock", NewTimelockHandler(s.engine))
	mux.Handle("/v1/timelock/propose", NewTimelockProposeHandler(s.engine))
	mux.Handle("/v1/timelock/execute", NewTimelockExecuteHandler(s.engine))
	mux.Handle("/v1/rules", NewRulesHandler(s.engine))

	if s.collector != nil && s.collector.Enabled() {
		mux.Handle(s.collector.Path(), s.collector.Handler())
	}

	var handler http.Handler = mux
	if s.tracer != nil && s.tracer.Enabled() {
		handler = TracingMiddleware(s.tracer)(handler)
	}
	handler = RequestIDMiddleware(handler)
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)
	return handler
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
