package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/maxiofs/linelog/internal/config"
	"github.com/maxiofs/linelog/internal/linelog"
	"github.com/maxiofs/linelog/internal/metrics"
	"github.com/maxiofs/linelog/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Server accepts debug lines over HTTP and appends them to the process debug log
type Server struct {
	config     *config.Config
	httpServer *http.Server
	debugLog   *linelog.Logger
	registry   *prometheus.Registry
	startTime  time.Time
}

// New creates an ingestion server writing to debugLog. registry may be nil
// when metrics are disabled.
func New(cfg *config.Config, debugLog *linelog.Logger, registry *prometheus.Registry) (*Server, error) {
	if debugLog == nil {
		return nil, ErrNoDebugLog
	}
	if cfg.Metrics.Enable && registry == nil {
		return nil, ErrNoRegistry
	}

	s := &Server{
		config:   cfg,
		debugLog: debugLog,
		registry: registry,
		httpServer: &http.Server{
			Addr:         cfg.Listen,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		startTime: time.Now(),
	}
	s.httpServer.Handler = s.setupRoutes()

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) setupRoutes() http.Handler {
	router := mux.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logging())

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/lines", s.handleAppendLines).Methods(http.MethodPost)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	if s.config.Metrics.Enable {
		router.Handle(s.config.Metrics.Path, metrics.Handler(s.registry)).Methods(http.MethodGet)
	}

	return handlers.RecoveryHandler()(router)
}

// Start serves until ctx is cancelled, then shuts down gracefully.
// It returns early if the listener cannot be started.
func (s *Server) Start(ctx context.Context) error {
	logrus.WithFields(logrus.Fields{
		"address":   s.config.Listen,
		"debug_log": s.debugLog.Path(),
		"metrics":   s.config.Metrics.Enable,
	}).Info("Starting linelog ingestion server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve on %s: %w", s.config.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	return s.shutdown()
}

func (s *Server) shutdown() error {
	logrus.Info("Shutting down ingestion server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
