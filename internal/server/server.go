// Package server provides the HTTP API for neardup.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/neardup/internal/config"
	"github.com/hyperjump/neardup/internal/pipeline"
	"github.com/hyperjump/neardup/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes bounds request bodies.
const DefaultMaxBodyBytes int64 = 32 << 20

// Server is the HTTP server for the neardup API.
type Server struct {
	runner   *pipeline.Runner
	store    storage.Store
	config   *config.Config
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	maxBody  int64
	server   *http.Server
}

// NewServer creates a server with the given dependencies. store may be nil,
// which disables the run history endpoints. gatherer backs /metrics; nil
// uses the default registry.
func NewServer(
	runner *pipeline.Runner,
	store storage.Store,
	cfg *config.Config,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		runner:   runner,
		store:    store,
		config:   cfg,
		logger:   logger,
		gatherer: gatherer,
		maxBody:  DefaultMaxBodyBytes,
	}
}

// Handler returns the router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents/compare", s.handleCompare)
		r.Post("/rows/dedupe", s.handleDedupe)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
