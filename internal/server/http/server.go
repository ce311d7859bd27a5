// Package httpserver provides the HTTP REST API server for the entity cache
// service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scholarly/openalex-cache/internal/domain"
	"github.com/scholarly/openalex-cache/internal/entities"
)

// EntityService is the interface the HTTP layer consumes from the entity
// retrieval facade.
type EntityService interface {
	FetchEntities(ctx context.Context, req entities.Request) (*domain.Table, error)
	GetMultipleByIDAsTable(ctx context.Context, category domain.Category, ids []string, ordered bool) (*domain.Table, error)
	GetMultipleByDOIAsTable(ctx context.Context, dois []string, ordered bool) (*domain.Table, error)
	GetEntityName(ctx context.Context, id string) (string, error)
	GetEntityInfo(ctx context.Context, id string, fields []string) (domain.Record, error)
	EntityExists(ctx context.Context, id string) (bool, error)
	Progress() float64
	ProgressText() string
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	service    EntityService
	jobs       *jobManager
	validate   *validator.Validate
	logger     zerolog.Logger
	metricsOn  bool
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MetricsEnabled  bool
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, service EntityService, logger zerolog.Logger) *Server {
	s := &Server{
		service:   service,
		jobs:      newJobManager(service, logger),
		validate:  validator.New(),
		logger:    logger.With().Str("component", "http-server").Logger(),
		metricsOn: cfg.MetricsEnabled,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogMiddleware(s.logger))
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	if s.metricsOn {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/fetches", s.startFetch)
		r.Get("/fetches/{jobID}", s.getFetch)
		r.Get("/fetches/{jobID}/progress", s.getFetchProgress)

		r.Post("/lookup/ids", s.lookupByIDs)
		r.Post("/lookup/dois", s.lookupByDOIs)

		r.Get("/entities/{entityID}", s.getEntity)
		r.Get("/entities/{entityID}/name", s.getEntityName)
		r.Get("/entities/{entityID}/exists", s.getEntityExists)
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
