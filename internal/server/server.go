// Package server assembles the HTTP API for the cost estimation service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/quantfeed/costsim/internal/server/handler"
	"github.com/quantfeed/costsim/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Estimates may be nil when no persistence layer is configured; its route is
// then not registered.
type Handlers struct {
	Health    *handler.HealthHandler
	Book      *handler.BookHandler
	Estimate  *handler.EstimateHandler
	Latency   *handler.LatencyHandler
	Estimates *handler.EstimatesHandler
}

// Server is the headless HTTP API server for the cost estimation service.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth).
func NewServer(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required for the rest of the chain either; auth
	// applies uniformly, matching the single-key deployment model).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Orderbook summary.
	mux.HandleFunc("GET /api/summary", handlers.Book.Summary)

	// Cost estimation.
	mux.HandleFunc("POST /api/estimate", handlers.Estimate.Estimate)

	// Latency statistics.
	mux.HandleFunc("GET /api/latency", handlers.Latency.Stats)

	// Persisted estimate history (full mode only).
	if handlers.Estimates != nil {
		mux.HandleFunc("GET /api/estimates", handlers.Estimates.ListRecent)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Auth(cfg.APIKey)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
