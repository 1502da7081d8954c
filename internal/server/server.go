// Package server wires the HTTP API: routing, middleware, and lifecycle.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/server/handler"
	"github.com/0xphantasia/equilibrium/internal/server/middleware"
	"github.com/0xphantasia/equilibrium/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	// PriceRateLimit caps /api/prices requests per client IP per minute.
	// Applied only when a rate limiter is provided.
	PriceRateLimit int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Prices    *handler.PriceHandler
	Positions *handler.PositionHandler
}

// Server is the HTTP + WebSocket API server for the position engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered on the ServeMux and
// the middleware chain (CORS, logging, auth) applied. A nil limiter disables
// rate limiting on the price endpoint.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Price endpoint, optionally rate limited per client IP.
	var prices http.Handler = http.HandlerFunc(handlers.Prices.GetPrices)
	if limiter != nil && cfg.PriceRateLimit > 0 {
		prices = middleware.RateLimit(limiter, cfg.PriceRateLimit, time.Minute)(prices)
	}
	mux.Handle("GET /api/prices", prices)

	// Position endpoints.
	mux.HandleFunc("GET /api/positions", handlers.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions", handlers.Positions.CreatePosition)
	mux.HandleFunc("DELETE /api/positions/{id}", handlers.Positions.DeletePosition)
	mux.HandleFunc("GET /api/positions/{id}/snapshot", handlers.Positions.GetSnapshot)

	// What-if valuation.
	mux.HandleFunc("POST /api/simulate", handlers.Positions.Simulate)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
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
