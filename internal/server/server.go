// Package server hosts the HTTP and WebSocket API in front of the
// scheduler's state and the persistence layer.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"primeflip/internal/server/handler"
	"primeflip/internal/server/middleware"
	"primeflip/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port           int
	CORSOrigins    []string
	RateLimitRPS   float64 // per-client-IP; 0 disables rate limiting
	RateLimitBurst int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Trades and Auth may be nil when accounts are disabled; Scheduler and
// History may be nil in server-only mode.
type Handlers struct {
	Health        *handler.HealthHandler
	Config        *handler.ConfigHandler
	Items         *handler.ItemHandler
	Opportunities *handler.OpportunityHandler
	Scheduler     *handler.SchedulerHandler
	History       *handler.HistoryHandler
	Auth          *handler.AuthHandler
	Trades        *handler.TradeHandler
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, rate limiting) and attaches the
// WebSocket hub. verifier guards the trade-session routes.
func NewServer(cfg Config, handlers Handlers, verifier middleware.TokenVerifier, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Effective runtime configuration.
	mux.HandleFunc("GET /api/config", handlers.Config.GetConfig)

	// Tracked-item catalog.
	mux.HandleFunc("GET /api/items", handlers.Items.ListItems)
	mux.HandleFunc("GET /api/items/{id}", handlers.Items.GetItem)

	// Current opportunity set.
	mux.HandleFunc("GET /api/opportunities", handlers.Opportunities.ListOpportunities)

	// Manual refresh trigger.
	if handlers.Scheduler != nil {
		mux.HandleFunc("POST /api/scheduler/trigger", handlers.Scheduler.Trigger)
	}

	// Price history.
	if handlers.History != nil {
		mux.HandleFunc("GET /api/prices/history/{id}", handlers.History.PartHistory)
		mux.HandleFunc("GET /api/prices/lowest/{id}", handlers.History.LowestPrices)
	}

	// Accounts and trade sessions. The trade routes sit behind the token
	// middleware; auth routes stay open.
	if handlers.Auth != nil {
		mux.HandleFunc("POST /api/auth/register", handlers.Auth.Register)
		mux.HandleFunc("POST /api/auth/login", handlers.Auth.Login)
	}
	if handlers.Trades != nil && verifier != nil {
		authed := middleware.Auth(verifier)
		mux.Handle("POST /api/trades", authed(http.HandlerFunc(handlers.Trades.CreateSession)))
		mux.Handle("GET /api/trades", authed(http.HandlerFunc(handlers.Trades.ListSessions)))
		mux.Handle("GET /api/trades/{id}", authed(http.HandlerFunc(handlers.Trades.GetSession)))
		mux.Handle("POST /api/trades/{id}/parts", authed(http.HandlerFunc(handlers.Trades.AddPart)))
		mux.Handle("PATCH /api/trades/{id}", authed(http.HandlerFunc(handlers.Trades.UpdateSession)))
		mux.Handle("DELETE /api/trades/{id}", authed(http.HandlerFunc(handlers.Trades.DeleteSession)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = int(cfg.RateLimitRPS)
			if burst < 1 {
				burst = 1
			}
		}
		h = middleware.RateLimit(cfg.RateLimitRPS, burst)(h)
	}

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

// Handler exposes the full middleware-wrapped handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
