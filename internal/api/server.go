// internal/api/server.go
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	handlers "github.com/newthinker/orion/internal/api/handler/api"
	"github.com/newthinker/orion/internal/api/middleware"
	"github.com/newthinker/orion/internal/api/response"
	"github.com/newthinker/orion/internal/metrics"
	"go.uber.org/zap"
)

// Server represents the HTTP server for Orion
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	IngestToken string
	MetricsPath string
}

// Dependencies are the components the routes serve.
type Dependencies struct {
	Signals handlers.SignalStore
	Sizer   handlers.Sizer
	Ticks   handlers.TickBoard
	Feed    handlers.FeedControl
	Line    handlers.LineSender
	Stream  http.Handler
	Metrics *metrics.Registry
	Version string
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Signals == nil || deps.Ticks == nil {
		return nil, fmt.Errorf("signal store and tick board are required")
	}

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
			ReadTimeout: 15 * time.Second,
			// no write timeout: /api/stream stays open
			IdleTimeout: 60 * time.Second,
		},
		logger: logger,
		mux:    mux,
		deps:   deps,
	}

	s.setupRoutes(cfg)

	mws := []func(http.Handler) http.Handler{metrics.LoggingMiddleware(logger)}
	if deps.Metrics != nil {
		mws = append(mws, metrics.HTTPMiddleware(deps.Metrics))
	}
	mws = append(mws, middleware.Recover(logger), middleware.CORS, middleware.IngestAuth(cfg.IngestToken))

	s.handler = middleware.Chain(mux, mws...)
	s.httpServer.Handler = s.handler

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	signals := handlers.NewSignalsHandler(s.deps.Signals, s.recorder(), s.logger)
	prices := handlers.NewPricesHandler(s.deps.Ticks, s.tickRecorder())
	line := handlers.NewLineHandler(s.deps.Line, s.logger)
	status := handlers.NewStatusHandler(s.deps.Feed, s.deps.Sizer, s.deps.Version)

	s.mux.HandleFunc("/api/signals", methods(map[string]http.HandlerFunc{
		http.MethodGet:  signals.List,
		http.MethodPost: signals.Ingest,
	}))
	s.mux.HandleFunc("/api/signals/{id}", methods(map[string]http.HandlerFunc{
		http.MethodGet: func(w http.ResponseWriter, r *http.Request) {
			signals.GetByID(w, r, r.PathValue("id"))
		},
	}))
	s.mux.HandleFunc("/api/prices", methods(map[string]http.HandlerFunc{
		http.MethodGet:  prices.List,
		http.MethodPost: prices.Ingest,
	}))
	s.mux.HandleFunc("/api/send-line-notification", methods(map[string]http.HandlerFunc{
		http.MethodPost: line.SendNotification,
	}))
	s.mux.HandleFunc("/api/test-line", methods(map[string]http.HandlerFunc{
		http.MethodPost: line.SendTest,
	}))
	s.mux.HandleFunc("/api/status", methods(map[string]http.HandlerFunc{
		http.MethodGet: status.Status,
	}))
	s.mux.HandleFunc("/api/feed/reconnect", methods(map[string]http.HandlerFunc{
		http.MethodPost: status.Reconnect,
	}))
	s.mux.HandleFunc("/health", status.Health)
	s.mux.HandleFunc("/api/health", status.Health)

	if s.deps.Stream != nil {
		s.mux.Handle("/api/stream", s.deps.Stream)
	}

	if s.deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle(path, s.deps.Metrics.Handler())
	}
}

func (s *Server) recorder() handlers.IngestRecorder {
	if s.deps.Metrics == nil {
		return nil
	}
	return s.deps.Metrics
}

func (s *Server) tickRecorder() handlers.TickRecorder {
	if s.deps.Metrics == nil {
		return nil
	}
	return s.deps.Metrics
}

// methods routes by HTTP method and answers anything else with 405.
func methods(routes map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := routes[r.Method]; ok {
			h(w, r)
			return
		}
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
