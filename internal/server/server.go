package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alanyoungcy/marketchat/internal/domain"
	"github.com/alanyoungcy/marketchat/internal/server/handler"
	"github.com/alanyoungcy/marketchat/internal/server/middleware"
	"github.com/alanyoungcy/marketchat/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// WriteTimeout must exceed the model call timeout.
	WriteTimeout time.Duration

	// Limiter, when set with RateLimit > 0, throttles the chat routes and
	// the key proxy per client IP.
	Limiter    domain.RateLimiter
	RateLimit  int
	RateWindow time.Duration
	// TrustedProxies may set the client IP through forwarding headers.
	TrustedProxies middleware.TrustedProxies
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health *handler.HealthHandler
	Status *handler.StatusHandler
	Market *handler.MarketHandler
	Chat   *handler.ChatHandler
	Key    *handler.KeyHandler
}

// Server is the HTTP + WebSocket API server for the chat UI.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, rate limiting) and attaches the
// WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	limited := func(scope string, h http.Handler) http.Handler {
		if cfg.Limiter == nil || cfg.RateLimit <= 0 {
			return h
		}
		return middleware.RateLimit(cfg.Limiter, scope, cfg.RateLimit, cfg.RateWindow, cfg.TrustedProxies, logger)(h)
	}

	// --- Register routes ---

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets", handlers.Market.ListMarkets)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Market.GetMarket)

	// Conversation endpoints.
	mux.Handle("POST /api/chat", limited("chat", http.HandlerFunc(handlers.Chat.Send)))
	mux.Handle("POST /api/markets/{id}/analyze", limited("chat", http.HandlerFunc(handlers.Chat.Analyze)))
	mux.HandleFunc("GET /api/conversation", handlers.Chat.Conversation)

	// The key proxy answers every method itself.
	mux.Handle("/api/key", limited("key", handlers.Key))

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 90 * time.Second
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger.With(slog.String("component", "server")),
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until the server is shut down.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting", slog.String("addr", ln.Addr().String()))
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serve: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
