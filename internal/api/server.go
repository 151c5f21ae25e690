package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"agent-world/internal/entry"
	"agent-world/internal/snapshot"
	"agent-world/internal/world"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with a WebSocket hub for live world updates.
type Server struct {
	store       *world.Store
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
}

// ServerConfig carries the knobs NewServer needs beyond its dependencies.
type ServerConfig struct {
	MaxAdvanceSteps int
	AutonomyLimit   int
	RateLimit       RateLimitConfig
}

// NewServer creates a new API server with production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(store *world.Store, gate *entry.Gate, snapshots *snapshot.Manager, cfg ServerConfig) *Server {
	s := &Server{
		store: store,
		wsHub: NewWebSocketHub(),
	}

	rateCfg := cfg.RateLimit
	if rateCfg.RequestsPerSecond <= 0 {
		rateCfg = DefaultRateLimitConfig
	}
	if rateCfg.CleanupInterval <= 0 {
		rateCfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	s.rateLimiter = NewIPRateLimiter(rateCfg)

	s.router = NewRouter(RouterConfig{
		Store:           store,
		Gate:            gate,
		Snapshots:       snapshots,
		MaxAdvanceSteps: cfg.MaxAdvanceSteps,
		AutonomyLimit:   cfg.AutonomyLimit,
		RateLimiter:     s.rateLimiter,
	})

	// WebSocket routes need the hub instance, so they can't be part of the
	// pure NewRouter factory.
	s.router.Get("/ws", s.handleWS)

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.store)

	log.Printf("api server starting on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop performs graceful shutdown of background workers.
func (s *Server) Stop() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}
