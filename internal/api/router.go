package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"agent-world/internal/entry"
	"agent-world/internal/snapshot"
	"agent-world/internal/world"
)

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Store: store,
//	    Gate:  gate,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Store is the world simulation core (required).
	Store *world.Store

	// Gate admits agents; it owns proof verification (required).
	Gate *entry.Gate

	// Snapshots is the persistence manager. Optional: when nil the
	// /persist routes answer 501.
	Snapshots *snapshot.Manager

	// MaxAdvanceSteps caps the steps one /tick request may run.
	// Zero means the default of 100.
	MaxAdvanceSteps int

	// AutonomyLimit caps decisions per /auto/step call. Zero means the
	// world default.
	AutonomyLimit int

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default local-development origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	store         *world.Store
	gate          *entry.Gate
	snapshots     *snapshot.Manager
	maxSteps      int
	autonomyLimit int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects:
//   - No goroutines are started
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	maxSteps := cfg.MaxAdvanceSteps
	if maxSteps <= 0 {
		maxSteps = 100
	}

	h := &routerHandlers{
		store:         cfg.Store,
		gate:          cfg.Gate,
		snapshots:     cfg.Snapshots,
		maxSteps:      maxSteps,
		autonomyLimit: cfg.AutonomyLimit,
	}

	// Service info and liveness
	r.Get("/", h.handleRoot)
	r.Get("/healthz", h.handleHealthz)

	// World state
	r.Get("/world", h.handleGetWorld)
	r.Get("/agents/{id}", h.handleGetAgent)
	r.Get("/logs", h.handleGetLogs)
	r.Get("/metrics", h.handleMetrics)

	// Simulation control
	r.Post("/join", h.handleJoin)
	r.Post("/act", h.handleAct)
	r.Post("/tick", h.handleTick)
	r.Post("/reset", h.handleReset)

	// Autonomy control
	r.Route("/auto", func(r chi.Router) {
		r.Post("/enable", h.handleAutoEnable)
		r.Post("/disable", h.handleAutoDisable)
		r.Post("/enable_all", h.handleAutoEnableAll)
		r.Post("/disable_all", h.handleAutoDisableAll)
		r.Post("/goal", h.handleAutoGoal)
		r.Post("/step", h.handleAutoStep)
		r.Post("/tick", h.handleAutoTick)
	})

	// Explainability
	r.Route("/explain", func(r chi.Router) {
		r.Get("/recent", h.handleExplainRecent)
		r.Get("/agent/{id}", h.handleExplainAgent)
	})

	// Persistence
	r.Route("/persist", func(r chi.Router) {
		r.Post("/save", h.handlePersistSave)
		r.Post("/load", h.handlePersistLoad)
		r.Get("/status", h.handlePersistStatus)
	})

	// Demo helpers
	r.Post("/scenario/basic", h.handleScenarioBasic)
	r.Post("/demo/run", h.handleDemoRun)

	return r
}
