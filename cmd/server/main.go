package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"agent-world/internal/api"
	"agent-world/internal/config"
	"agent-world/internal/entry"
	"agent-world/internal/snapshot"
	"agent-world/internal/world"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found, using environment variables only")
		}
	} else {
		log.Println("loaded environment from ../.env")
	}

	log.Println("================================")
	log.Println(" AGENT WORLD - SIMULATION CORE")
	log.Println("================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	worldCfg := appConfig.World
	entryCfg := appConfig.Entry
	serverCfg := appConfig.Server
	snapCfg := appConfig.Snapshot

	log.Printf("world: earn=%d workshop_capacity=%d trace_cap=%d",
		worldCfg.EarnAmount, worldCfg.WorkshopCapacity, worldCfg.TraceCap)
	log.Printf("autonomy: denial_threshold=%d override_ticks=%d limit=%d",
		worldCfg.DenialThreshold, worldCfg.OverrideTicks, worldCfg.AutonomyLimit)

	// Simulation core
	store := world.NewStore(world.Config{
		EarnAmount: worldCfg.EarnAmount,
		Capacity: map[string]int64{
			world.ResourceWorkshop: worldCfg.WorkshopCapacity,
		},
		TraceCap:        worldCfg.TraceCap,
		DenialThreshold: worldCfg.DenialThreshold,
		OverrideTicks:   uint64(worldCfg.OverrideTicks),
		AutonomyLimit:   worldCfg.AutonomyLimit,
	})

	// Entry gate. Free mode needs no verifier; paid mode talks to the
	// external receipt service.
	var verifier entry.Verifier
	if entryCfg.FreeMode {
		log.Println("entry: FREE MODE - proof verification disabled")
	} else {
		if entryCfg.VerifierURL == "" {
			log.Fatal("entry: paid mode requires VERIFIER_URL")
		}
		verifier = entry.NewHTTPVerifier(entryCfg.VerifierURL, entryCfg.VerifyTimeout)
		log.Printf("entry: verifying proofs against %s (recipient=%s network=%d min=%d)",
			entryCfg.VerifierURL, entryCfg.Recipient, entryCfg.NetworkID, entryCfg.MinValue)
	}
	gate := entry.NewGate(store, verifier, entry.Config{
		FreeMode:  entryCfg.FreeMode,
		Recipient: entryCfg.Recipient,
		MinValue:  entryCfg.MinValue,
		NetworkID: entryCfg.NetworkID,
	})

	// Persistence
	codec := snapshot.NewCodec(world.DefaultConfig())
	snapshots := snapshot.NewManager(store, codec, snapCfg.Path)
	log.Printf("snapshots: %s", snapCfg.Path)

	// Start debug server (pprof + prometheus, localhost only)
	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		if serverCfg.DebugPort == 0 {
			debugCfg.Enabled = false
		} else {
			debugCfg.ListenAddr = "127.0.0.1:" + strconv.Itoa(serverCfg.DebugPort)
		}
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(store, gate, snapshots, api.ServerConfig{
		MaxAdvanceSteps: worldCfg.MaxAdvanceSteps,
		AutonomyLimit:   worldCfg.AutonomyLimit,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: serverCfg.RequestsPerSec,
			Burst:             serverCfg.Burst,
		},
	})

	// Optional background ticker. Default is manual ticking via POST /tick,
	// which keeps runs reproducible.
	var tickerStop chan struct{}
	if serverCfg.TickInterval > 0 {
		tickerStop = make(chan struct{})
		go runTicker(store, serverCfg.TickInterval, tickerStop)
		log.Printf("auto-tick every %s", serverCfg.TickInterval)
	} else {
		log.Println("manual ticking (POST /tick); set TICK_INTERVAL_MS for auto-tick")
	}

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("api on http://localhost%s", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	if tickerStop != nil {
		close(tickerStop)
	}
	server.Stop()

	// Final snapshot so a restart can pick up where this run stopped.
	if info, err := snapshots.Save("", snapCfg.IncludeTrace); err != nil {
		log.Printf("final snapshot failed: %v", err)
	} else {
		log.Printf("final snapshot: tick %d -> %s", info.Tick, info.Path)
	}
	log.Println("goodbye")
}

// runTicker advances the world at a fixed cadence until stop closes.
func runTicker(store *world.Store, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			start := time.Now()
			store.Advance(1)
			api.RecordTick(time.Since(start))
			api.UpdateWorldGauges(store.Summarize())
		}
	}
}
