// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all simulation and server settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// WorldConfig holds the simulation core settings.
type WorldConfig struct {
	EarnAmount       int64 // Payout per autonomous earn action
	WorkshopCapacity int64 // Workshop earn capacity per tick
	TraceCap         int   // Explainability ring buffer size
	DenialThreshold  int   // Consecutive capacity denials before goal override
	OverrideTicks    int   // How many ticks a forced-wander override lasts
	AutonomyLimit    int   // Max autonomous decisions per tick
	MaxAdvanceSteps  int   // Hard cap on steps per advance request
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		EarnAmount:       1,
		WorkshopCapacity: 2,
		TraceCap:         1024,
		DenialThreshold:  2,
		OverrideTicks:    3,
		AutonomyLimit:    50,
		MaxAdvanceSteps:  100,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
// Environment variables take precedence over defaults.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if v := getEnvInt("EARN_AMOUNT", 0); v > 0 {
		cfg.EarnAmount = int64(v)
	}
	if v := getEnvInt("WORKSHOP_CAPACITY", -1); v >= 0 {
		cfg.WorkshopCapacity = int64(v)
	}
	if v := getEnvInt("TRACE_CAP", 0); v > 0 {
		cfg.TraceCap = v
	}
	if v := getEnvInt("AUTONOMY_DENIAL_THRESHOLD", 0); v > 0 {
		cfg.DenialThreshold = v
	}
	if v := getEnvInt("AUTONOMY_OVERRIDE_TICKS", 0); v > 0 {
		cfg.OverrideTicks = v
	}
	if v := getEnvInt("AUTONOMY_LIMIT", 0); v > 0 {
		cfg.AutonomyLimit = v
	}
	if v := getEnvInt("MAX_ADVANCE_STEPS", 0); v > 0 {
		cfg.MaxAdvanceSteps = v
	}

	return cfg
}

// =============================================================================
// ENTRY GATE CONFIGURATION
// =============================================================================

// EntryConfig holds admission and proof verification settings.
type EntryConfig struct {
	FreeMode      bool          // Skip proof verification entirely
	VerifierURL   string        // Base URL of the receipt verification service
	VerifyTimeout time.Duration // Per-attempt timeout on the verifier call
	Recipient     string        // Address entry payments must go to
	MinValue      int64         // Smallest accepted entry payment
	NetworkID     int64         // Chain the payment must be on
}

// DefaultEntry returns the default entry configuration. Free mode is the
// default so a bare `go run` works without a verifier.
func DefaultEntry() EntryConfig {
	return EntryConfig{
		FreeMode:      true,
		VerifyTimeout: 5 * time.Second,
		MinValue:      1,
		NetworkID:     10143,
	}
}

// EntryFromEnv returns entry configuration with environment variable overrides.
func EntryFromEnv() EntryConfig {
	cfg := DefaultEntry()

	if os.Getenv("FREE_MODE") == "false" {
		cfg.FreeMode = false
	}
	if v := os.Getenv("VERIFIER_URL"); v != "" {
		cfg.VerifierURL = v
		cfg.FreeMode = false
	}
	if v := getEnvInt("VERIFY_TIMEOUT_MS", 0); v > 0 {
		cfg.VerifyTimeout = time.Duration(v) * time.Millisecond
	}
	if v := os.Getenv("ENTRY_RECIPIENT"); v != "" {
		cfg.Recipient = v
	}
	if v := getEnvInt("ENTRY_MIN_VALUE", 0); v > 0 {
		cfg.MinValue = int64(v)
	}
	if v := getEnvInt("ENTRY_NETWORK_ID", 0); v > 0 {
		cfg.NetworkID = int64(v)
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	DebugPort      int           // Localhost-only observability server; 0 disables
	TickInterval   time.Duration // Background auto-tick period; 0 means manual ticks only
	RequestsPerSec float64       // Per-IP rate limit
	Burst          int           // Per-IP burst allowance
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		DebugPort:      6060,
		TickInterval:   0,
		RequestsPerSec: 20,
		Burst:          40,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if p := getEnvInt("DEBUG_PORT", -1); p >= 0 {
		cfg.DebugPort = p
	}
	if ms := getEnvInt("TICK_INTERVAL_MS", 0); ms > 0 {
		cfg.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if v := getEnvFloat("RATE_LIMIT_RPS", 0); v > 0 {
		cfg.RequestsPerSec = v
	}
	if v := getEnvInt("RATE_LIMIT_BURST", 0); v > 0 {
		cfg.Burst = v
	}

	return cfg
}

// =============================================================================
// SNAPSHOT CONFIGURATION
// =============================================================================

// SnapshotConfig holds persistence settings.
type SnapshotConfig struct {
	Path         string // Default snapshot file; .zst suffix enables compression
	IncludeTrace bool   // Whether saves include the explainability trace
}

// DefaultSnapshot returns the default snapshot configuration.
func DefaultSnapshot() SnapshotConfig {
	return SnapshotConfig{
		Path:         "data/world.json",
		IncludeTrace: true,
	}
}

// SnapshotFromEnv returns snapshot configuration with environment variable overrides.
func SnapshotFromEnv() SnapshotConfig {
	cfg := DefaultSnapshot()

	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		cfg.Path = v
	}
	if os.Getenv("SNAPSHOT_INCLUDE_TRACE") == "false" {
		cfg.IncludeTrace = false
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World    WorldConfig
	Entry    EntryConfig
	Server   ServerConfig
	Snapshot SnapshotConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:    WorldFromEnv(),
		Entry:    EntryFromEnv(),
		Server:   ServerFromEnv(),
		Snapshot: SnapshotFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
