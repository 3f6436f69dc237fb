// Package config provides centralized configuration loaded from environment
// variables. Shared by every anchorline subcommand.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Sport registry — single source of truth for per-sport settlement rules
// --------------------------------------------------------------------------

// ScoringUnit selects what a "score" means when settling a pick.
type ScoringUnit string

const (
	// UnitPoints settles on raw points (NBA, NFL, soccer goals).
	UnitPoints ScoringUnit = "points"
	// UnitSets settles on sets won (tennis, volleyball).
	UnitSets ScoringUnit = "sets"
)

type SportConfig struct {
	ID       string
	Name     string
	Unit     ScoringUnit
	HasDraw  bool   // sports with a three-way moneyline
	ESPNPath string // scoreboard path segment, empty when ESPN has no feed
}

var SportRegistry = map[string]SportConfig{
	"NBA":    {ID: "NBA", Name: "National Basketball Association", Unit: UnitPoints, ESPNPath: "basketball/nba"},
	"NFL":    {ID: "NFL", Name: "National Football League", Unit: UnitPoints, ESPNPath: "football/nfl"},
	"NHL":    {ID: "NHL", Name: "National Hockey League", Unit: UnitPoints, ESPNPath: "hockey/nhl"},
	"SOCCER": {ID: "SOCCER", Name: "Association Football", Unit: UnitPoints, HasDraw: true, ESPNPath: "soccer/all"},
	"TENNIS": {ID: "TENNIS", Name: "Tennis", Unit: UnitSets, ESPNPath: "tennis/atp"},
}

// SportFor returns the registry entry for a sport tag, defaulting to
// point-scored with no draw for sports the registry does not know.
func SportFor(id string) SportConfig {
	if sc, ok := SportRegistry[strings.ToUpper(id)]; ok {
		return sc
	}
	return SportConfig{ID: strings.ToUpper(id), Unit: UnitPoints}
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	CanonicalEventsTable = "canonical_events"
	EntityAliasesTable   = "entity_aliases"
	MatchStatesTable     = "match_states"
	PredictionsTable     = "predictions"
	BatchLogsTable       = "batch_logs"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Ops server
	OpsHost          string
	OpsPort          int
	Environment      string // development, staging, production
	CORSAllowOrigins []string

	// External providers
	OddsAPIKey          string
	OddsAPIBaseURL      string
	ESPNBaseURL         string
	ProviderRequestsMin int // per-provider requests per minute

	// Batch behavior
	Workers           int
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RequestTimeout    time.Duration
	StaleAfter        time.Duration
	CommenceTolerance time.Duration
	GradingBatchLimit int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("ANCHORLINE_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or ANCHORLINE_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		OpsHost:     envOr("OPS_HOST", "0.0.0.0"),
		OpsPort:     envInt("OPS_PORT", 9090),
		Environment: envOr("ENVIRONMENT", "development"),
		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
		}),

		OddsAPIKey:          envOr("ODDS_API_KEY", ""),
		OddsAPIBaseURL:      envOr("ODDS_API_BASE_URL", "https://api.the-odds-api.com"),
		ESPNBaseURL:         envOr("ESPN_BASE_URL", "http://site.api.espn.com"),
		ProviderRequestsMin: envInt("PROVIDER_REQUESTS_PER_MINUTE", 30),

		Workers:           envInt("BATCH_WORKERS", 4),
		RetryMaxAttempts:  envInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:    time.Duration(envInt("RETRY_BASE_DELAY_MS", 250)) * time.Millisecond,
		RetryMaxDelay:     time.Duration(envInt("RETRY_MAX_DELAY_MS", 5000)) * time.Millisecond,
		RequestTimeout:    time.Duration(envInt("REQUEST_TIMEOUT_SECONDS", 8)) * time.Second,
		StaleAfter:        time.Duration(envInt("STALE_AFTER_DAYS", 14)) * 24 * time.Hour,
		CommenceTolerance: time.Duration(envInt("COMMENCE_TOLERANCE_MINUTES", 30)) * time.Minute,
		GradingBatchLimit: envInt("GRADING_BATCH_LIMIT", 200),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
