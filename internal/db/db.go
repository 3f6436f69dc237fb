// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsmith/anchorline/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements the ingestion and
// grading cycles run on every event. Prepared statements eliminate parse
// overhead inside the batch loops.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Identity: candidate events inside the commence-time tolerance window
		"candidate_events": "SELECT id, home_name, away_name, commence_time FROM canonical_events WHERE league = $1 AND commence_time BETWEEN $2 AND $3",

		// Identity: alias lookup
		"alias_lookup": "SELECT canonical_name FROM entity_aliases WHERE league = $1 AND raw_name = $2",

		// Ingestion: current match state
		"match_state_by_event": "SELECT event_id, home_score, away_score, current_odds, opening_odds, closing_odds, is_closing_locked, t60_snapshot, t0_snapshot FROM match_states WHERE event_id = $1",

		// Grading: pending picks only — terminal rows are never reselected
		"pending_predictions": "SELECT id, event_id, sport, league, bet_type, side, line, description, grading_metadata, event_time FROM predictions WHERE result = 'PENDING' ORDER BY event_time LIMIT $1",

		// Grading: event lookup for evidence joins
		"event_by_id": "SELECT id, sport, league, home_name, away_name, commence_time, status FROM canonical_events WHERE id = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
