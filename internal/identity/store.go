package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsmith/anchorline/internal/config"
)

// PGStore implements Store on Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps a connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// CandidateEvents returns events in a league inside the commence window.
func (s *PGStore) CandidateEvents(ctx context.Context, league string, from, to time.Time) ([]Event, error) {
	rows, err := s.pool.Query(ctx, "candidate_events", league, from, to)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev := Event{League: league}
		if err := rows.Scan(&ev.ID, &ev.HomeName, &ev.AwayName, &ev.CommenceTime); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// AliasLookup returns the healed canonical name for a raw name, if present.
func (s *PGStore) AliasLookup(ctx context.Context, league, rawName string) (string, bool, error) {
	var canonical string
	err := s.pool.QueryRow(ctx, "alias_lookup", league, rawName).Scan(&canonical)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return canonical, true, nil
}

// HealAlias records rawName → canonicalName. Re-healing the same pair is a
// no-op; a conflicting re-heal keeps the existing mapping (aliases are never
// auto-rewritten once learned).
func (s *PGStore) HealAlias(ctx context.Context, league, rawName, canonicalName string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.EntityAliasesTable+` (league, raw_name, canonical_name)
		VALUES ($1, $2, $3)
		ON CONFLICT (league, raw_name) DO NOTHING`,
		league, rawName, canonicalName,
	)
	return err
}

// UpsertEvent writes a canonical event. The ID is immutable; names and
// commence time accept corrections from later, better-sourced observations.
func (s *PGStore) UpsertEvent(ctx context.Context, ev Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.CanonicalEventsTable+` (
			id, sport, league, home_name, away_name, commence_time, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			home_name = EXCLUDED.home_name,
			away_name = EXCLUDED.away_name,
			commence_time = EXCLUDED.commence_time,
			updated_at = NOW()`,
		ev.ID, ev.Sport, ev.League, ev.HomeName, ev.AwayName, ev.CommenceTime, ev.Status,
	)
	return err
}

// GetEvent loads one canonical event.
func (s *PGStore) GetEvent(ctx context.Context, id string) (*Event, error) {
	var ev Event
	err := s.pool.QueryRow(ctx, "event_by_id", id).Scan(
		&ev.ID, &ev.Sport, &ev.League, &ev.HomeName, &ev.AwayName, &ev.CommenceTime, &ev.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return &ev, nil
}
