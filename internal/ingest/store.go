package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsmith/anchorline/internal/config"
	"github.com/oddsmith/anchorline/internal/consensus"
)

// StateStore persists match state. The SET clauses repeat the guard
// predicates (GREATEST, COALESCE, OR) so that concurrent runs racing on the
// same event still converge on the invariant-respecting value without any
// in-process locking.
type StateStore struct {
	pool *pgxpool.Pool
}

// NewStateStore wraps a connection pool.
func NewStateStore(pool *pgxpool.Pool) *StateStore {
	return &StateStore{pool: pool}
}

// Get loads the state for one event; a missing row yields the zero state.
func (s *StateStore) Get(ctx context.Context, eventID string) (MatchState, error) {
	state := MatchState{EventID: eventID}
	var current, opening, closing, t60, t0 []byte

	err := s.pool.QueryRow(ctx, "match_state_by_event", eventID).Scan(
		&state.EventID, &state.HomeScore, &state.AwayScore,
		&current, &opening, &closing, &state.IsClosingLocked, &t60, &t0,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return MatchState{EventID: eventID}, nil
	}
	if err != nil {
		return state, fmt.Errorf("get match state %s: %w", eventID, err)
	}

	for _, pair := range []struct {
		raw []byte
		dst **consensus.AnchorLine
	}{
		{current, &state.CurrentOdds},
		{opening, &state.OpeningOdds},
		{closing, &state.ClosingOdds},
		{t60, &state.T60Snapshot},
		{t0, &state.T0Snapshot},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		var a consensus.AnchorLine
		if err := json.Unmarshal(pair.raw, &a); err != nil {
			return state, fmt.Errorf("decode odds for %s: %w", eventID, err)
		}
		*pair.dst = &a
	}

	return state, nil
}

// Upsert writes the state. Idempotent by event ID; safe to re-run after a
// partial batch.
func (s *StateStore) Upsert(ctx context.Context, state MatchState) error {
	current, err := marshalOdds(state.CurrentOdds)
	if err != nil {
		return err
	}
	opening, err := marshalOdds(state.OpeningOdds)
	if err != nil {
		return err
	}
	closing, err := marshalOdds(state.ClosingOdds)
	if err != nil {
		return err
	}
	t60, err := marshalOdds(state.T60Snapshot)
	if err != nil {
		return err
	}
	t0, err := marshalOdds(state.T0Snapshot)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+config.MatchStatesTable+` (
			event_id, home_score, away_score, current_odds, opening_odds,
			closing_odds, is_closing_locked, t60_snapshot, t0_snapshot
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (event_id) DO UPDATE SET
			home_score = GREATEST(`+config.MatchStatesTable+`.home_score, EXCLUDED.home_score),
			away_score = GREATEST(`+config.MatchStatesTable+`.away_score, EXCLUDED.away_score),
			current_odds = COALESCE(EXCLUDED.current_odds, `+config.MatchStatesTable+`.current_odds),
			opening_odds = COALESCE(`+config.MatchStatesTable+`.opening_odds, EXCLUDED.opening_odds),
			closing_odds = CASE
				WHEN `+config.MatchStatesTable+`.is_closing_locked THEN `+config.MatchStatesTable+`.closing_odds
				ELSE COALESCE(EXCLUDED.closing_odds, `+config.MatchStatesTable+`.closing_odds)
			END,
			is_closing_locked = `+config.MatchStatesTable+`.is_closing_locked OR EXCLUDED.is_closing_locked,
			t60_snapshot = COALESCE(`+config.MatchStatesTable+`.t60_snapshot, EXCLUDED.t60_snapshot),
			t0_snapshot = COALESCE(`+config.MatchStatesTable+`.t0_snapshot, EXCLUDED.t0_snapshot),
			updated_at = NOW()`,
		state.EventID, state.HomeScore, state.AwayScore,
		current, opening, closing, state.IsClosingLocked, t60, t0,
	)
	return err
}

// RecordFinalScore writes back a final score learned during grading so later
// lookups for the same event hit the stored state first. The score guards
// still apply.
func (s *StateStore) RecordFinalScore(ctx context.Context, eventID string, homeScore, awayScore int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+config.MatchStatesTable+` (event_id, home_score, away_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO UPDATE SET
			home_score = GREATEST(`+config.MatchStatesTable+`.home_score, EXCLUDED.home_score),
			away_score = GREATEST(`+config.MatchStatesTable+`.away_score, EXCLUDED.away_score),
			updated_at = NOW()`,
		eventID, homeScore, awayScore,
	)
	if err != nil {
		return fmt.Errorf("record final score %s: %w", eventID, err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE `+config.CanonicalEventsTable+`
		SET status = 'final', updated_at = NOW()
		WHERE id = $1 AND status <> 'final'`,
		eventID,
	)
	return err
}

// MarkEventStatus advances the canonical event status.
func (s *StateStore) MarkEventStatus(ctx context.Context, eventID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+config.CanonicalEventsTable+`
		SET status = $2, updated_at = NOW()
		WHERE id = $1`,
		eventID, status,
	)
	return err
}

func marshalOdds(a *consensus.AnchorLine) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode odds: %w", err)
	}
	return b, nil
}
