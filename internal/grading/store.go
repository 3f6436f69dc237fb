package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsmith/anchorline/internal/config"
)

// PGPredictionStore implements predictionStore on Postgres.
type PGPredictionStore struct {
	pool *pgxpool.Pool
}

// NewPGPredictionStore wraps a connection pool.
func NewPGPredictionStore(pool *pgxpool.Pool) *PGPredictionStore {
	return &PGPredictionStore{pool: pool}
}

// SelectPending returns up to limit PENDING picks, oldest events first.
func (s *PGPredictionStore) SelectPending(ctx context.Context, limit int) ([]Prediction, error) {
	rows, err := s.pool.Query(ctx, "pending_predictions", limit)
	if err != nil {
		return nil, fmt.Errorf("query pending predictions: %w", err)
	}
	defer rows.Close()

	var picks []Prediction
	for rows.Next() {
		var (
			p       Prediction
			betType *string
			side    *string
			metaRaw []byte
		)
		if err := rows.Scan(
			&p.ID, &p.EventID, &p.Sport, &p.League,
			&betType, &side, &p.Line, &p.Description, &metaRaw, &p.EventTime,
		); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if betType != nil {
			p.BetType = *betType
		}
		if side != nil {
			p.Side = *side
		}
		if len(metaRaw) > 0 {
			var m Metadata
			if err := json.Unmarshal(metaRaw, &m); err == nil {
				p.Metadata = &m
			}
			// A malformed metadata blob falls back to columns/text parsing.
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// SetTerminal transitions a PENDING pick to a terminal verdict, persisting
// the evidentiary score for replay. The WHERE clause is the at-most-once
// guard: a row already terminal is left untouched and false is returned.
func (s *PGPredictionStore) SetTerminal(ctx context.Context, id string, verdict Verdict, homeScore, awayScore *int) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE `+config.PredictionsTable+`
		SET result = $2,
			graded_home_score = $3,
			graded_away_score = $4,
			graded_at = $5
		WHERE id = $1 AND result = 'PENDING'`,
		id, string(verdict), homeScore, awayScore, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("set terminal %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
