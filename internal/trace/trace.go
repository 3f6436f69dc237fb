// Package trace persists one structured row per event outcome in a batch
// run, keyed by a run UUID, so an interrupted or misbehaving run can be
// reviewed after the fact.
package trace

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oddsmith/anchorline/internal/config"
)

// Outcomes recorded per event.
const (
	OutcomeOK             = "ok"
	OutcomeSkipped        = "skipped"
	OutcomeGuardTriggered = "guard_triggered"
	OutcomeError          = "error"
)

// Row is one per-event trace entry.
type Row struct {
	RunID   uuid.UUID
	Kind    string // "ingest" or "grade"
	Sport   string
	EventID string
	Outcome string
	Detail  string
}

// Recorder writes trace rows. A nil-safe no-op implementation is available
// for tests via Discard.
type Recorder interface {
	Record(ctx context.Context, row Row) error
}

// PGRecorder persists rows to the batch_logs table.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder wraps a connection pool.
func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

// Record inserts one trace row. Trace writes are best-effort observability;
// callers treat failures as non-fatal.
func (r *PGRecorder) Record(ctx context.Context, row Row) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO `+config.BatchLogsTable+` (run_id, kind, sport, event_id, outcome, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.RunID, row.Kind, row.Sport, row.EventID, row.Outcome, row.Detail, time.Now().UTC(),
	)
	return err
}

// Discard is a Recorder that drops every row.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(context.Context, Row) error { return nil }
