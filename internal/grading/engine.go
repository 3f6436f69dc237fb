package grading

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oddsmith/anchorline/internal/identity"
	"github.com/oddsmith/anchorline/internal/metrics"
	"github.com/oddsmith/anchorline/internal/trace"
)

// predictionStore is the store surface the engine needs; satisfied by
// *PGPredictionStore.
type predictionStore interface {
	// SelectPending returns picks still awaiting settlement. Terminal rows
	// are never returned.
	SelectPending(ctx context.Context, limit int) ([]Prediction, error)
	// SetTerminal transitions a pick out of PENDING, persisting the
	// evidentiary score. Returns false when the row was already terminal —
	// a pick is graded at most once.
	SetTerminal(ctx context.Context, id string, verdict Verdict, homeScore, awayScore *int) (bool, error)
}

// eventGetter loads canonical events for evidence joins; satisfied by
// *identity.PGStore.
type eventGetter interface {
	GetEvent(ctx context.Context, id string) (*identity.Event, error)
}

// Result tracks the outcome of one grading run.
type Result struct {
	RunID          uuid.UUID
	PicksFound     int
	PicksGraded    int
	PicksEscalated int
	PicksSkipped   int
	PicksFailed    int
	Duration       time.Duration
	Errors         []string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("run=%s found=%d graded=%d escalated=%d skipped=%d failed=%d dur=%s",
		r.RunID, r.PicksFound, r.PicksGraded, r.PicksEscalated,
		r.PicksSkipped, r.PicksFailed, r.Duration.Round(time.Millisecond))
}

// Engine is the grading state machine runner.
type Engine struct {
	preds      predictionStore
	events     eventGetter
	cascade    *Cascade
	parser     LineParser
	tracer     trace.Recorder
	staleAfter time.Duration
	batchLimit int
	workers    int
	logger     *slog.Logger
	now        func() time.Time
}

// NewEngine assembles a grading engine.
func NewEngine(preds predictionStore, events eventGetter, cascade *Cascade, tracer trace.Recorder, staleAfter time.Duration, batchLimit, workers int, logger *slog.Logger) *Engine {
	if staleAfter <= 0 {
		staleAfter = 14 * 24 * time.Hour
	}
	if batchLimit <= 0 {
		batchLimit = 200
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	return &Engine{
		preds:      preds,
		events:     events,
		cascade:    cascade,
		tracer:     tracer,
		staleAfter: staleAfter,
		batchLimit: batchLimit,
		workers:    workers,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes one grading cycle over the pending picks. Only PENDING rows
// are ever selected, and each terminal transition is guarded in the store,
// so an interrupted run can always be re-triggered safely.
func (e *Engine) Run(ctx context.Context) Result {
	start := e.now()
	result := Result{RunID: uuid.New()}
	logger := e.logger.With("run_id", result.RunID)

	pending, err := e.preds.SelectPending(ctx, e.batchLimit)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("select pending: %s", err))
		result.Duration = time.Since(start)
		return result
	}

	result.PicksFound = len(pending)
	if len(pending) == 0 {
		logger.Info("No pending predictions to grade")
		result.Duration = time.Since(start)
		return result
	}

	workers := e.workers
	if workers > len(pending) {
		workers = len(pending)
	}

	ch := make(chan Prediction, len(pending))
	for _, p := range pending {
		ch <- p
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range ch {
				outcome := e.gradeOne(ctx, logger, p)

				mu.Lock()
				switch outcome.status {
				case gradeGraded:
					result.PicksGraded++
				case gradeEscalated:
					result.PicksEscalated++
				case gradeSkipped:
					result.PicksSkipped++
				case gradeFailed:
					result.PicksFailed++
					result.Errors = append(result.Errors, fmt.Sprintf("pick %s: %s", p.ID, outcome.detail))
				}
				mu.Unlock()

				if err := e.tracer.Record(ctx, trace.Row{
					RunID:   result.RunID,
					Kind:    "grade",
					Sport:   p.Sport,
					EventID: p.EventID,
					Outcome: outcome.traceOutcome(),
					Detail:  outcome.detail,
				}); err != nil {
					logger.Warn("trace write failed", "error", err)
				}
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)
	logger.Info("Grading run complete", "summary", result.Summary())
	return result
}

type gradeStatus int

const (
	gradeGraded gradeStatus = iota
	gradeEscalated
	gradeSkipped
	gradeFailed
)

type gradeOutcome struct {
	status gradeStatus
	detail string
}

func (o gradeOutcome) traceOutcome() string {
	switch o.status {
	case gradeFailed:
		return trace.OutcomeError
	case gradeSkipped:
		return trace.OutcomeSkipped
	default:
		return trace.OutcomeOK
	}
}

// gradeOne runs the state machine for a single pick. Every path either
// commits exactly one terminal transition or leaves the row PENDING.
func (e *Engine) gradeOne(ctx context.Context, logger *slog.Logger, p Prediction) gradeOutcome {
	// Staleness escalation runs before the evidence cascade: a pick this old
	// needs an operator, whatever the sources say.
	if e.now().Sub(p.EventTime) > e.staleAfter {
		updated, err := e.preds.SetTerminal(ctx, p.ID, VerdictManualReview, nil, nil)
		if err != nil {
			return gradeOutcome{status: gradeFailed, detail: fmt.Sprintf("escalate: %s", err)}
		}
		if !updated {
			return gradeOutcome{status: gradeSkipped, detail: "already terminal"}
		}
		metrics.Gradings.WithLabelValues(string(VerdictManualReview)).Inc()
		logger.Info("stale pick escalated", "pick_id", p.ID, "event_time", p.EventTime)
		return gradeOutcome{status: gradeEscalated, detail: "stale, escalated to manual review"}
	}

	ev, err := e.events.GetEvent(ctx, p.EventID)
	if err != nil {
		return gradeOutcome{status: gradeFailed, detail: fmt.Sprintf("load event: %s", err)}
	}

	// Gate: a pick without a recognized classification stays PENDING
	// untouched this cycle. Ambiguity is never force-guessed.
	c, ok := e.classify(p, ev)
	if !ok {
		return gradeOutcome{status: gradeSkipped, detail: "unclassifiable pick"}
	}

	ref := EventRef{EventID: p.EventID, Sport: p.Sport, League: p.League, Date: p.EventTime}
	status := ""
	if ev != nil {
		ref.HomeName, ref.AwayName = ev.HomeName, ev.AwayName
		ref.Date = ev.CommenceTime
		status = ev.Status
	}

	score, tier := e.cascade.Resolve(ctx, ref, status)
	if score == nil {
		return gradeOutcome{status: gradeSkipped, detail: "no final-score evidence"}
	}

	e.resolveLine(p, &c)
	verdict, ok := settle(c, *score)
	if !ok {
		return gradeOutcome{status: gradeSkipped, detail: "no resolvable line"}
	}

	updated, err := e.preds.SetTerminal(ctx, p.ID, verdict, &score.HomeScore, &score.AwayScore)
	if err != nil {
		return gradeOutcome{status: gradeFailed, detail: fmt.Sprintf("persist verdict: %s", err)}
	}
	if !updated {
		return gradeOutcome{status: gradeSkipped, detail: "already terminal"}
	}

	metrics.Gradings.WithLabelValues(string(verdict)).Inc()
	logger.Info("pick graded",
		"pick_id", p.ID, "verdict", verdict, "evidence", tier,
		"home_score", score.HomeScore, "away_score", score.AwayScore)
	return gradeOutcome{status: gradeGraded, detail: fmt.Sprintf("%s via %s", verdict, tier)}
}

// classify resolves the pick's bet type and side: structured metadata first,
// then the raw columns, then free-text parsing as the explicit fallback.
func (e *Engine) classify(p Prediction, ev *identity.Event) (Classification, bool) {
	if p.Metadata != nil {
		if _, btOK := parseBetType(string(p.Metadata.BetType)); btOK {
			if _, sideOK := parseSide(string(p.Metadata.Side)); sideOK {
				return Classification{BetType: p.Metadata.BetType, Side: p.Metadata.Side, Line: p.Metadata.Line}, true
			}
		}
	}

	if bt, btOK := parseBetType(p.BetType); btOK {
		if side, sideOK := parseSide(p.Side); sideOK {
			return Classification{BetType: bt, Side: side}, true
		}
	}

	if ev != nil {
		return e.parser.ClassifyText(p.Description, ev.HomeName, ev.AwayName)
	}
	return Classification{}, false
}

// resolveLine fills a missing spread/total line: free-text extraction first,
// then the stored analyzed line, sign-adjusted for the picked side (the
// stored line is home-relative).
func (e *Engine) resolveLine(p Prediction, c *Classification) {
	if c.Line != nil || c.BetType == BetMoneyline {
		return
	}
	if line, ok := e.parser.ExtractLine(p.Description); ok {
		c.Line = &line
		return
	}
	if p.Line != nil {
		v := *p.Line
		if c.BetType == BetSpread && c.Side == SideAway {
			v = -v
		}
		c.Line = &v
	}
}
