package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oddsmith/anchorline/internal/config"
	"github.com/oddsmith/anchorline/internal/consensus"
	"github.com/oddsmith/anchorline/internal/identity"
	"github.com/oddsmith/anchorline/internal/retry"
	"github.com/oddsmith/anchorline/internal/trace"
)

// ProviderEvent is one raw event payload from an upstream provider, already
// parsed by the service layer or a provider client.
type ProviderEvent struct {
	Provider     string
	Sport        string
	League       string
	HomeName     string
	AwayName     string
	CommenceTime time.Time
	Live         bool
	Completed    bool
	HomeScore    *int
	AwayScore    *int
	Quotes       []consensus.BookmakerQuote
}

// EventSource supplies provider events for one sport.
type EventSource interface {
	FetchEvents(ctx context.Context, sport string) ([]ProviderEvent, error)
}

// stateStore is the store surface the runner needs; satisfied by *StateStore.
type stateStore interface {
	Get(ctx context.Context, eventID string) (MatchState, error)
	Upsert(ctx context.Context, state MatchState) error
	MarkEventStatus(ctx context.Context, eventID, status string) error
}

// Result tracks the outcome of one ingestion run.
type Result struct {
	RunID           uuid.UUID
	EventsFound     int
	EventsProcessed int
	EventsSucceeded int
	EventsSkipped   int
	EventsFailed    int
	GuardTriggers   int
	Duration        time.Duration
	Errors          []string
}

// Summary returns a human-readable summary.
func (r *Result) Summary() string {
	return fmt.Sprintf("run=%s found=%d processed=%d succeeded=%d skipped=%d failed=%d guards=%d dur=%s",
		r.RunID, r.EventsFound, r.EventsProcessed, r.EventsSucceeded,
		r.EventsSkipped, r.EventsFailed, r.GuardTriggers, r.Duration.Round(time.Millisecond))
}

// Runner executes one ingestion cycle for a sport: fetch provider events,
// resolve identity, build the anchor line, apply the monotonicity guard, and
// persist. One event's failure never aborts the batch.
type Runner struct {
	source   EventSource
	resolver *identity.Resolver
	states   stateStore
	tracer   trace.Recorder
	policy   *retry.Policy
	workers  int
	logger   *slog.Logger
}

// NewRunner assembles an ingestion runner.
func NewRunner(source EventSource, resolver *identity.Resolver, states stateStore, tracer trace.Recorder, policy *retry.Policy, workers int, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = trace.Discard
	}
	return &Runner{
		source:   source,
		resolver: resolver,
		states:   states,
		tracer:   tracer,
		policy:   policy,
		workers:  workers,
		logger:   logger,
	}
}

// Run executes one ingestion cycle. The run context (alias cache, gap log
// dedup) lives exactly as long as this call.
func (r *Runner) Run(ctx context.Context, sport string) Result {
	start := time.Now()
	result := Result{RunID: uuid.New()}
	logger := r.logger.With("run_id", result.RunID, "sport", sport)

	var events []ProviderEvent
	err := r.policy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		events, ferr = r.source.FetchEvents(ctx, sport)
		return ferr
	})
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("fetch events: %s", err))
		result.Duration = time.Since(start)
		return result
	}

	result.EventsFound = len(events)
	if len(events) == 0 {
		logger.Info("No provider events to ingest")
		result.Duration = time.Since(start)
		return result
	}

	rc := identity.NewRunContext(logger)
	sportCfg := config.SportFor(sport)

	workers := r.workers
	if workers > len(events) {
		workers = len(events)
	}

	ch := make(chan ProviderEvent, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range ch {
				outcome := r.processEvent(ctx, rc, sportCfg, ev)

				mu.Lock()
				result.EventsProcessed++
				result.GuardTriggers += outcome.guardCount
				switch outcome.status {
				case trace.OutcomeOK, trace.OutcomeGuardTriggered:
					result.EventsSucceeded++
				case trace.OutcomeSkipped:
					result.EventsSkipped++
				default:
					result.EventsFailed++
					result.Errors = append(result.Errors, fmt.Sprintf("%s vs %s: %s", ev.HomeName, ev.AwayName, outcome.detail))
				}
				mu.Unlock()

				if err := r.tracer.Record(ctx, trace.Row{
					RunID:   result.RunID,
					Kind:    "ingest",
					Sport:   sport,
					EventID: outcome.eventID,
					Outcome: outcome.status,
					Detail:  outcome.detail,
				}); err != nil {
					logger.Warn("trace write failed", "error", err)
				}
			}
		}()
	}

	wg.Wait()
	result.Duration = time.Since(start)
	logger.Info("Ingestion run complete", "summary", result.Summary())
	return result
}

type eventOutcome struct {
	eventID    string
	status     string
	detail     string
	guardCount int
}

// processEvent handles a single provider event end to end. Errors are
// contained here — the caller only aggregates them.
func (r *Runner) processEvent(ctx context.Context, rc *identity.RunContext, sportCfg config.SportConfig, pe ProviderEvent) eventOutcome {
	eventKey := fmt.Sprintf("%s|%s|%s", pe.League, pe.HomeName, pe.AwayName)

	if strings.TrimSpace(pe.HomeName) == "" || strings.TrimSpace(pe.AwayName) == "" || pe.CommenceTime.IsZero() {
		rc.LogGapOnce(pe.Provider, eventKey, "reason", "unusable identity tuple")
		return eventOutcome{status: trace.OutcomeSkipped, detail: "unusable identity tuple"}
	}

	ev, err := r.resolver.EnsureEvent(ctx, rc, pe.Sport, pe.League, pe.HomeName, pe.AwayName, pe.CommenceTime)
	if err != nil {
		rc.LogGapOnce(pe.Provider, eventKey, "error", err.Error())
		return eventOutcome{status: trace.OutcomeError, detail: fmt.Sprintf("resolve: %s", err)}
	}

	// Heal aliases when the provider's raw names differ from the stored
	// canonical names.
	if err := r.resolver.HealAlias(ctx, rc, pe.League, pe.HomeName, ev.HomeName); err != nil {
		r.logger.Warn("alias heal failed", "raw", pe.HomeName, "error", err)
	}
	if err := r.resolver.HealAlias(ctx, rc, pe.League, pe.AwayName, ev.AwayName); err != nil {
		r.logger.Warn("alias heal failed", "raw", pe.AwayName, "error", err)
	}

	var anchor *consensus.AnchorLine
	if len(pe.Quotes) > 0 {
		built := consensus.Build(pe.Quotes, ev.HomeName, ev.AwayName, sportCfg)
		anchor = &built
	}

	state, err := r.states.Get(ctx, ev.ID)
	if err != nil {
		return eventOutcome{eventID: ev.ID, status: trace.OutcomeError, detail: fmt.Sprintf("load state: %s", err)}
	}

	next, guards := Apply(state, Observation{
		HomeScore:  pe.HomeScore,
		AwayScore:  pe.AwayScore,
		Anchor:     anchor,
		Live:       pe.Live,
		Kickoff:    ev.CommenceTime,
		ObservedAt: time.Now().UTC(),
	})

	// Persistence failures after the retry budget are fatal for this event
	// only, never for the batch.
	if err := r.policy.Do(ctx, func(ctx context.Context) error {
		return r.states.Upsert(ctx, next)
	}); err != nil {
		return eventOutcome{eventID: ev.ID, status: trace.OutcomeError, detail: fmt.Sprintf("persist state: %s", err)}
	}

	switch {
	case pe.Completed:
		if err := r.states.MarkEventStatus(ctx, ev.ID, "final"); err != nil {
			r.logger.Warn("status update failed", "event_id", ev.ID, "error", err)
		}
	case pe.Live:
		if err := r.states.MarkEventStatus(ctx, ev.ID, "live"); err != nil {
			r.logger.Warn("status update failed", "event_id", ev.ID, "error", err)
		}
	}

	if len(guards) > 0 {
		details := make([]string, len(guards))
		for i, g := range guards {
			details[i] = g.Field + ": " + g.Detail
			r.logger.Warn("monotonicity guard triggered", "event_id", ev.ID, "field", g.Field, "detail", g.Detail)
		}
		return eventOutcome{eventID: ev.ID, status: trace.OutcomeGuardTriggered, detail: strings.Join(details, "; "), guardCount: len(guards)}
	}

	return eventOutcome{eventID: ev.ID, status: trace.OutcomeOK}
}
