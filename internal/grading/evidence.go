package grading

import (
	"context"
	"log/slog"
	"time"

	"github.com/oddsmith/anchorline/internal/ingest"
	"github.com/oddsmith/anchorline/internal/metrics"
	"github.com/oddsmith/anchorline/internal/retry"
)

// EventRef describes an event for a score lookup: either a direct ID or a
// (teams, date) descriptor. Sources use whichever fields they can join on.
type EventRef struct {
	EventID  string
	Sport    string
	League   string
	HomeName string
	AwayName string
	Date     time.Time
}

// ScoreSource is a read-only final-score capability.
type ScoreSource interface {
	Name() string
	FetchFinalScore(ctx context.Context, ref EventRef) (*FinalScore, error)
}

// stateEvidence is the slice of the match-state store the cascade needs;
// satisfied by *ingest.StateStore.
type stateEvidence interface {
	Get(ctx context.Context, eventID string) (ingest.MatchState, error)
	RecordFinalScore(ctx context.Context, eventID string, homeScore, awayScore int) error
}

// Cascade resolves final-score evidence by trying sources in a fixed order,
// stopping at the first usable result:
//
//	a) primary source joined by event ID
//	b) primary source joined by team names and date
//	c) persisted match state, when the event is final with a real score
//	d) secondary source, whose result is written back into match state
type Cascade struct {
	primary   ScoreSource
	secondary ScoreSource
	states    stateEvidence
	policy    *retry.Policy
	logger    *slog.Logger
}

// NewCascade assembles the evidence cascade. Either source may be nil, in
// which case its tiers are skipped.
func NewCascade(primary, secondary ScoreSource, states stateEvidence, policy *retry.Policy, logger *slog.Logger) *Cascade {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cascade{primary: primary, secondary: secondary, states: states, policy: policy, logger: logger}
}

// Resolve returns the first usable final score and the tier that produced
// it, or nil when every tier comes up empty. Provider errors are retried
// locally and then fall through to the next tier — they never abort grading.
func (c *Cascade) Resolve(ctx context.Context, ref EventRef, eventStatus string) (*FinalScore, string) {
	if c.primary != nil {
		if score := c.fetch(ctx, c.primary, EventRef{EventID: ref.EventID, Sport: ref.Sport, League: ref.League}); score != nil {
			metrics.EvidenceHits.WithLabelValues("primary_id").Inc()
			return score, "primary_id"
		}

		nameRef := ref
		nameRef.EventID = ""
		if score := c.fetch(ctx, c.primary, nameRef); score != nil {
			metrics.EvidenceHits.WithLabelValues("primary_names").Inc()
			return score, "primary_names"
		}
	}

	if c.states != nil {
		if state, err := c.states.Get(ctx, ref.EventID); err == nil {
			stored := FinalScore{HomeScore: state.HomeScore, AwayScore: state.AwayScore, Completed: eventStatus == "final"}
			if stored.Completed && !stored.Degenerate() {
				metrics.EvidenceHits.WithLabelValues("match_state").Inc()
				return &stored, "match_state"
			}
		} else {
			c.logger.Warn("match state read failed", "event_id", ref.EventID, "error", err)
		}
	}

	if c.secondary != nil {
		if score := c.fetch(ctx, c.secondary, ref); score != nil {
			// Write back so the next lookup for this event hits stored state.
			if c.states != nil {
				if err := c.states.RecordFinalScore(ctx, ref.EventID, score.HomeScore, score.AwayScore); err != nil {
					c.logger.Warn("score write-back failed", "event_id", ref.EventID, "error", err)
				}
			}
			metrics.EvidenceHits.WithLabelValues("secondary").Inc()
			return score, "secondary"
		}
	}

	return nil, ""
}

// fetch runs one source under the retry policy and filters out incomplete
// results.
func (c *Cascade) fetch(ctx context.Context, src ScoreSource, ref EventRef) *FinalScore {
	var score *FinalScore
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		score, ferr = src.FetchFinalScore(ctx, ref)
		return ferr
	})
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(src.Name()).Inc()
		c.logger.Warn("score source exhausted retries", "source", src.Name(), "event_id", ref.EventID, "error", err)
		return nil
	}
	if score == nil || !score.Completed {
		return nil
	}
	return score
}
