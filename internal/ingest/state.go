// Package ingest applies live-state observations to stored event state under
// one-way invariants: scores never regress, opening odds are write-once, the
// closing lock only ever flips false→true, and capture-window snapshots fill
// at most once.
package ingest

import (
	"fmt"
	"time"

	"github.com/oddsmith/anchorline/internal/consensus"
	"github.com/oddsmith/anchorline/internal/metrics"
)

// Snapshot capture windows relative to kickoff.
const (
	t60WindowStart = -75 * time.Minute
	t60WindowEnd   = -45 * time.Minute
	t0WindowStart  = -5 * time.Minute
	t0WindowEnd    = 10 * time.Minute
)

// MatchState is the persisted per-event state.
type MatchState struct {
	EventID         string
	HomeScore       int
	AwayScore       int
	CurrentOdds     *consensus.AnchorLine
	OpeningOdds     *consensus.AnchorLine
	ClosingOdds     *consensus.AnchorLine
	IsClosingLocked bool
	T60Snapshot     *consensus.AnchorLine
	T0Snapshot      *consensus.AnchorLine
}

// Observation is one new look at an event from a provider cycle.
type Observation struct {
	HomeScore  *int
	AwayScore  *int
	Anchor     *consensus.AnchorLine // freshly computed; nil when no quotes
	Live       bool                  // event observed in a live/in-progress state
	Kickoff    time.Time
	ObservedAt time.Time
}

// GuardEvent records one guard rejection for the batch trace.
type GuardEvent struct {
	Field  string
	Detail string
}

// Apply merges an observation into the stored state and returns the guard
// events it triggered. Pure: the decision logic never touches the store, so
// every invariant is unit-testable; the store upserts repeat the same
// predicates in SQL for cross-run safety.
func Apply(state MatchState, obs Observation) (MatchState, []GuardEvent) {
	var guards []GuardEvent

	if obs.HomeScore != nil {
		if *obs.HomeScore < state.HomeScore {
			guards = append(guards, GuardEvent{
				Field:  "home_score",
				Detail: fmt.Sprintf("incoming %d below stored %d", *obs.HomeScore, state.HomeScore),
			})
			metrics.GuardTriggers.WithLabelValues("home_score").Inc()
		} else {
			state.HomeScore = *obs.HomeScore
		}
	}
	if obs.AwayScore != nil {
		if *obs.AwayScore < state.AwayScore {
			guards = append(guards, GuardEvent{
				Field:  "away_score",
				Detail: fmt.Sprintf("incoming %d below stored %d", *obs.AwayScore, state.AwayScore),
			})
			metrics.GuardTriggers.WithLabelValues("away_score").Inc()
		} else {
			state.AwayScore = *obs.AwayScore
		}
	}

	if obs.Anchor != nil {
		state.CurrentOdds = obs.Anchor

		// Opening odds: first observation only.
		if state.OpeningOdds == nil {
			state.OpeningOdds = obs.Anchor
		}

		// Closing lock: first live observation with a usable line.
		if !state.IsClosingLocked && obs.Live && obs.Anchor.HasUsableLine() {
			state.ClosingOdds = obs.Anchor
			state.IsClosingLocked = true
		}

		// Bounded-window snapshots, each slot written at most once.
		offset := obs.ObservedAt.Sub(obs.Kickoff)
		if state.T60Snapshot == nil && offset >= t60WindowStart && offset <= t60WindowEnd {
			state.T60Snapshot = obs.Anchor
		}
		if state.T0Snapshot == nil && offset >= t0WindowStart && offset <= t0WindowEnd {
			state.T0Snapshot = obs.Anchor
		}
	}

	return state, guards
}
