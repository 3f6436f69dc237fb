// Package identity maps (home, away, commence time, league) tuples from any
// provider onto one canonical event ID, backed by a persistent alias table
// and a deterministic fallback ID generator.
package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is the canonical, provider-independent representation of one
// real-world sporting event. The ID is immutable once issued; names and
// commence time may be corrected by later observations.
type Event struct {
	ID           string
	Sport        string
	League       string
	HomeName     string
	AwayName     string
	CommenceTime time.Time
	Status       string
}

// Store is the slice of the backing store the resolver needs.
type Store interface {
	// CandidateEvents returns events in a league whose commence time falls
	// inside [from, to].
	CandidateEvents(ctx context.Context, league string, from, to time.Time) ([]Event, error)
	// AliasLookup returns the healed canonical name for a raw provider name.
	AliasLookup(ctx context.Context, league, rawName string) (string, bool, error)
	// HealAlias idempotently records rawName → canonicalName.
	HealAlias(ctx context.Context, league, rawName, canonicalName string) error
	// UpsertEvent writes a canonical event; the ID column never changes.
	UpsertEvent(ctx context.Context, ev Event) error
}

// RunContext carries per-invocation state: the alias cache and the set of
// identity gaps already logged this run. Built at the start of a batch and
// discarded at the end; there is no process-wide cache. Safe for use from
// concurrent batch workers.
type RunContext struct {
	logger     *slog.Logger
	mu         sync.Mutex
	aliases    map[string]string
	aliasMiss  map[string]bool
	loggedGaps map[string]bool
}

// NewRunContext creates the per-run context.
func NewRunContext(logger *slog.Logger) *RunContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &RunContext{
		logger:     logger,
		aliases:    make(map[string]string),
		aliasMiss:  make(map[string]bool),
		loggedGaps: make(map[string]bool),
	}
}

// cachedAlias returns the canonical name cached for key this run, if any.
func (rc *RunContext) cachedAlias(key string) (string, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	canonical, ok := rc.aliases[key]
	return canonical, ok
}

// storeAlias caches a healed or looked-up alias for the rest of the run.
func (rc *RunContext) storeAlias(key, canonical string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.aliases[key] = canonical
	delete(rc.aliasMiss, key)
}

// aliasMissed reports whether a lookup for key already came back empty.
func (rc *RunContext) aliasMissed(key string) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.aliasMiss[key]
}

// markAliasMiss records an empty lookup so it is not repeated this run.
func (rc *RunContext) markAliasMiss(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.aliasMiss[key] = true
}

// LogGapOnce logs an unresolved identity at most once per (event, provider)
// pair for this run, so a provider outage cannot storm the logs.
func (rc *RunContext) LogGapOnce(provider, eventKey string, attrs ...any) {
	key := provider + "|" + eventKey
	rc.mu.Lock()
	if rc.loggedGaps[key] {
		rc.mu.Unlock()
		return
	}
	rc.loggedGaps[key] = true
	rc.mu.Unlock()
	rc.logger.Warn("unresolved event identity", append([]any{"provider", provider, "event", eventKey}, attrs...)...)
}
