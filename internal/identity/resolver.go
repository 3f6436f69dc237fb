package identity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/oddsmith/anchorline/internal/metrics"
	"github.com/oddsmith/anchorline/internal/names"
)

// Resolver resolves provider tuples against the canonical event table.
type Resolver struct {
	store     Store
	tolerance time.Duration
}

// NewResolver creates a resolver. tolerance bounds the commence-time window
// that absorbs provider clock skew.
func NewResolver(store Store, tolerance time.Duration) *Resolver {
	if tolerance <= 0 {
		tolerance = 30 * time.Minute
	}
	return &Resolver{store: store, tolerance: tolerance}
}

// Resolve maps a provider tuple to a canonical event ID. Returns the empty
// string when no stored event qualifies — it never fabricates a match and
// never fails on bad input, only on store errors.
func (r *Resolver) Resolve(ctx context.Context, rc *RunContext, homeName, awayName string, commence time.Time, league string) (string, error) {
	ev, err := r.match(ctx, rc, homeName, awayName, commence, league)
	if err != nil || ev == nil {
		return "", err
	}
	return ev.ID, nil
}

// match finds the stored event for a provider tuple, or nil when none
// qualifies.
func (r *Resolver) match(ctx context.Context, rc *RunContext, homeName, awayName string, commence time.Time, league string) (*Event, error) {
	homeNorm := names.Normalize(homeName)
	awayNorm := names.Normalize(awayName)
	if homeNorm == "" || awayNorm == "" {
		return nil, nil
	}

	homeCands, err := r.candidateNames(ctx, rc, league, homeName, homeNorm)
	if err != nil {
		return nil, err
	}
	awayCands, err := r.candidateNames(ctx, rc, league, awayName, awayNorm)
	if err != nil {
		return nil, err
	}

	events, err := r.store.CandidateEvents(ctx, league, commence.Add(-r.tolerance), commence.Add(r.tolerance))
	if err != nil {
		return nil, fmt.Errorf("candidate events: %w", err)
	}

	// Stable order: earliest commence-time distance wins.
	sort.SliceStable(events, func(i, j int) bool {
		return absDuration(events[i].CommenceTime.Sub(commence)) < absDuration(events[j].CommenceTime.Sub(commence))
	})

	for i := range events {
		if matchesAny(names.Normalize(events[i].HomeName), homeCands) && matchesAny(names.Normalize(events[i].AwayName), awayCands) {
			metrics.IdentityResolutions.WithLabelValues("matched").Inc()
			return &events[i], nil
		}
	}

	metrics.IdentityResolutions.WithLabelValues("unresolved").Inc()
	return nil, nil
}

// HealAlias idempotently records that a provider's raw name maps to the
// canonical name already stored on a resolved event. Called whenever the two
// differ, so future lookups for the same raw name skip the fuzzy path.
func (r *Resolver) HealAlias(ctx context.Context, rc *RunContext, league, rawName, canonicalName string) error {
	if rawName == canonicalName || rawName == "" || canonicalName == "" {
		return nil
	}
	if err := r.store.HealAlias(ctx, league, rawName, canonicalName); err != nil {
		return fmt.Errorf("heal alias %q: %w", rawName, err)
	}
	rc.storeAlias(aliasKey(league, rawName), canonicalName)
	metrics.IdentityResolutions.WithLabelValues("alias_healed").Inc()
	return nil
}

// EnsureEvent resolves the tuple or falls back to a deterministic ID,
// upserting the canonical row either way. A matched event keeps its stored
// display names: raw provider variants become aliases for the caller to
// heal, never overwrites of the canonical row.
func (r *Resolver) EnsureEvent(ctx context.Context, rc *RunContext, sport, league, homeName, awayName string, commence time.Time) (Event, error) {
	matched, err := r.match(ctx, rc, homeName, awayName, commence, league)
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Sport:        sport,
		League:       league,
		HomeName:     homeName,
		AwayName:     awayName,
		CommenceTime: commence,
		Status:       "scheduled",
	}
	if matched != nil {
		ev.ID = matched.ID
		ev.HomeName = matched.HomeName
		ev.AwayName = matched.AwayName
	} else {
		ev.ID = DeterministicID(homeName, awayName, commence, league)
		metrics.IdentityResolutions.WithLabelValues("fallback").Inc()
	}

	if err := r.store.UpsertEvent(ctx, ev); err != nil {
		return Event{}, fmt.Errorf("upsert event %s: %w", ev.ID, err)
	}
	return ev, nil
}

// candidateNames returns the normalized names a stored event may be filed
// under: the raw name itself plus any healed alias, consulted through the
// per-run cache first.
func (r *Resolver) candidateNames(ctx context.Context, rc *RunContext, league, rawName, rawNorm string) ([]string, error) {
	cands := []string{rawNorm}
	key := aliasKey(league, rawName)

	if canonical, ok := rc.cachedAlias(key); ok {
		return append(cands, names.Normalize(canonical)), nil
	}
	if rc.aliasMissed(key) {
		return cands, nil
	}

	canonical, found, err := r.store.AliasLookup(ctx, league, rawName)
	if err != nil {
		return nil, fmt.Errorf("alias lookup %q: %w", rawName, err)
	}
	if !found {
		rc.markAliasMiss(key)
		return cands, nil
	}
	rc.storeAlias(key, canonical)
	return append(cands, names.Normalize(canonical)), nil
}

func matchesAny(stored string, candidates []string) bool {
	for _, c := range candidates {
		if names.Match(stored, c) {
			return true
		}
	}
	return false
}

func aliasKey(league, raw string) string { return league + "|" + raw }

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
