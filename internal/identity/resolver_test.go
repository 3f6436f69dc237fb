package identity

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Store for resolver tests.
type fakeStore struct {
	events       []Event
	aliases      map[string]string // league|raw -> canonical
	aliasLookups int
	healed       []string
	upserted     []Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{aliases: make(map[string]string)}
}

func (s *fakeStore) CandidateEvents(_ context.Context, league string, from, to time.Time) ([]Event, error) {
	var out []Event
	for _, ev := range s.events {
		if ev.League == league && !ev.CommenceTime.Before(from) && !ev.CommenceTime.After(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *fakeStore) AliasLookup(_ context.Context, league, rawName string) (string, bool, error) {
	s.aliasLookups++
	c, ok := s.aliases[league+"|"+rawName]
	return c, ok, nil
}

func (s *fakeStore) HealAlias(_ context.Context, league, rawName, canonicalName string) error {
	s.healed = append(s.healed, rawName)
	s.aliases[league+"|"+rawName] = canonicalName
	return nil
}

func (s *fakeStore) UpsertEvent(_ context.Context, ev Event) error {
	s.upserted = append(s.upserted, ev)
	return nil
}

var kickoff = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func seededStore() *fakeStore {
	s := newFakeStore()
	s.events = []Event{
		{ID: "evt_a", League: "NBA", HomeName: "Los Angeles Lakers", AwayName: "Boston Celtics", CommenceTime: kickoff},
		{ID: "evt_b", League: "NBA", HomeName: "Golden State Warriors", AwayName: "Phoenix Suns", CommenceTime: kickoff},
	}
	return s
}

func testResolver(s Store) (*Resolver, *RunContext) {
	return NewResolver(s, 30*time.Minute), NewRunContext(slog.Default())
}

func TestResolveExactMatch(t *testing.T) {
	r, rc := testResolver(seededStore())
	id, err := r.Resolve(context.Background(), rc, "Los Angeles Lakers", "Boston Celtics", kickoff, "NBA")
	require.NoError(t, err)
	assert.Equal(t, "evt_a", id)
}

func TestResolveIsIdempotent(t *testing.T) {
	r, rc := testResolver(seededStore())
	first, err := r.Resolve(context.Background(), rc, "LA Lakers", "Celtics", kickoff, "NBA")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), rc, "LA Lakers", "Celtics", kickoff, "NBA")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveContainmentAndSkew(t *testing.T) {
	r, rc := testResolver(seededStore())
	// Provider clock five minutes off, shortened names.
	id, err := r.Resolve(context.Background(), rc, "Lakers", "Celtics", kickoff.Add(5*time.Minute), "NBA")
	require.NoError(t, err)
	assert.Equal(t, "evt_a", id)
}

func TestResolveOutsideToleranceReturnsEmpty(t *testing.T) {
	r, rc := testResolver(seededStore())
	id, err := r.Resolve(context.Background(), rc, "Los Angeles Lakers", "Boston Celtics", kickoff.Add(2*time.Hour), "NBA")
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestResolvePrefersClosestCommenceTime(t *testing.T) {
	s := newFakeStore()
	// Same matchup listed twice (doubleheader); the closer one must win.
	s.events = []Event{
		{ID: "evt_late", League: "MLB", HomeName: "New York Yankees", AwayName: "Boston Red Sox", CommenceTime: kickoff.Add(25 * time.Minute)},
		{ID: "evt_near", League: "MLB", HomeName: "New York Yankees", AwayName: "Boston Red Sox", CommenceTime: kickoff.Add(2 * time.Minute)},
	}
	r, rc := testResolver(s)
	id, err := r.Resolve(context.Background(), rc, "Yankees", "Red Sox", kickoff, "MLB")
	require.NoError(t, err)
	assert.Equal(t, "evt_near", id)
}

func TestResolveUsesHealedAlias(t *testing.T) {
	s := seededStore()
	s.aliases["NBA|GSW"] = "Golden State Warriors"
	s.aliases["NBA|PHX"] = "Phoenix Suns"
	r, rc := testResolver(s)

	id, err := r.Resolve(context.Background(), rc, "GSW", "PHX", kickoff, "NBA")
	require.NoError(t, err)
	assert.Equal(t, "evt_b", id)
}

func TestAliasLookupsCachedPerRun(t *testing.T) {
	s := seededStore()
	r, rc := testResolver(s)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), rc, "Lakers", "Celtics", kickoff, "NBA")
		require.NoError(t, err)
	}
	// Two raw names, one store lookup each regardless of repeat resolutions.
	assert.Equal(t, 2, s.aliasLookups)
}

func TestHealAliasSkipsIdenticalNames(t *testing.T) {
	s := seededStore()
	r, rc := testResolver(s)

	require.NoError(t, r.HealAlias(context.Background(), rc, "NBA", "Los Angeles Lakers", "Los Angeles Lakers"))
	assert.Empty(t, s.healed)

	require.NoError(t, r.HealAlias(context.Background(), rc, "NBA", "LA Lakers", "Los Angeles Lakers"))
	assert.Equal(t, []string{"LA Lakers"}, s.healed)
}

func TestEnsureEventKeepsStoredDisplayNames(t *testing.T) {
	s := seededStore()
	r, rc := testResolver(s)

	ev, err := r.EnsureEvent(context.Background(), rc, "NBA", "NBA", "Lakers", "Celtics", kickoff)
	require.NoError(t, err)
	assert.Equal(t, "evt_a", ev.ID)
	assert.Equal(t, "Los Angeles Lakers", ev.HomeName, "stored canonical name wins over the raw variant")
	assert.Equal(t, "Boston Celtics", ev.AwayName)

	// The upsert carries the stored names, so the canonical row is never
	// shortened by a provider abbreviation.
	require.Len(t, s.upserted, 1)
	assert.Equal(t, "Los Angeles Lakers", s.upserted[0].HomeName)
	assert.Equal(t, "Boston Celtics", s.upserted[0].AwayName)
}

func TestEnsureEventFallsBackDeterministically(t *testing.T) {
	s := newFakeStore()
	r, rc := testResolver(s)

	ev1, err := r.EnsureEvent(context.Background(), rc, "NBA", "NBA", "Utah Jazz", "Denver Nuggets", kickoff)
	require.NoError(t, err)
	ev2, err := r.EnsureEvent(context.Background(), rc, "NBA", "NBA", "Utah Jazz", "Denver Nuggets", kickoff)
	require.NoError(t, err)

	assert.Equal(t, ev1.ID, ev2.ID)
	assert.Len(t, s.upserted, 2)
}

func TestLogGapOnceDeduplicates(t *testing.T) {
	rc := NewRunContext(slog.Default())
	rc.LogGapOnce("oddsapi", "NBA|jazz|nuggets")
	rc.LogGapOnce("oddsapi", "NBA|jazz|nuggets")
	assert.Len(t, rc.loggedGaps, 1)
}
