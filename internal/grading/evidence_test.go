package grading

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/anchorline/internal/ingest"
	"github.com/oddsmith/anchorline/internal/retry"
)

// fakeSource replays canned responses and records the refs it was asked for.
type fakeSource struct {
	name    string
	byID    map[string]*FinalScore
	byNames map[string]*FinalScore // key home|away
	err     error
	calls   int
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) FetchFinalScore(_ context.Context, ref EventRef) (*FinalScore, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if ref.EventID != "" {
		return s.byID[ref.EventID], nil
	}
	return s.byNames[ref.HomeName+"|"+ref.AwayName], nil
}

type fakeStateEvidence struct {
	states    map[string]ingest.MatchState
	writeback []string
}

func (s *fakeStateEvidence) Get(_ context.Context, eventID string) (ingest.MatchState, error) {
	return s.states[eventID], nil
}

func (s *fakeStateEvidence) RecordFinalScore(_ context.Context, eventID string, home, away int) error {
	s.writeback = append(s.writeback, eventID)
	st := s.states[eventID]
	st.EventID, st.HomeScore, st.AwayScore = eventID, home, away
	s.states[eventID] = st
	return nil
}

func cascadePolicy() *retry.Policy { return retry.New(2, time.Millisecond, 5*time.Millisecond) }

var testRef = EventRef{
	EventID:  "evt_a",
	Sport:    "NBA",
	League:   "NBA",
	HomeName: "Los Angeles Lakers",
	AwayName: "Boston Celtics",
	Date:     time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC),
}

func TestCascadeDirectIDJoinWinsFirst(t *testing.T) {
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 95, Completed: true},
	}}
	c := NewCascade(primary, nil, nil, cascadePolicy(), nil)

	score, tier := c.Resolve(context.Background(), testRef, "live")
	require.NotNil(t, score)
	assert.Equal(t, "primary_id", tier)
	assert.Equal(t, 101, score.HomeScore)
}

func TestCascadeFallsBackToNameJoin(t *testing.T) {
	primary := &fakeSource{name: "oddsapi", byNames: map[string]*FinalScore{
		"Los Angeles Lakers|Boston Celtics": {HomeScore: 99, AwayScore: 90, Completed: true},
	}}
	c := NewCascade(primary, nil, nil, cascadePolicy(), nil)

	score, tier := c.Resolve(context.Background(), testRef, "live")
	require.NotNil(t, score)
	assert.Equal(t, "primary_names", tier)
}

func TestCascadeUsesStoredStateWhenFinal(t *testing.T) {
	primary := &fakeSource{name: "oddsapi", err: errors.New("timeout")}
	states := &fakeStateEvidence{states: map[string]ingest.MatchState{
		"evt_a": {EventID: "evt_a", HomeScore: 110, AwayScore: 104},
	}}
	c := NewCascade(primary, nil, states, cascadePolicy(), nil)

	score, tier := c.Resolve(context.Background(), testRef, "final")
	require.NotNil(t, score)
	assert.Equal(t, "match_state", tier)
	assert.Equal(t, 110, score.HomeScore)
	assert.Equal(t, 4, primary.calls, "both primary tiers retried before falling through")
}

func TestCascadeRejectsDegenerateStoredScore(t *testing.T) {
	states := &fakeStateEvidence{states: map[string]ingest.MatchState{
		"evt_a": {EventID: "evt_a"}, // 0-0
	}}
	secondary := &fakeSource{name: "espn", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 2, AwayScore: 0, Completed: true},
	}}
	c := NewCascade(nil, secondary, states, cascadePolicy(), nil)

	score, tier := c.Resolve(context.Background(), testRef, "final")
	require.NotNil(t, score)
	assert.Equal(t, "secondary", tier)
	assert.Equal(t, []string{"evt_a"}, states.writeback, "secondary result is written back to match state")
}

func TestCascadeIgnoresIncompleteScores(t *testing.T) {
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 55, AwayScore: 48, Completed: false},
	}}
	c := NewCascade(primary, nil, nil, cascadePolicy(), nil)

	score, tier := c.Resolve(context.Background(), testRef, "live")
	assert.Nil(t, score)
	assert.Equal(t, "", tier)
}
