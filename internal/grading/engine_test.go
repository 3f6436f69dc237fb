package grading

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/anchorline/internal/identity"
)

// --------------------------------------------------------------------------
// Fakes
// --------------------------------------------------------------------------

type terminalWrite struct {
	verdict   Verdict
	homeScore *int
	awayScore *int
}

type fakePredStore struct {
	mu       sync.Mutex
	pending  []Prediction
	terminal map[string]terminalWrite
}

func newFakePredStore(pending ...Prediction) *fakePredStore {
	return &fakePredStore{pending: pending, terminal: make(map[string]terminalWrite)}
}

func (s *fakePredStore) SelectPending(context.Context, int) ([]Prediction, error) {
	return s.pending, nil
}

func (s *fakePredStore) SetTerminal(_ context.Context, id string, verdict Verdict, home, away *int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.terminal[id]; done {
		return false, nil
	}
	s.terminal[id] = terminalWrite{verdict: verdict, homeScore: home, awayScore: away}
	return true, nil
}

type fakeEvents struct {
	events map[string]*identity.Event
}

func (f *fakeEvents) GetEvent(_ context.Context, id string) (*identity.Event, error) {
	return f.events[id], nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var gameTime = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func lakersEvent() *fakeEvents {
	return &fakeEvents{events: map[string]*identity.Event{
		"evt_a": {
			ID: "evt_a", Sport: "NBA", League: "NBA",
			HomeName: "Los Angeles Lakers", AwayName: "Boston Celtics",
			CommenceTime: gameTime, Status: "final",
		},
	}}
}

func testEngine(preds predictionStore, events eventGetter, cascade *Cascade) *Engine {
	e := NewEngine(preds, events, cascade, nil, 14*24*time.Hour, 100, 2, nil)
	e.now = func() time.Time { return gameTime.Add(6 * time.Hour) }
	return e
}

func spreadPick(id string, line float64) Prediction {
	return Prediction{
		ID: id, EventID: "evt_a", Sport: "NBA", League: "NBA",
		Metadata:  &Metadata{BetType: BetSpread, Side: SideHome, Line: &line},
		EventTime: gameTime,
	}
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestEngineGradesSpreadPick(t *testing.T) {
	preds := newFakePredStore(spreadPick("p1", -4.5))
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 95, Completed: true},
	}}
	e := testEngine(preds, lakersEvent(), NewCascade(primary, nil, nil, cascadePolicy(), nil))

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksGraded)
	w := preds.terminal["p1"]
	assert.Equal(t, VerdictWin, w.verdict)
	require.NotNil(t, w.homeScore)
	assert.Equal(t, 101, *w.homeScore, "evidentiary score is persisted for replay")
	assert.Equal(t, 95, *w.awayScore)
}

func TestEngineEscalatesStalePicks(t *testing.T) {
	old := spreadPick("p1", -4.5)
	old.EventTime = gameTime.Add(-20 * 24 * time.Hour)
	preds := newFakePredStore(old)

	// No evidence source resolves anything.
	e := testEngine(preds, lakersEvent(), NewCascade(nil, nil, nil, cascadePolicy(), nil))
	e.now = func() time.Time { return gameTime }

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksEscalated)
	w := preds.terminal["p1"]
	assert.Equal(t, VerdictManualReview, w.verdict)
	assert.Nil(t, w.homeScore)
}

func TestEngineLeavesUnclassifiablePicksPending(t *testing.T) {
	vague := Prediction{
		ID: "p1", EventID: "evt_a", Sport: "NBA", League: "NBA",
		Description: "feeling good about this one",
		EventTime:   gameTime,
	}
	preds := newFakePredStore(vague)
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 95, Completed: true},
	}}
	e := testEngine(preds, lakersEvent(), NewCascade(primary, nil, nil, cascadePolicy(), nil))

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksSkipped)
	assert.Empty(t, preds.terminal, "ambiguous picks are never force-graded")
}

func TestEngineLeavesPickPendingWithoutEvidence(t *testing.T) {
	preds := newFakePredStore(spreadPick("p1", -4.5))
	e := testEngine(preds, lakersEvent(), NewCascade(&fakeSource{name: "oddsapi"}, nil, nil, cascadePolicy(), nil))

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksSkipped)
	assert.Empty(t, preds.terminal)
}

func TestEngineGradesAtMostOnce(t *testing.T) {
	preds := newFakePredStore(spreadPick("p1", -4.5))
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 95, Completed: true},
	}}
	e := testEngine(preds, lakersEvent(), NewCascade(primary, nil, nil, cascadePolicy(), nil))

	first := e.Run(context.Background())
	assert.Equal(t, 1, first.PicksGraded)
	before := preds.terminal["p1"]

	// The store would not reselect a terminal row; even if it did, the
	// conditional transition refuses a second write.
	second := e.Run(context.Background())
	assert.Equal(t, 0, second.PicksGraded)
	assert.Equal(t, before, preds.terminal["p1"], "stored verdict and scores unchanged")
}

func TestEngineClassifiesFromFreeText(t *testing.T) {
	textPick := Prediction{
		ID: "p1", EventID: "evt_a", Sport: "NBA", League: "NBA",
		Description: "Celtics +4.5 looks live tonight",
		EventTime:   gameTime,
	}
	preds := newFakePredStore(textPick)
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 98, Completed: true},
	}}
	e := testEngine(preds, lakersEvent(), NewCascade(primary, nil, nil, cascadePolicy(), nil))

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksGraded)
	assert.Equal(t, VerdictWin, preds.terminal["p1"].verdict, "away +4.5 covers a 3-point loss")
}

func TestEngineSignAdjustsStoredLineForAwaySide(t *testing.T) {
	// Stored analyzed line is home-relative (-4.5); an away pick flips it.
	line := -4.5
	pick := Prediction{
		ID: "p1", EventID: "evt_a", Sport: "NBA", League: "NBA",
		BetType: "SPREAD", Side: "AWAY", Line: &line,
		EventTime: gameTime,
	}
	preds := newFakePredStore(pick)
	primary := &fakeSource{name: "oddsapi", byID: map[string]*FinalScore{
		"evt_a": {HomeScore: 101, AwayScore: 98, Completed: true},
	}}
	e := testEngine(preds, lakersEvent(), NewCascade(primary, nil, nil, cascadePolicy(), nil))

	result := e.Run(context.Background())

	assert.Equal(t, 1, result.PicksGraded)
	// Away margin -3, line +4.5, cover +1.5 → WIN.
	assert.Equal(t, VerdictWin, preds.terminal["p1"].verdict)
}
