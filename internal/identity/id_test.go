package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeterministicIDIsStable(t *testing.T) {
	at := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	a := DeterministicID("Los Angeles Lakers", "Boston Celtics", at, "NBA")
	b := DeterministicID("Los Angeles Lakers", "Boston Celtics", at, "NBA")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "evt_")
}

func TestDeterministicIDNormalizesInputs(t *testing.T) {
	at := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	a := DeterministicID("Los Angeles Lakers", "Boston Celtics", at, "NBA")
	b := DeterministicID("  los angeles LAKERS ", "Boston  Celtics", at.Add(30*time.Second), "nba")
	assert.Equal(t, a, b, "case, spacing, and sub-minute time noise must not change the ID")
}

func TestDeterministicIDDistinguishesEvents(t *testing.T) {
	at := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	base := DeterministicID("Los Angeles Lakers", "Boston Celtics", at, "NBA")

	assert.NotEqual(t, base, DeterministicID("Boston Celtics", "Los Angeles Lakers", at, "NBA"), "home/away order matters")
	assert.NotEqual(t, base, DeterministicID("Los Angeles Lakers", "Boston Celtics", at.Add(time.Hour), "NBA"))
	assert.NotEqual(t, base, DeterministicID("Los Angeles Lakers", "Boston Celtics", at, "WNBA"))
}
