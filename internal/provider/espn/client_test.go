package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddsmith/anchorline/internal/grading"
)

const nbaScoreboard = `{
  "events": [{
    "id": "401585601",
    "status": {"type": {"state": "post", "completed": true}},
    "competitions": [{
      "competitors": [
        {"homeAway": "home", "score": "101", "team": {"displayName": "Los Angeles Lakers"}},
        {"homeAway": "away", "score": "95", "team": {"displayName": "Boston Celtics"}}
      ]
    }]
  }]
}`

const tennisScoreboard = `{
  "events": [{
    "id": "600012345",
    "status": {"type": {"state": "post", "completed": true}},
    "competitions": [{
      "competitors": [
        {"homeAway": "home", "score": "2", "athlete": {"displayName": "Carlos Alcaraz"},
         "linescores": [{"value": 6}, {"value": 3}, {"value": 7}]},
        {"homeAway": "away", "score": "1", "athlete": {"displayName": "Jannik Sinner"},
         "linescores": [{"value": 4}, {"value": 6}, {"value": 5}]}
      ]
    }]
  }]
}`

func testClient(t *testing.T, payloads map[string]string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 600, 5*time.Second, nil)
}

func TestFetchFinalScorePoints(t *testing.T) {
	c := testClient(t, map[string]string{
		"/apis/site/v2/sports/basketball/nba/scoreboard": nbaScoreboard,
	})

	score, err := c.FetchFinalScore(context.Background(), grading.EventRef{
		Sport:    "NBA",
		HomeName: "Lakers",
		AwayName: "Celtics",
		Date:     time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 101, score.HomeScore)
	assert.Equal(t, 95, score.AwayScore)
	assert.True(t, score.Completed)
}

func TestFetchFinalScoreSetsWon(t *testing.T) {
	c := testClient(t, map[string]string{
		"/apis/site/v2/sports/tennis/atp/scoreboard": tennisScoreboard,
	})

	score, err := c.FetchFinalScore(context.Background(), grading.EventRef{
		Sport:    "TENNIS",
		HomeName: "Carlos Alcaraz",
		AwayName: "Jannik Sinner",
		Date:     time.Date(2026, 6, 7, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, score)

	// Set-scored sports settle on sets won, not game totals.
	assert.Equal(t, 2, score.HomeScore)
	assert.Equal(t, 1, score.AwayScore)
	assert.True(t, score.Completed)
}

func TestFetchFinalScoreUnknownFeedResolvesNothing(t *testing.T) {
	c := testClient(t, nil)

	score, err := c.FetchFinalScore(context.Background(), grading.EventRef{
		Sport:    "DARTS",
		HomeName: "A",
		AwayName: "B",
		Date:     time.Date(2026, 6, 7, 13, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestFetchFinalScoreRequiresBothNames(t *testing.T) {
	c := testClient(t, map[string]string{
		"/apis/site/v2/sports/basketball/nba/scoreboard": nbaScoreboard,
	})

	score, err := c.FetchFinalScore(context.Background(), grading.EventRef{
		Sport:    "NBA",
		HomeName: "Lakers",
		AwayName: "Clippers",
		Date:     time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Nil(t, score, "one-sided joins must not produce a score")
}
