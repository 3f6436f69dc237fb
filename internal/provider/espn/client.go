// Package espn provides the ESPN scoreboard client, the secondary final-score
// evidence source. The scoreboard is public and unauthenticated, keyed by
// sport path and date, and joined to events by team names.
package espn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/oddsmith/anchorline/internal/config"
	"github.com/oddsmith/anchorline/internal/grading"
	"github.com/oddsmith/anchorline/internal/names"
)

// Client is the ESPN scoreboard HTTP client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an ESPN scoreboard client with rate limiting.
func NewClient(baseURL string, requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := float64(requestsPerMinute) / 60.0
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
	}
}

// Name identifies this client in logs and traces.
func (c *Client) Name() string { return "espn" }

// scoreboard is the slice of the ESPN scoreboard payload we consume.
type scoreboard struct {
	Events []struct {
		ID     string `json:"id"`
		Status struct {
			Type struct {
				State     string `json:"state"` // pre, in, post
				Completed bool   `json:"completed"`
			} `json:"type"`
		} `json:"status"`
		Competitions []struct {
			Competitors []competitor `json:"competitors"`
		} `json:"competitions"`
	} `json:"events"`
}

// competitor covers both team feeds (team.displayName) and individual feeds
// like tennis (athlete.displayName). Linescores carry per-set values.
type competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		DisplayName string `json:"displayName"`
	} `json:"team"`
	Athlete struct {
		DisplayName string `json:"displayName"`
	} `json:"athlete"`
	Linescores []struct {
		Value float64 `json:"value"`
	} `json:"linescores"`
}

func (c competitor) displayName() string {
	if c.Team.DisplayName != "" {
		return c.Team.DisplayName
	}
	return c.Athlete.DisplayName
}

// FetchFinalScore resolves a final score from the scoreboard for the ref's
// date, joining by competitor names. The registry's scoring unit decides what
// counts as a score: raw points, or sets won from the linescores. Sports
// without an ESPN feed resolve nothing.
func (c *Client) FetchFinalScore(ctx context.Context, ref grading.EventRef) (*grading.FinalScore, error) {
	sc := config.SportFor(ref.Sport)
	if sc.ESPNPath == "" || ref.Date.IsZero() {
		return nil, nil
	}

	params := url.Values{"dates": {ref.Date.UTC().Format("20060102")}}
	board, err := c.get(ctx, "/apis/site/v2/sports/"+sc.ESPNPath+"/scoreboard", params)
	if err != nil {
		return nil, err
	}

	homeNorm := names.Normalize(ref.HomeName)
	awayNorm := names.Normalize(ref.AwayName)

	for _, ev := range board.Events {
		if len(ev.Competitions) == 0 {
			continue
		}
		var home, away *competitor
		for i := range ev.Competitions[0].Competitors {
			comp := &ev.Competitions[0].Competitors[i]
			nameNorm := names.Normalize(comp.displayName())
			switch {
			case comp.HomeAway == "home" && names.Match(nameNorm, homeNorm):
				home = comp
			case comp.HomeAway == "away" && names.Match(nameNorm, awayNorm):
				away = comp
			}
		}
		// Both sides must join by name; a one-sided match is a different game.
		if home == nil || away == nil {
			continue
		}
		homeScore, awayScore, ok := scoresFor(sc.Unit, *home, *away)
		if !ok {
			continue
		}
		return &grading.FinalScore{
			HomeScore: homeScore,
			AwayScore: awayScore,
			Completed: ev.Status.Type.Completed || ev.Status.Type.State == "post",
		}, nil
	}
	return nil, nil
}

// scoresFor extracts the pair of scores in the sport's settlement unit.
func scoresFor(unit config.ScoringUnit, home, away competitor) (int, int, bool) {
	if unit == config.UnitSets {
		if len(home.Linescores) == 0 || len(home.Linescores) != len(away.Linescores) {
			return 0, 0, false
		}
		return setsWon(home, away), setsWon(away, home), true
	}
	h, errH := strconv.Atoi(home.Score)
	a, errA := strconv.Atoi(away.Score)
	if errH != nil || errA != nil {
		return 0, 0, false
	}
	return h, a, true
}

func setsWon(us, them competitor) int {
	won := 0
	for i := range us.Linescores {
		if us.Linescores[i].Value > them.Linescores[i].Value {
			won++
		}
	}
	return won
}

// get performs a rate-limited GET request to a scoreboard endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*scoreboard, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("espn %s returned %d", path, resp.StatusCode)
	}

	var board scoreboard
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}
	return &board, nil
}
