// Package oddsapi provides The Odds API client used as both the ingestion
// event source and the primary final-score evidence source.
//
// The odds endpoint carries per-bookmaker quotes, the scores endpoint carries
// live and final scores. Both are query-parameter authenticated and
// rate limited via a token bucket limiter.
package oddsapi

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

	"github.com/oddsmith/anchorline/internal/consensus"
	"github.com/oddsmith/anchorline/internal/grading"
	"github.com/oddsmith/anchorline/internal/ingest"
	"github.com/oddsmith/anchorline/internal/names"
)

// sportKeys maps internal sport tags to The Odds API sport keys.
var sportKeys = map[string]string{
	"NBA":    "basketball_nba",
	"NFL":    "americanfootball_nfl",
	"NHL":    "icehockey_nhl",
	"SOCCER": "soccer_epl",
}

// Client is the shared HTTP client for The Odds API endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	logger     *slog.Logger
	now        func() time.Time
}

// NewClient creates an Odds API HTTP client with rate limiting.
func NewClient(baseURL, apiKey string, requestsPerMinute int, timeout time.Duration, logger *slog.Logger) *Client {
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
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     logger,
		now:        time.Now,
	}
}

// Name identifies this client in logs and traces.
func (c *Client) Name() string { return "oddsapi" }

// oddsEvent is one event on the odds endpoint.
type oddsEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Bookmakers   []struct {
		Key     string `json:"key"`
		Markets []struct {
			Key      string `json:"key"`
			Outcomes []struct {
				Name  string   `json:"name"`
				Price int      `json:"price"`
				Point *float64 `json:"point"`
			} `json:"outcomes"`
		} `json:"markets"`
	} `json:"bookmakers"`
}

// scoreEvent is one event on the scores endpoint. Scores arrive as strings.
type scoreEvent struct {
	ID           string    `json:"id"`
	SportKey     string    `json:"sport_key"`
	CommenceTime time.Time `json:"commence_time"`
	Completed    bool      `json:"completed"`
	HomeTeam     string    `json:"home_team"`
	AwayTeam     string    `json:"away_team"`
	Scores       []struct {
		Name  string `json:"name"`
		Score string `json:"score"`
	} `json:"scores"`
}

// FetchEvents returns the current event slate for a sport: upcoming and live
// events from the odds endpoint merged with score rows, plus completed events
// that have already dropped off the odds feed.
func (c *Client) FetchEvents(ctx context.Context, sport string) ([]ingest.ProviderEvent, error) {
	key, ok := sportKeys[sport]
	if !ok {
		return nil, fmt.Errorf("no odds api sport key for %q", sport)
	}

	var odds []oddsEvent
	params := url.Values{
		"regions":    {"us"},
		"markets":    {"h2h,spreads,totals"},
		"oddsFormat": {"american"},
	}
	if err := c.get(ctx, "/v4/sports/"+key+"/odds", params, &odds); err != nil {
		return nil, err
	}

	var scores []scoreEvent
	if err := c.get(ctx, "/v4/sports/"+key+"/scores/", url.Values{"daysFrom": {"1"}}, &scores); err != nil {
		// Odds without scores is still a useful slate.
		c.logger.Warn("scores fetch failed, ingesting odds only", "sport", sport, "error", err)
		scores = nil
	}
	scoreByID := make(map[string]scoreEvent, len(scores))
	for _, sc := range scores {
		scoreByID[sc.ID] = sc
	}

	now := c.now().UTC()
	events := make([]ingest.ProviderEvent, 0, len(odds))
	seen := make(map[string]bool, len(odds))
	for _, oe := range odds {
		seen[oe.ID] = true
		pe := ingest.ProviderEvent{
			Provider:     c.Name(),
			Sport:        sport,
			League:       oe.SportKey,
			HomeName:     oe.HomeTeam,
			AwayName:     oe.AwayTeam,
			CommenceTime: oe.CommenceTime,
			Quotes:       c.quotes(oe),
		}
		if sc, ok := scoreByID[oe.ID]; ok {
			pe.Completed = sc.Completed
			pe.Live = !sc.Completed && now.After(oe.CommenceTime)
			pe.HomeScore, pe.AwayScore = parseScores(sc)
		}
		events = append(events, pe)
	}

	// Completed events leave the odds feed but their finals still matter.
	for _, sc := range scores {
		if seen[sc.ID] || !sc.Completed {
			continue
		}
		home, away := parseScores(sc)
		events = append(events, ingest.ProviderEvent{
			Provider:     c.Name(),
			Sport:        sport,
			League:       sc.SportKey,
			HomeName:     sc.HomeTeam,
			AwayName:     sc.AwayTeam,
			CommenceTime: sc.CommenceTime,
			Completed:    true,
			HomeScore:    home,
			AwayScore:    away,
		})
	}

	return events, nil
}

// FetchFinalScore resolves a final score from the scores endpoint, joining by
// provider event ID when the ref carries one, otherwise by team names near
// the ref date.
func (c *Client) FetchFinalScore(ctx context.Context, ref grading.EventRef) (*grading.FinalScore, error) {
	key, ok := sportKeys[ref.Sport]
	if !ok {
		return nil, nil
	}

	params := url.Values{"daysFrom": {"3"}}
	if ref.EventID != "" {
		params.Set("eventIds", ref.EventID)
	}

	var scores []scoreEvent
	if err := c.get(ctx, "/v4/sports/"+key+"/scores/", params, &scores); err != nil {
		return nil, err
	}

	homeNorm := names.Normalize(ref.HomeName)
	awayNorm := names.Normalize(ref.AwayName)
	for _, sc := range scores {
		switch {
		case ref.EventID != "":
			if sc.ID != ref.EventID {
				continue
			}
		default:
			if !names.Match(names.Normalize(sc.HomeTeam), homeNorm) ||
				!names.Match(names.Normalize(sc.AwayTeam), awayNorm) {
				continue
			}
		}
		home, away := parseScores(sc)
		if home == nil || away == nil {
			continue
		}
		return &grading.FinalScore{HomeScore: *home, AwayScore: *away, Completed: sc.Completed}, nil
	}
	return nil, nil
}

// quotes converts the per-bookmaker odds payload into consensus input.
func (c *Client) quotes(oe oddsEvent) []consensus.BookmakerQuote {
	out := make([]consensus.BookmakerQuote, 0, len(oe.Bookmakers))
	for _, bk := range oe.Bookmakers {
		q := consensus.BookmakerQuote{Bookmaker: bk.Key}
		for _, m := range bk.Markets {
			market := consensus.Market{Type: consensus.MarketType(m.Key)}
			for _, o := range m.Outcomes {
				market.Outcomes = append(market.Outcomes, consensus.Outcome{
					Name:  o.Name,
					Line:  o.Point,
					Price: o.Price,
				})
			}
			q.Markets = append(q.Markets, market)
		}
		out = append(out, q)
	}
	return out
}

// parseScores extracts numeric home and away scores from a score row, joining
// score entries to sides by team name. Unparseable rows yield nils.
func parseScores(sc scoreEvent) (home, away *int) {
	homeNorm := names.Normalize(sc.HomeTeam)
	awayNorm := names.Normalize(sc.AwayTeam)
	for _, entry := range sc.Scores {
		n, err := strconv.Atoi(entry.Score)
		if err != nil {
			continue
		}
		v := n
		entryNorm := names.Normalize(entry.Name)
		switch {
		case names.Match(entryNorm, homeNorm):
			home = &v
		case names.Match(entryNorm, awayNorm):
			away = &v
		}
	}
	return home, away
}

// get performs a rate-limited GET request to an Odds API endpoint.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	params.Set("apiKey", c.apiKey)
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("odds api %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
