// Package consensus reduces per-bookmaker quotes for one event into a single
// anchor line per market type, preferring sharper books.
package consensus

// MarketType identifies a betting market.
type MarketType string

const (
	MarketSpread    MarketType = "spreads"
	MarketTotal     MarketType = "totals"
	MarketMoneyline MarketType = "h2h"
)

// Outcome is one priced side of a market as quoted by a bookmaker.
type Outcome struct {
	Name  string   `json:"name"`
	Line  *float64 `json:"line,omitempty"`
	Price int      `json:"price"`
}

// Market is one market type with its outcomes.
type Market struct {
	Type     MarketType `json:"type"`
	Outcomes []Outcome  `json:"outcomes"`
}

// BookmakerQuote is the ephemeral per-bookmaker input. Never persisted.
type BookmakerQuote struct {
	Bookmaker string   `json:"bookmaker"`
	Markets   []Market `json:"markets"`
}

// Entry is one selected leaf of an anchor line. Line is nil for moneylines.
type Entry struct {
	Line      *float64 `json:"line,omitempty"`
	Price     int      `json:"price"`
	Bookmaker string   `json:"bookmaker"`
}

// SpreadLine holds the anchored spread quotes for both sides.
type SpreadLine struct {
	Home *Entry `json:"home,omitempty"`
	Away *Entry `json:"away,omitempty"`
}

// TotalLine holds the anchored over/under quotes.
type TotalLine struct {
	Over  *Entry `json:"over,omitempty"`
	Under *Entry `json:"under,omitempty"`
}

// MoneylineLine holds the anchored moneyline quotes. Draw is set only for
// sports with a three-way line.
type MoneylineLine struct {
	Home *Entry `json:"home,omitempty"`
	Away *Entry `json:"away,omitempty"`
	Draw *Entry `json:"draw,omitempty"`
}

// AnchorLine is the consensus market snapshot for one event. A market type
// with no qualifying quote stays entirely null — never defaulted.
type AnchorLine struct {
	Spread    SpreadLine    `json:"spread"`
	Total     TotalLine     `json:"total"`
	Moneyline MoneylineLine `json:"moneyline"`
}

// HasUsableLine reports whether any market leaf was anchored. The closing
// lock only engages on a usable line.
func (a *AnchorLine) HasUsableLine() bool {
	return a.Spread.Home != nil || a.Spread.Away != nil ||
		a.Total.Over != nil || a.Total.Under != nil ||
		a.Moneyline.Home != nil || a.Moneyline.Away != nil
}

// HomeSpreadLine returns the anchored home spread line, if any.
func (a *AnchorLine) HomeSpreadLine() *float64 {
	if a.Spread.Home == nil {
		return nil
	}
	return a.Spread.Home.Line
}

// TotalLineValue returns the anchored total line, if any.
func (a *AnchorLine) TotalLineValue() *float64 {
	if a.Total.Over != nil {
		return a.Total.Over.Line
	}
	if a.Total.Under != nil {
		return a.Total.Under.Line
	}
	return nil
}
