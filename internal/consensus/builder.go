package consensus

import (
	"strings"

	"github.com/oddsmith/anchorline/internal/config"
	"github.com/oddsmith/anchorline/internal/names"
)

// Build reduces the quotes for one event into an anchor line. Each market
// type is selected independently: a bookmaker replaces the recorded anchor
// only when its tier is strictly sharper, so an equal-tier quote seen later
// never overwrites an earlier one.
func Build(quotes []BookmakerQuote, homeName, awayName string, sport config.SportConfig) AnchorLine {
	var anchor AnchorLine
	homeNorm := names.Normalize(homeName)
	awayNorm := names.Normalize(awayName)

	best := map[MarketType]int{
		MarketSpread:    catchAllTier + 1,
		MarketTotal:     catchAllTier + 1,
		MarketMoneyline: catchAllTier + 1,
	}

	for _, q := range quotes {
		tier := tierOf(q.Bookmaker)
		for _, m := range q.Markets {
			if tier >= best[m.Type] {
				continue
			}
			switch m.Type {
			case MarketSpread:
				if sl, ok := extractSpread(m.Outcomes, q.Bookmaker, homeNorm, awayNorm, sport); ok {
					anchor.Spread = sl
					best[MarketSpread] = tier
				}
			case MarketTotal:
				if tl, ok := extractTotal(m.Outcomes, q.Bookmaker); ok {
					anchor.Total = tl
					best[MarketTotal] = tier
				}
			case MarketMoneyline:
				if ml, ok := extractMoneyline(m.Outcomes, q.Bookmaker, homeNorm, awayNorm); ok {
					anchor.Moneyline = ml
					best[MarketMoneyline] = tier
				}
			}
		}
	}

	return anchor
}

// extractSpread matches outcomes to home/away by normalized name. A
// positional fallback (first=home, second=away) applies only to two-outcome
// markets in draw-free sports, where provider order is contractual.
func extractSpread(outcomes []Outcome, bookmaker, homeNorm, awayNorm string, sport config.SportConfig) (SpreadLine, bool) {
	var sl SpreadLine
	for i := range outcomes {
		o := outcomes[i]
		n := names.Normalize(o.Name)
		switch {
		case names.Match(n, homeNorm):
			sl.Home = &Entry{Line: o.Line, Price: o.Price, Bookmaker: bookmaker}
		case names.Match(n, awayNorm):
			sl.Away = &Entry{Line: o.Line, Price: o.Price, Bookmaker: bookmaker}
		}
	}

	if sl.Home == nil && sl.Away == nil && len(outcomes) == 2 && !sport.HasDraw {
		sl.Home = &Entry{Line: outcomes[0].Line, Price: outcomes[0].Price, Bookmaker: bookmaker}
		sl.Away = &Entry{Line: outcomes[1].Line, Price: outcomes[1].Price, Bookmaker: bookmaker}
	}

	return sl, sl.Home != nil || sl.Away != nil
}

// extractTotal matches totals by literal Over/Under label only. Totals are
// never matched positionally.
func extractTotal(outcomes []Outcome, bookmaker string) (TotalLine, bool) {
	var tl TotalLine
	for i := range outcomes {
		o := outcomes[i]
		switch strings.ToLower(strings.TrimSpace(o.Name)) {
		case "over":
			tl.Over = &Entry{Line: o.Line, Price: o.Price, Bookmaker: bookmaker}
		case "under":
			tl.Under = &Entry{Line: o.Line, Price: o.Price, Bookmaker: bookmaker}
		}
	}
	return tl, tl.Over != nil || tl.Under != nil
}

// extractMoneyline matches outcomes to home/away/draw by normalized name.
func extractMoneyline(outcomes []Outcome, bookmaker, homeNorm, awayNorm string) (MoneylineLine, bool) {
	var ml MoneylineLine
	for i := range outcomes {
		o := outcomes[i]
		n := names.Normalize(o.Name)
		switch {
		case n == "draw" || n == "tie":
			ml.Draw = &Entry{Price: o.Price, Bookmaker: bookmaker}
		case names.Match(n, homeNorm):
			ml.Home = &Entry{Price: o.Price, Bookmaker: bookmaker}
		case names.Match(n, awayNorm):
			ml.Away = &Entry{Price: o.Price, Bookmaker: bookmaker}
		}
	}
	return ml, ml.Home != nil || ml.Away != nil
}
