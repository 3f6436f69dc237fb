package consensus

import "strings"

// catchAllTier ranks every bookmaker the table does not name. Any named book
// beats it.
const catchAllTier = 99

// bookTiers ranks bookmakers by sharpness. Tier 1 books set the market;
// tiers 2-5 are reference books consulted when no sharp quote exists.
// Keyed by normalized (lowercased, trimmed) bookmaker identifier; each book
// is listed under both its display title and its provider key so quotes
// rank the same no matter which form a feed carries.
var bookTiers = map[string]int{
	"pinnacle":    1,
	"circa":       1,
	"circasports": 1,

	"bookmaker":      2,
	"betonline":      2,
	"betonline.ag":   2,
	"betonlineag":    2,
	"bovada":         3,
	"betcris":        3,
	"fanduel":        4,
	"draftkings":     4,
	"caesars":        5,
	"betmgm":         5,
	"williamhill":    5,
	"william hill":   5,
	"williamhill_us": 5,
	"betrivers":      5,
	"pointsbetus":    5,
	"pointsbet":      5,
}

// tierOf returns the sharpness tier for a bookmaker identifier. Lower is
// sharper.
func tierOf(title string) int {
	key := strings.ToLower(strings.TrimSpace(title))
	if t, ok := bookTiers[key]; ok {
		return t
	}
	return catchAllTier
}
