package grading

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/oddsmith/anchorline/internal/names"
)

// LineParser extracts a numeric betting line from a pick's free-text
// description. It is the explicit fallback strategy behind the structured
// metadata, never the primary input.
type LineParser struct{}

var (
	numberPattern = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)

	// Keyword matches are word-bounded so "overtime" or "Hannover" never
	// reads as a total and "html" never reads as a moneyline.
	overPattern      = regexp.MustCompile(`\bover\b`)
	underPattern     = regexp.MustCompile(`\bunder\b`)
	moneylinePattern = regexp.MustCompile(`\bml\b|\bmoneyline\b`)
)

// ExtractLine returns the most plausible line among the numeric tokens in a
// description. A token landing on a quarter- or half-point fraction beats
// any whole integer, since fractional values are almost always genuine lines
// while integers are often incidental (jersey numbers, records, units).
// Among equally plausible tokens the first one wins.
func (LineParser) ExtractLine(description string) (float64, bool) {
	tokens := numberPattern.FindAllString(description, -1)
	if len(tokens) == 0 {
		return 0, false
	}

	var (
		firstAny        float64
		haveAny         bool
		firstFractional float64
		haveFractional  bool
	)

	for _, tok := range tokens {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			continue
		}
		if !haveAny {
			firstAny, haveAny = v, true
		}
		if !haveFractional && isQuarterFraction(v) {
			firstFractional, haveFractional = v, true
		}
	}

	if haveFractional {
		return firstFractional, true
	}
	if haveAny {
		return firstAny, true
	}
	return 0, false
}

// isQuarterFraction reports whether v sits on a .25/.5/.75 boundary but not
// a whole number.
func isQuarterFraction(v float64) bool {
	frac := math.Abs(v - math.Trunc(v))
	return frac == 0.25 || frac == 0.5 || frac == 0.75
}

// ClassifyText derives a bet type and side from a description, given the
// event's team names for side attribution. Returns false when the text does
// not commit to a recognizable pick — ambiguity is never force-guessed.
func (p LineParser) ClassifyText(description, homeName, awayName string) (Classification, bool) {
	lower := strings.ToLower(description)

	// Totals: an explicit over/under keyword with a number.
	hasOver := overPattern.MatchString(lower)
	hasUnder := underPattern.MatchString(lower)
	if hasOver || hasUnder {
		if line, ok := p.ExtractLine(description); ok {
			side := SideOver
			if hasUnder && !hasOver {
				side = SideUnder
			}
			return Classification{BetType: BetTotal, Side: side, Line: &line}, true
		}
		return Classification{}, false
	}

	side, ok := sideFromTeams(description, homeName, awayName)
	if !ok {
		return Classification{}, false
	}

	// Moneyline: explicit ML marker, no line required.
	if moneylinePattern.MatchString(lower) {
		return Classification{BetType: BetMoneyline, Side: side}, true
	}

	// Spread: a team reference plus a signed or fractional number.
	if line, ok := p.ExtractLine(description); ok {
		return Classification{BetType: BetSpread, Side: side, Line: &line}, true
	}

	return Classification{}, false
}

// sideFromTeams matches the description against the event's team names,
// accepting either the full name or the trailing nickname ("Lakers" for
// "Los Angeles Lakers").
func sideFromTeams(description, homeName, awayName string) (Side, bool) {
	desc := " " + names.Normalize(description) + " "
	homeHit := teamReferenced(desc, names.Normalize(homeName))
	awayHit := teamReferenced(desc, names.Normalize(awayName))

	switch {
	case homeHit && !awayHit:
		return SideHome, true
	case awayHit && !homeHit:
		return SideAway, true
	default:
		// Neither or both — cannot attribute a side.
		return "", false
	}
}

func teamReferenced(paddedDesc, teamNorm string) bool {
	if teamNorm == "" {
		return false
	}
	if strings.Contains(paddedDesc, " "+teamNorm+" ") {
		return true
	}
	words := strings.Fields(teamNorm)
	nickname := words[len(words)-1]
	return strings.Contains(paddedDesc, " "+nickname+" ")
}
