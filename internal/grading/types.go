// Package grading settles previously issued predictions once an event
// concludes: a per-pick state machine that resolves final-score evidence
// through a cascading lookup and applies bet-type-specific settlement
// arithmetic.
package grading

import (
	"strings"
	"time"
)

// Verdict is a prediction's grading state. PENDING is the only non-terminal
// state; every other value is terminal and never left.
type Verdict string

const (
	VerdictPending      Verdict = "PENDING"
	VerdictWin          Verdict = "WIN"
	VerdictLoss         Verdict = "LOSS"
	VerdictPush         Verdict = "PUSH"
	VerdictVoid         Verdict = "VOID"
	VerdictManualReview Verdict = "MANUAL_REVIEW"
)

// BetType identifies the settlement arithmetic for a pick.
type BetType string

const (
	BetSpread    BetType = "SPREAD"
	BetTotal     BetType = "TOTAL"
	BetMoneyline BetType = "MONEYLINE"
)

// Side is the picked side of a market.
type Side string

const (
	SideHome  Side = "HOME"
	SideAway  Side = "AWAY"
	SideOver  Side = "OVER"
	SideUnder Side = "UNDER"
	SideDraw  Side = "DRAW"
)

// Metadata is the authoritative structured classification attached to a pick
// at authoring time. When present it always beats free-text parsing.
type Metadata struct {
	BetType BetType  `json:"betType"`
	Side    Side     `json:"side"`
	Line    *float64 `json:"line,omitempty"`
}

// Prediction is a pick awaiting settlement. Created upstream; mutated only
// by this package; never deleted.
type Prediction struct {
	ID          string
	EventID     string
	Sport       string
	League      string
	BetType     string // raw column value, may be empty
	Side        string
	Line        *float64
	Description string
	Metadata    *Metadata
	EventTime   time.Time
}

// FinalScore is the evidence a cascade tier produced. Scores are expressed
// in the sport's scoring unit (points, or sets for set-scored sports).
type FinalScore struct {
	HomeScore int
	AwayScore int
	Completed bool
}

// Degenerate reports a zero-zero score, which is never trusted as completed
// evidence from stored state.
func (f FinalScore) Degenerate() bool {
	return f.HomeScore == 0 && f.AwayScore == 0
}

// Classification is the settled interpretation of a pick: what market, which
// side, and (for spreads and totals) the picked line.
type Classification struct {
	BetType BetType
	Side    Side
	Line    *float64
}

// parseBetType maps raw column values onto a known bet type.
func parseBetType(raw string) (BetType, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SPREAD", "SPREADS", "ATS":
		return BetSpread, true
	case "TOTAL", "TOTALS", "OU", "O/U":
		return BetTotal, true
	case "MONEYLINE", "ML", "H2H":
		return BetMoneyline, true
	}
	return "", false
}

// parseSide maps raw column values onto a known side.
func parseSide(raw string) (Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HOME":
		return SideHome, true
	case "AWAY":
		return SideAway, true
	case "OVER":
		return SideOver, true
	case "UNDER":
		return SideUnder, true
	case "DRAW", "TIE":
		return SideDraw, true
	}
	return "", false
}
