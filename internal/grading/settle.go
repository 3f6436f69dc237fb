package grading

// settle applies bet-type-specific settlement arithmetic to a classified
// pick and a final score. One implementation, dispatched by bet type; the
// scoring unit (points vs sets) was already selected by the evidence layer
// from the sport tag, so the same three rules apply unchanged.
//
// The returned bool is false when the classification cannot be settled
// (missing line for a spread or total) — the caller leaves the pick PENDING
// rather than guessing.
func settle(c Classification, score FinalScore) (Verdict, bool) {
	switch c.BetType {
	case BetMoneyline:
		return settleMoneyline(c.Side, score), true
	case BetSpread:
		if c.Line == nil {
			return VerdictPending, false
		}
		return settleSpread(c.Side, *c.Line, score), true
	case BetTotal:
		if c.Line == nil {
			return VerdictPending, false
		}
		return settleTotal(c.Side, *c.Line, score), true
	}
	return VerdictPending, false
}

// settleMoneyline grades on the raw margin: zero margin pushes, otherwise
// the sign decides. A draw pick wins only on a level score.
func settleMoneyline(side Side, score FinalScore) Verdict {
	margin := score.HomeScore - score.AwayScore

	if side == SideDraw {
		if margin == 0 {
			return VerdictWin
		}
		return VerdictLoss
	}

	if side == SideAway {
		margin = -margin
	}
	switch {
	case margin > 0:
		return VerdictWin
	case margin < 0:
		return VerdictLoss
	default:
		return VerdictPush
	}
}

// settleSpread grades on the cover margin: the picked side's actual margin
// plus its line. A zero line is legal and settles by raw margin.
func settleSpread(side Side, line float64, score FinalScore) Verdict {
	margin := float64(score.HomeScore - score.AwayScore)
	if side == SideAway {
		margin = -margin
	}

	cover := margin + line
	switch {
	case cover > 0:
		return VerdictWin
	case cover < 0:
		return VerdictLoss
	default:
		return VerdictPush
	}
}

// settleTotal compares the combined score to the line.
func settleTotal(side Side, line float64, score FinalScore) Verdict {
	total := float64(score.HomeScore + score.AwayScore)

	if total == line {
		return VerdictPush
	}
	over := total > line
	if (side == SideOver) == over {
		return VerdictWin
	}
	return VerdictLoss
}
