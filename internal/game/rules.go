package game

import "fmt"

// RoundOutcome describes the result of resolving one completed round.
type RoundOutcome struct {
	RoundIndex      int        `json:"round_index"`
	Challenger      RollResult `json:"challenger"`
	Opponent        RollResult `json:"opponent"`
	ChallengerScore int        `json:"challenger_score"`
	OpponentScore   int        `json:"opponent_score"`
	SuddenDeath     bool       `json:"sudden_death"`
	MatchOver       bool       `json:"match_over"`
	WinnerID        string     `json:"winner_id,omitempty"`
	EndReason       EndReason  `json:"end_reason,omitempty"`
}

// ResolveRound scores the current round of m and advances the round index.
// It mutates scores and CurrentRound only; the caller owns status changes and
// settlement. The round at CurrentRound must be complete.
//
// Rules:
//   - both sides snake eyes: both score 2, play on
//   - exactly one side snake eyes: that side loses the match immediately
//   - otherwise both raw totals are added to the running scores
//   - after three rounds the higher running score wins; a tie enters sudden
//     death, which ends on the first round that breaks the tie
func ResolveRound(m *Match) (RoundOutcome, error) {
	idx := m.CurrentRound
	if idx >= len(m.Rounds) {
		return RoundOutcome{}, fmt.Errorf("round %d has no rolls recorded", idx)
	}
	round := m.Rounds[idx]
	if !round.Complete() {
		return RoundOutcome{}, fmt.Errorf("round %d is not complete", idx)
	}

	c, o := *round.Challenger, *round.Opponent
	outcome := RoundOutcome{
		RoundIndex:  idx,
		Challenger:  c,
		Opponent:    o,
		SuddenDeath: idx >= RoundsPerMatch,
	}

	switch {
	case c.SnakeEyes && o.SnakeEyes:
		// The sole exception to the instant-loss rule.
		m.ChallengerScore += 2
		m.OpponentScore += 2
	case c.SnakeEyes:
		m.CurrentRound++
		outcome.MatchOver = true
		outcome.WinnerID = m.Opponent
		outcome.EndReason = EndReasonSnakeEyes
		outcome.ChallengerScore = m.ChallengerScore
		outcome.OpponentScore = m.OpponentScore
		return outcome, nil
	case o.SnakeEyes:
		m.CurrentRound++
		outcome.MatchOver = true
		outcome.WinnerID = m.Challenger
		outcome.EndReason = EndReasonSnakeEyes
		outcome.ChallengerScore = m.ChallengerScore
		outcome.OpponentScore = m.OpponentScore
		return outcome, nil
	default:
		m.ChallengerScore += c.Total
		m.OpponentScore += o.Total
	}

	m.CurrentRound++
	outcome.ChallengerScore = m.ChallengerScore
	outcome.OpponentScore = m.OpponentScore

	if m.CurrentRound >= RoundsPerMatch && m.ChallengerScore != m.OpponentScore {
		outcome.MatchOver = true
		if m.ChallengerScore > m.OpponentScore {
			outcome.WinnerID = m.Challenger
		} else {
			outcome.WinnerID = m.Opponent
		}
		if outcome.SuddenDeath {
			outcome.EndReason = EndReasonSuddenDeath
		} else {
			outcome.EndReason = EndReasonScore
		}
	}
	return outcome, nil
}

// LotteryWin reports whether a lottery throw total pays out the pool.
func LotteryWin(total int) bool {
	return total == 7 || total == 11
}
