package game

import "time"

// MatchStatus represents where a match is in its lifecycle.
type MatchStatus string

const (
	StatusPendingDeposit MatchStatus = "pending_deposit"
	StatusWaiting        MatchStatus = "waiting"
	StatusPendingJoin    MatchStatus = "pending_join"
	StatusActive         MatchStatus = "active"
	StatusCompleted      MatchStatus = "completed"
	StatusCancelled      MatchStatus = "cancelled"
	StatusExpired        MatchStatus = "expired"
)

// Side identifies which seat of a match a player occupies.
type Side string

const (
	SideChallenger Side = "challenger"
	SideOpponent   Side = "opponent"
)

// EndReason records why a match ended.
type EndReason string

const (
	EndReasonSnakeEyes   EndReason = "snake_eyes"
	EndReasonScore       EndReason = "score"
	EndReasonSuddenDeath EndReason = "sudden_death"
)

const (
	// RoundsPerMatch is the nominal number of rounds before scores are compared.
	RoundsPerMatch = 3

	// CreateTimeout bounds how long a match may sit before the opponent's
	// deposit is confirmed and play begins.
	CreateTimeout = 30 * time.Minute
	// JoinTimeout bounds how long a reserved opponent slot stays reserved.
	JoinTimeout = 10 * time.Minute
	// LotteryGrace is how long a completed match is retained so the winner
	// can roll the lottery.
	LotteryGrace = 5 * time.Minute
)

// RollResult is a single two-dice throw.
type RollResult struct {
	Die1      int  `json:"die1" msgpack:"die1"`
	Die2      int  `json:"die2" msgpack:"die2"`
	Total     int  `json:"total" msgpack:"total"`
	SnakeEyes bool `json:"snake_eyes" msgpack:"snake_eyes"`
}

// NewRollResult derives the total and snake-eyes flag from the two faces.
func NewRollResult(die1, die2 int) RollResult {
	return RollResult{
		Die1:      die1,
		Die2:      die2,
		Total:     die1 + die2,
		SnakeEyes: die1 == 1 && die2 == 1,
	}
}

// Round holds the two throws of one round. A side's pointer is nil until that
// side has rolled.
type Round struct {
	Challenger *RollResult `json:"challenger,omitempty" msgpack:"challenger"`
	Opponent   *RollResult `json:"opponent,omitempty" msgpack:"opponent"`
}

// Complete reports whether both sides have rolled.
func (r Round) Complete() bool {
	return r.Challenger != nil && r.Opponent != nil
}

// Match is one dice duel between two players for a fixed stake.
type Match struct {
	ID                string      `json:"id" msgpack:"id"`
	Challenger        string      `json:"challenger" msgpack:"challenger"`
	ChallengerName    string      `json:"challenger_name" msgpack:"challenger_name"`
	Opponent          string      `json:"opponent,omitempty" msgpack:"opponent"`
	OpponentName      string      `json:"opponent_name,omitempty" msgpack:"opponent_name"`
	ChallengerAddress string      `json:"challenger_address" msgpack:"challenger_address"`
	OpponentAddress   string      `json:"opponent_address,omitempty" msgpack:"opponent_address"`
	BuyIn             float64     `json:"buy_in" msgpack:"buy_in"`
	Status            MatchStatus `json:"status" msgpack:"status"`
	Rounds            []Round     `json:"rounds" msgpack:"rounds"`
	CurrentRound      int         `json:"current_round" msgpack:"current_round"`
	ChallengerScore   int         `json:"challenger_score" msgpack:"challenger_score"`
	OpponentScore     int         `json:"opponent_score" msgpack:"opponent_score"`
	Winner            string      `json:"winner,omitempty" msgpack:"winner"`
	EndReason         EndReason   `json:"end_reason,omitempty" msgpack:"end_reason"`
	EscrowRef         string      `json:"escrow_ref,omitempty" msgpack:"escrow_ref"`
	PayoutAmount      float64     `json:"payout_amount,omitempty" msgpack:"payout_amount"`
	PayoutPending     bool        `json:"payout_pending,omitempty" msgpack:"payout_pending"`
	LotteryRolled     bool        `json:"lottery_rolled,omitempty" msgpack:"lottery_rolled"`
	CreatedAt         int64       `json:"created_at" msgpack:"created_at"`
	ExpiresAt         int64       `json:"expires_at" msgpack:"expires_at"`
	CompletedAt       int64       `json:"completed_at,omitempty" msgpack:"completed_at"`

	// Version is the registry's optimistic-concurrency counter. It is not
	// part of the game state itself.
	Version int64 `json:"-" msgpack:"-"`
}

// Terminal reports whether no further rolls may be applied.
func (m *Match) Terminal() bool {
	switch m.Status {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// DeadlinePassed reports whether the match's current deadline has elapsed.
// Terminal matches have no deadline; active matches are only bounded by the
// players themselves.
func (m *Match) DeadlinePassed(now time.Time) bool {
	if m.Terminal() || m.Status == StatusActive {
		return false
	}
	return m.ExpiresAt > 0 && now.Unix() > m.ExpiresAt
}

// IsParticipant reports whether playerID occupies either seat.
func (m *Match) IsParticipant(playerID string) bool {
	return playerID == m.Challenger || (m.Opponent != "" && playerID == m.Opponent)
}

// SideOf returns which seat playerID occupies.
func (m *Match) SideOf(playerID string) (Side, bool) {
	switch playerID {
	case m.Challenger:
		return SideChallenger, true
	case m.Opponent:
		if m.Opponent != "" {
			return SideOpponent, true
		}
	}
	return "", false
}

// AddressOf returns the payout address for playerID.
func (m *Match) AddressOf(playerID string) string {
	if playerID == m.Challenger {
		return m.ChallengerAddress
	}
	if playerID == m.Opponent {
		return m.OpponentAddress
	}
	return ""
}

// OpponentOf returns the other participant's ID.
func (m *Match) OpponentOf(playerID string) string {
	if playerID == m.Challenger {
		return m.Opponent
	}
	return m.Challenger
}
