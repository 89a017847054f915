package engine

import (
	"github.com/wildwestlabs/dice-duel-bot/internal/escrow"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/pubsub"
	"github.com/wildwestlabs/dice-duel-bot/internal/registry"
)

// Engine drives matches through their lifecycle and resolves the post-win
// lottery. All mutations go through the registry's versioned updates.
type Engine struct {
	registry registry.MatchRegistry
	wallets  Wallets
	escrow   escrow.Gateway
	roller   game.Roller
	metrics  metrics.Metrics
	pubsub   pubsub.PubSubClient
}

// RollOutcome is the result of one SubmitRoll call.
type RollOutcome struct {
	Match *game.Match     `json:"match"`
	Roll  game.RollResult `json:"roll"`
	// Waiting is true when the round stays open for the other side.
	Waiting bool `json:"waiting"`
	// Round is set once both sides have rolled and the round was scored.
	Round *game.RoundOutcome `json:"round,omitempty"`
	// Settlement is set when the match ended and the payout went through.
	Settlement *escrow.Settlement `json:"settlement,omitempty"`
}

// LotteryOutcome is the result of one lottery roll.
type LotteryOutcome struct {
	MatchID string          `json:"match_id"`
	Roll    game.RollResult `json:"roll"`
	Won     bool            `json:"won"`
	Payout  float64         `json:"payout,omitempty"`
	Ref     string          `json:"ref,omitempty"`
}

// SweepResult summarizes one expiry sweep.
type SweepResult struct {
	Expired  int `json:"expired"`
	Reopened int `json:"reopened"`
	Cleaned  int `json:"cleaned"`
}
