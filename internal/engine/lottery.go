package engine

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
	"github.com/wildwestlabs/dice-duel-bot/internal/pubsub"
	"github.com/wildwestlabs/dice-duel-bot/internal/registry"
)

// RollLottery plays the winner's one bonus throw for a completed match.
// A total of 7 or 11 wins the jackpot pool. The used-up marker is claimed
// before any dice are drawn, so a retried or duplicated request can never
// produce a second throw.
func (e *Engine) RollLottery(matchID, playerID string) (*LotteryOutcome, error) {
	match, err := e.load(matchID)
	if err != nil {
		return nil, err
	}
	if match.Status != game.StatusCompleted {
		return nil, validationErrorf("match %s has no lottery to roll", match.ID)
	}
	if match.Winner != playerID {
		return nil, validationErrorf("only the match winner can roll the lottery")
	}

	if err := e.registry.MarkLotteryRolled(match.ID); err != nil {
		if errors.Is(err, registry.ErrLotteryAlreadyRolled) {
			return nil, validationErrorf("the lottery for match %s has already been rolled", match.ID)
		}
		return nil, err
	}

	roll := game.NewRollResult(e.roller.Roll())
	e.metrics.IncLotteryRolls()
	log.Info("Lottery rolled", "matchID", match.ID, "player", playerID, "total", roll.Total)

	outcome := &LotteryOutcome{
		MatchID: match.ID,
		Roll:    roll,
		Won:     game.LotteryWin(roll.Total),
	}

	if outcome.Won {
		settlement, err := e.escrow.PayLottery(match.AddressOf(playerID))
		if err != nil {
			// The throw stays consumed. Paying out again on retry would be
			// worse than a delayed manual payout.
			log.Error("Lottery payout failed", "matchID", match.ID, "player", playerID, "error", err)
			return outcome, &SettlementError{MatchID: match.ID, Err: err}
		}
		outcome.Payout = settlement.Amount
		outcome.Ref = settlement.Ref
		log.Info("Lottery jackpot paid", "matchID", match.ID, "player", playerID, "amount", settlement.Amount)
	}

	record := players.LotteryRecord{
		ID:       uuid.New().String(),
		MatchID:  match.ID,
		PlayerID: playerID,
		Die1:     roll.Die1,
		Die2:     roll.Die2,
		Total:    roll.Total,
		Won:      outcome.Won,
		Payout:   outcome.Payout,
		RolledAt: time.Now().Unix(),
	}
	if err := e.pubsub.SendMessage(pubsub.EventLotteryRolled, record); err != nil {
		log.Error("Failed to publish lottery-rolled event", "error", err, "matchID", match.ID)
	}

	return outcome, nil
}

// JackpotPool reports the current lottery pool balance.
func (e *Engine) JackpotPool() (float64, error) {
	return e.escrow.GetLotteryPool()
}
