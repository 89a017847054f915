package engine

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wildwestlabs/dice-duel-bot/internal/escrow"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
	"github.com/wildwestlabs/dice-duel-bot/internal/pubsub"
	"github.com/wildwestlabs/dice-duel-bot/internal/registry"
)

// New creates a new Engine.
func New(reg registry.MatchRegistry, wallets Wallets, gateway escrow.Gateway, roller game.Roller, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Engine {
	return &Engine{
		registry: reg,
		wallets:  wallets,
		escrow:   gateway,
		roller:   roller,
		metrics:  metrics,
		pubsub:   pubsub,
	}
}

// CreateMatch opens a new duel in pending_deposit for the challenger.
func (e *Engine) CreateMatch(challengerID, challengerName string, buyIn float64) (*game.Match, error) {
	if buyIn <= 0 {
		return nil, validationErrorf("buy-in must be positive, got %.2f", buyIn)
	}
	address, err := e.wallets.AddressOf(challengerID)
	if err != nil {
		if errors.Is(err, players.ErrNotRegistered) {
			return nil, validationErrorf("connect a wallet before creating a match")
		}
		return nil, err
	}

	match, err := e.registry.Create(challengerID, challengerName, address, buyIn)
	if err != nil {
		return nil, err
	}
	e.metrics.IncMatchesCreated()
	return match, nil
}

// ConfirmCreate verifies the challenger's deposit, locks the stake in escrow
// and promotes the match to waiting.
func (e *Engine) ConfirmCreate(matchID, playerID string) (*game.Match, error) {
	match, err := e.load(matchID)
	if err != nil {
		return nil, err
	}
	if err := e.checkDeadline(match); err != nil {
		return nil, err
	}
	if match.Terminal() {
		return nil, &TerminalStateError{MatchID: match.ID, Status: match.Status}
	}
	if match.Status != game.StatusPendingDeposit {
		return nil, validationErrorf("match %s is not awaiting deposit confirmation", match.ID)
	}
	if playerID != match.Challenger {
		return nil, validationErrorf("only the challenger can confirm this match")
	}

	if err := e.requireDeposit(match.ChallengerAddress, match.BuyIn); err != nil {
		return nil, err
	}

	ref, err := e.escrow.CreateEscrow(match.ChallengerAddress, match.BuyIn)
	if err != nil {
		return nil, err
	}

	match.Status = game.StatusWaiting
	match.EscrowRef = ref
	match.ExpiresAt = time.Now().Add(game.CreateTimeout).Unix()
	if err := e.registry.Update(match); err != nil {
		return nil, err
	}
	log.Info("Match open for opponents", "matchID", match.ID, "challenger", match.ChallengerName, "buyIn", match.BuyIn)
	return match, nil
}

// Join reserves the opponent slot for playerID.
func (e *Engine) Join(matchID, playerID, playerName string) (*game.Match, error) {
	address, err := e.wallets.AddressOf(playerID)
	if err != nil {
		if errors.Is(err, players.ErrNotRegistered) {
			return nil, validationErrorf("connect a wallet before joining a match")
		}
		return nil, err
	}

	match, err := e.load(matchID)
	if err != nil {
		return nil, err
	}
	if err := e.checkDeadline(match); err != nil {
		return nil, err
	}
	if match.Terminal() {
		return nil, &TerminalStateError{MatchID: match.ID, Status: match.Status}
	}
	if playerID == match.Challenger {
		return nil, validationErrorf("you cannot join your own match")
	}

	joined, err := e.registry.JoinRequest(matchID, playerID, playerName, address)
	if err != nil {
		if errors.Is(err, registry.ErrNotJoinable) {
			return nil, validationErrorf("match %s is not open for joining", matchID)
		}
		return nil, err
	}
	return joined, nil
}

// ConfirmJoin verifies the opponent's deposit, locks the stake against the
// existing escrow and activates the match.
func (e *Engine) ConfirmJoin(matchID, playerID string) (*game.Match, error) {
	match, err := e.load(matchID)
	if err != nil {
		return nil, err
	}
	if err := e.checkDeadline(match); err != nil {
		return nil, err
	}
	if match.Terminal() {
		return nil, &TerminalStateError{MatchID: match.ID, Status: match.Status}
	}
	if match.Status != game.StatusPendingJoin {
		return nil, validationErrorf("match %s has no pending join", match.ID)
	}
	if playerID != match.Opponent {
		return nil, validationErrorf("only the joining player can confirm")
	}

	if err := e.requireDeposit(match.OpponentAddress, match.BuyIn); err != nil {
		return nil, err
	}

	if err := e.escrow.JoinEscrow(match.EscrowRef, match.OpponentAddress); err != nil {
		return nil, err
	}

	match.Status = game.StatusActive
	match.ExpiresAt = 0
	if err := e.registry.Update(match); err != nil {
		return nil, err
	}
	log.Info("Match is live", "matchID", match.ID, "challenger", match.ChallengerName, "opponent", match.OpponentName)
	return match, nil
}

// SubmitRoll applies one dice throw for playerID to the current round.
// It either leaves the round open for the other side, scores the round, or
// ends and settles the match.
func (e *Engine) SubmitRoll(matchID, playerID string) (*RollOutcome, error) {
	match, err := e.load(matchID)
	if err != nil {
		return nil, err
	}
	if err := e.checkDeadline(match); err != nil {
		return nil, err
	}
	if match.Terminal() {
		return nil, &TerminalStateError{MatchID: match.ID, Status: match.Status}
	}
	if match.Status != game.StatusActive {
		return nil, validationErrorf("match %s is not active", match.ID)
	}
	side, ok := match.SideOf(playerID)
	if !ok {
		return nil, validationErrorf("you are not a participant of match %s", match.ID)
	}

	for len(match.Rounds) <= match.CurrentRound {
		match.Rounds = append(match.Rounds, game.Round{})
	}
	round := &match.Rounds[match.CurrentRound]
	if (side == game.SideChallenger && round.Challenger != nil) ||
		(side == game.SideOpponent && round.Opponent != nil) {
		return nil, validationErrorf("you have already rolled in round %d", match.CurrentRound+1)
	}

	roll := game.NewRollResult(e.roller.Roll())
	if side == game.SideChallenger {
		round.Challenger = &roll
	} else {
		round.Opponent = &roll
	}
	e.metrics.IncRollsSubmitted()
	log.Info("Roll submitted", "matchID", match.ID, "player", playerID, "dice", []int{roll.Die1, roll.Die2}, "round", match.CurrentRound+1)

	if !round.Complete() {
		if err := e.registry.Update(match); err != nil {
			return nil, err
		}
		return &RollOutcome{Match: match, Roll: roll, Waiting: true}, nil
	}

	outcome, err := game.ResolveRound(match)
	if err != nil {
		return nil, err
	}

	if !outcome.MatchOver {
		if err := e.registry.Update(match); err != nil {
			return nil, err
		}
		return &RollOutcome{Match: match, Roll: roll, Round: &outcome}, nil
	}

	return e.completeMatch(match, roll, outcome)
}

// completeMatch records the winner and settles the pot. On settlement
// failure the match keeps its winner but carries the unresolved-payout flag;
// it is never reopened and the payout is never retried here.
func (e *Engine) completeMatch(match *game.Match, roll game.RollResult, outcome game.RoundOutcome) (*RollOutcome, error) {
	match.Status = game.StatusCompleted
	match.Winner = outcome.WinnerID
	match.EndReason = outcome.EndReason
	match.CompletedAt = time.Now().Unix()
	match.ExpiresAt = 0

	start := time.Now()
	settlement, settleErr := e.escrow.Settle(match.EscrowRef, match.AddressOf(outcome.WinnerID))
	e.metrics.ObserveSettlementDuration(time.Since(start).Seconds())

	if settleErr != nil {
		match.PayoutPending = true
		log.Error("Settlement failed, flagging match for manual follow-up", "matchID", match.ID, "winner", outcome.WinnerID, "error", settleErr)
		if err := e.registry.Update(match); err != nil {
			return nil, err
		}
		return &RollOutcome{Match: match, Roll: roll, Round: &outcome},
			&SettlementError{MatchID: match.ID, Err: settleErr}
	}

	match.PayoutAmount = settlement.Amount
	if err := e.registry.Update(match); err != nil {
		return nil, err
	}
	e.metrics.IncMatchesCompleted()
	log.Info("Match completed", "matchID", match.ID, "winner", outcome.WinnerID, "reason", outcome.EndReason, "payout", settlement.Amount)

	if err := e.pubsub.SendMessage(pubsub.EventGameCompleted, match); err != nil {
		log.Error("Failed to publish game-completed event", "error", err, "matchID", match.ID)
	}
	if err := e.pubsub.SendMessage(pubsub.EventNotifyResult, match); err != nil {
		log.Error("Failed to publish notify-result event", "error", err, "matchID", match.ID)
	}

	return &RollOutcome{Match: match, Roll: roll, Round: &outcome, Settlement: &settlement}, nil
}

// Cancel withdraws a match that has not gone live yet and removes it from
// the registry. No settlement call is made.
func (e *Engine) Cancel(matchID, playerID string) error {
	match, err := e.load(matchID)
	if err != nil {
		return err
	}
	if err := e.checkDeadline(match); err != nil {
		return err
	}
	if match.Terminal() {
		return &TerminalStateError{MatchID: match.ID, Status: match.Status}
	}
	if match.Status == game.StatusActive {
		return validationErrorf("an active match cannot be cancelled")
	}
	if playerID != match.Challenger {
		return validationErrorf("only the challenger can cancel this match")
	}

	log.Info("Match cancelled", "matchID", match.ID, "by", playerID)
	return e.registry.Delete(match.ID)
}

// SweepExpired applies deadline expiry to every unfinished match and removes
// completed matches past the lottery grace period.
func (e *Engine) SweepExpired(now time.Time) (SweepResult, error) {
	var result SweepResult

	unfinished, err := e.registry.ListUnfinished()
	if err != nil {
		return result, err
	}
	for _, match := range unfinished {
		if !match.DeadlinePassed(now) {
			continue
		}
		if err := e.expire(match); err != nil {
			log.Error("Failed to expire match", "error", err, "matchID", match.ID)
			continue
		}
		if match.Status == game.StatusPendingJoin {
			result.Reopened++
		} else {
			result.Expired++
		}
	}

	stale, err := e.registry.ListCompletedBefore(now.Add(-game.LotteryGrace))
	if err != nil {
		return result, err
	}
	for _, match := range stale {
		if err := e.registry.Delete(match.ID); err != nil {
			log.Error("Failed to clean up completed match", "error", err, "matchID", match.ID)
			continue
		}
		result.Cleaned++
	}

	if result.Expired+result.Reopened+result.Cleaned > 0 {
		log.Info("Expiry sweep finished", "expired", result.Expired, "reopened", result.Reopened, "cleaned", result.Cleaned)
	}
	return result, nil
}

// expire applies the per-status expiry policy: a join-side expiry releases
// the opponent slot and reopens the match, a create-side expiry deletes it.
func (e *Engine) expire(match *game.Match) error {
	e.metrics.IncMatchesExpired()
	if match.Status == game.StatusPendingJoin {
		log.Info("Join deadline elapsed, reopening match", "matchID", match.ID)
		return e.registry.ReleaseOpponent(match.ID)
	}
	log.Info("Creation deadline elapsed, removing match", "matchID", match.ID, "status", match.Status)
	return e.registry.Delete(match.ID)
}

// checkDeadline is the lazy half of expiry: a mutating operation arriving
// after the deadline but before the sweep applies the expiry itself and
// reports the match as terminal.
func (e *Engine) checkDeadline(match *game.Match) error {
	if !match.DeadlinePassed(time.Now()) {
		return nil
	}
	if err := e.expire(match); err != nil {
		return err
	}
	return &TerminalStateError{MatchID: match.ID, Status: game.StatusExpired}
}

func (e *Engine) requireDeposit(address string, buyIn float64) error {
	deposit, err := e.escrow.GetDeposit(address)
	if err != nil {
		return err
	}
	if deposit < buyIn {
		return &InsufficientDepositError{Required: buyIn, Available: deposit}
	}
	return nil
}

func (e *Engine) load(matchID string) (*game.Match, error) {
	match, err := e.registry.Get(matchID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, validationErrorf("match %s not found", matchID)
		}
		return nil, err
	}
	return match, nil
}
