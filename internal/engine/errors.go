package engine

import (
	"fmt"

	"github.com/wildwestlabs/dice-duel-bot/internal/game"
)

// ValidationError reports malformed or misdirected input. No state was
// mutated and the caller may correct and retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// InsufficientDepositError reports an escrow balance below the required
// stake at confirm time. The match stays in its pre-confirm status so the
// action can be retried after a top-up.
type InsufficientDepositError struct {
	Required  float64
	Available float64
}

func (e *InsufficientDepositError) Error() string {
	return fmt.Sprintf("insufficient deposit: need %.2f, have %.2f (short %.2f)",
		e.Required, e.Available, e.Shortfall())
}

// Shortfall is the amount the player must still deposit.
func (e *InsufficientDepositError) Shortfall() float64 {
	return e.Required - e.Available
}

// TerminalStateError reports an action attempted on a match that already
// reached a terminal status. It never mutates state.
type TerminalStateError struct {
	MatchID string
	Status  game.MatchStatus
}

func (e *TerminalStateError) Error() string {
	return fmt.Sprintf("match %s is %s and accepts no further actions", e.MatchID, e.Status)
}

// SettlementError reports that the escrow ledger rejected or failed a payout
// after a winner was determined. The match is flagged with an unresolved
// payout and is never reopened; the call is never retried automatically
// because repeating a stake-moving operation risks a double payout.
type SettlementError struct {
	MatchID string
	Err     error
}

func (e *SettlementError) Error() string {
	return fmt.Sprintf("settlement failed for match %s, manual follow-up required: %v", e.MatchID, e.Err)
}

func (e *SettlementError) Unwrap() error {
	return e.Err
}
