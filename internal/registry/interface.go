package registry

import (
	"errors"
	"time"

	"github.com/wildwestlabs/dice-duel-bot/internal/game"
)

var (
	// ErrNotFound is returned when no match exists for the given ID.
	ErrNotFound = errors.New("match not found")
	// ErrVersionConflict is returned when an update lost a compare-and-swap
	// race against a concurrent mutation of the same match.
	ErrVersionConflict = errors.New("match was modified concurrently")
	// ErrNotJoinable is returned when a join request targets a match whose
	// opponent slot is not open.
	ErrNotJoinable = errors.New("match is not open for joining")
	// ErrLotteryAlreadyRolled is returned when a second lottery roll is
	// attempted for the same match.
	ErrLotteryAlreadyRolled = errors.New("lottery already rolled for match")
)

// MatchRegistry owns the set of in-flight matches keyed by match ID.
type MatchRegistry interface {
	// Create inserts a new match in pending_deposit with the creation
	// deadline set and returns it.
	Create(challengerID, challengerName, challengerAddress string, buyIn float64) (*game.Match, error)
	// Get returns the match or ErrNotFound.
	Get(matchID string) (*game.Match, error)
	// JoinRequest reserves the opponent slot of a waiting match, moving it
	// to pending_join with the join deadline set. Returns ErrNotJoinable if
	// the slot is taken or the match is not waiting.
	JoinRequest(matchID, opponentID, opponentName, opponentAddress string) (*game.Match, error)
	// ReleaseOpponent clears a reserved opponent slot and returns the match
	// to waiting with a fresh creation deadline. Used on join-side expiry.
	ReleaseOpponent(matchID string) error
	// Update persists the match guarded by its version: the write only
	// succeeds if the stored version still equals m.Version, and bumps it.
	Update(m *game.Match) error
	// Delete removes the match outright.
	Delete(matchID string) error
	// ListByStatus returns all matches in the given status.
	ListByStatus(status game.MatchStatus) ([]*game.Match, error)
	// ListUnfinished returns all matches not yet in a terminal status.
	ListUnfinished() ([]*game.Match, error)
	// ListCompletedBefore returns completed matches whose completion time is
	// older than the cutoff, for post-grace cleanup.
	ListCompletedBefore(cutoff time.Time) ([]*game.Match, error)
	// MarkLotteryRolled flips the lottery marker exactly once per match;
	// a second call returns ErrLotteryAlreadyRolled.
	MarkLotteryRolled(matchID string) error
}
