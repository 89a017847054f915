package players

import "errors"

// ErrNotRegistered is returned when a player has not connected a wallet yet.
var ErrNotRegistered = errors.New("player has no connected wallet")

// PlayerStore persists the user-to-wallet mapping and historical results.
type PlayerStore interface {
	// Connect registers (or re-points) a player's wallet address.
	Connect(playerID, name, walletAddress string) error
	// Get returns the player or ErrNotRegistered.
	Get(playerID string) (*PlayerInfo, error)
	// AddressOf returns the player's payout address or ErrNotRegistered.
	AddressOf(playerID string) (string, error)
	// IsKnownPlayer reports whether the player has connected a wallet.
	IsKnownPlayer(playerID string) bool
	// GetAllPlayers lists every registered player.
	GetAllPlayers() ([]PlayerInfo, error)
	// RecordGame appends a finished duel to history.
	RecordGame(rec *GameRecord) error
	// RecordLotteryRoll appends a lottery throw.
	RecordLotteryRoll(rec *LotteryRecord) error
	// GetPlayerStats aggregates one player's history.
	GetPlayerStats(playerID string) (*PlayerStats, error)
	// GetLeaderboard returns player stats ordered by wins then winnings.
	GetLeaderboard(limit int) ([]PlayerStats, error)
}
