package notifier

import (
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
)

// Notifier defines a high-level interface for sending notifications about duel events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For completed matches, posted to the channel
	SendResultNotification(match *game.Match, dryRun bool) error
	// For lottery throws, posted to the channel
	SendLotteryResult(record *players.LotteryRecord, playerName string, dryRun bool) error
	// For slash commands
	SendLeaderboard(stats []players.PlayerStats, dryRun bool) error
	SendPlayerStats(stats *players.PlayerStats, query string, dryRun bool) error
	SendPlayerNotFound(query string, dryRun bool) error

	// For formatting responses for slash commands
	FormatConnectResponse(info *players.PlayerInfo) (any, error)
	FormatMatchCreatedResponse(match *game.Match) (any, error)
	FormatMatchOpenResponse(match *game.Match) (any, error)
	FormatJoinResponse(match *game.Match) (any, error)
	FormatMatchLiveResponse(match *game.Match) (any, error)
	FormatRollResponse(match *game.Match, roll game.RollResult, round *game.RoundOutcome) (any, error)
	FormatLotteryResponse(record *players.LotteryRecord) (any, error)
	FormatGamesResponse(matches []*game.Match) (any, error)
	FormatJackpotResponse(pool float64) (any, error)
	FormatLeaderboardResponse(stats []players.PlayerStats) (any, error)
	FormatPlayerStatsResponse(stats *players.PlayerStats, query string) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
}
