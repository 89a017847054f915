package notifier

import (
	"sync"

	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	SendResultNotificationCalls []struct{ Match *game.Match }
	SendLotteryResultCalls      []struct {
		Record     *players.LotteryRecord
		PlayerName string
	}
	SendLeaderboardCalls [][]players.PlayerStats
	SendPlayerStatsCalls []struct {
		Stats *players.PlayerStats
		Query string
	}
	SendPlayerNotFoundCalls []string

	// Spies for format functions
	FormatConnectResponseFunc        func(info *players.PlayerInfo) (any, error)
	FormatMatchCreatedResponseFunc   func(match *game.Match) (any, error)
	FormatRollResponseFunc           func(match *game.Match, roll game.RollResult, round *game.RoundOutcome) (any, error)
	FormatLeaderboardResponseFunc    func(stats []players.PlayerStats) (any, error)
	FormatPlayerStatsResponseFunc    func(stats *players.PlayerStats, query string) (any, error)
	FormatPlayerNotFoundResponseFunc func(query string) (any, error)
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendResultNotificationCalls = nil
	m.SendLotteryResultCalls = nil
	m.SendLeaderboardCalls = nil
	m.SendPlayerStatsCalls = nil
	m.SendPlayerNotFoundCalls = nil
}

func (m *Mock) SendResultNotification(match *game.Match, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendResultNotificationCalls = append(m.SendResultNotificationCalls, struct{ Match *game.Match }{match})
	return nil
}

func (m *Mock) SendLotteryResult(record *players.LotteryRecord, playerName string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLotteryResultCalls = append(m.SendLotteryResultCalls, struct {
		Record     *players.LotteryRecord
		PlayerName string
	}{record, playerName})
	return nil
}

func (m *Mock) SendLeaderboard(stats []players.PlayerStats, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, stats)
	return nil
}

func (m *Mock) SendPlayerStats(stats *players.PlayerStats, query string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPlayerStatsCalls = append(m.SendPlayerStatsCalls, struct {
		Stats *players.PlayerStats
		Query string
	}{stats, query})
	return nil
}

func (m *Mock) SendPlayerNotFound(query string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPlayerNotFoundCalls = append(m.SendPlayerNotFoundCalls, query)
	return nil
}

func (m *Mock) FormatConnectResponse(info *players.PlayerInfo) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatConnectResponseFunc != nil {
		return m.FormatConnectResponseFunc(info)
	}
	return "formatted_connect", nil
}

func (m *Mock) FormatMatchCreatedResponse(match *game.Match) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatMatchCreatedResponseFunc != nil {
		return m.FormatMatchCreatedResponseFunc(match)
	}
	return "formatted_match_created", nil
}

func (m *Mock) FormatMatchOpenResponse(match *game.Match) (any, error) {
	return "formatted_match_open", nil
}

func (m *Mock) FormatJoinResponse(match *game.Match) (any, error) {
	return "formatted_join", nil
}

func (m *Mock) FormatMatchLiveResponse(match *game.Match) (any, error) {
	return "formatted_match_live", nil
}

func (m *Mock) FormatRollResponse(match *game.Match, roll game.RollResult, round *game.RoundOutcome) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatRollResponseFunc != nil {
		return m.FormatRollResponseFunc(match, roll, round)
	}
	return "formatted_roll", nil
}

func (m *Mock) FormatLotteryResponse(record *players.LotteryRecord) (any, error) {
	return "formatted_lottery", nil
}

func (m *Mock) FormatGamesResponse(matches []*game.Match) (any, error) {
	return "formatted_games", nil
}

func (m *Mock) FormatJackpotResponse(pool float64) (any, error) {
	return "formatted_jackpot", nil
}

func (m *Mock) FormatLeaderboardResponse(stats []players.PlayerStats) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		return m.FormatLeaderboardResponseFunc(stats)
	}
	return "formatted_leaderboard", nil
}

func (m *Mock) FormatPlayerStatsResponse(stats *players.PlayerStats, query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerStatsResponseFunc != nil {
		return m.FormatPlayerStatsResponseFunc(stats, query)
	}
	return "formatted_player_stats", nil
}

func (m *Mock) FormatPlayerNotFoundResponse(query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerNotFoundResponseFunc != nil {
		return m.FormatPlayerNotFoundResponseFunc(query)
	}
	return "formatted_player_not_found", nil
}
