package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                  sync.Mutex
	matchesCreated      int
	matchesCompleted    int
	matchesExpired      int
	rollsSubmitted      int
	lotteryRolls        int
	settlementDurations []float64
	slackNotifSent      int
	slackNotifFailed    int
	startupTime         float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		settlementDurations: make([]float64, 0),
	}
}

func (m *Mock) IncMatchesCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCreated++
}

func (m *Mock) IncMatchesCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCompleted++
}

func (m *Mock) IncMatchesExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesExpired++
}

func (m *Mock) IncRollsSubmitted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollsSubmitted++
}

func (m *Mock) IncLotteryRolls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lotteryRolls++
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementDurations = append(m.settlementDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesCreated returns the number of times IncMatchesCreated was called.
func (m *Mock) MatchesCreated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCreated
}

// MatchesCompleted returns the number of times IncMatchesCompleted was called.
func (m *Mock) MatchesCompleted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCompleted
}

// MatchesExpired returns the number of times IncMatchesExpired was called.
func (m *Mock) MatchesExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesExpired
}

// RollsSubmitted returns the number of times IncRollsSubmitted was called.
func (m *Mock) RollsSubmitted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rollsSubmitted
}

// LotteryRolls returns the number of times IncLotteryRolls was called.
func (m *Mock) LotteryRolls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lotteryRolls
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}
