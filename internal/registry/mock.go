package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
)

// Mock is an in-memory MatchRegistry for testing. It is safe for concurrent
// use and honors the same version semantics as the SQLite store.
type Mock struct {
	mu      sync.Mutex
	matches map[string]*game.Match

	// Spies; when set they replace the default in-memory behavior.
	UpdateFunc            func(m *game.Match) error
	MarkLotteryRolledFunc func(matchID string) error

	// Call records
	UpdateCalls            []*game.Match
	DeleteCalls            []string
	MarkLotteryRolledCalls []string
}

// NewMock creates a new mock registry.
func NewMock() *Mock {
	return &Mock{matches: make(map[string]*game.Match)}
}

// Put seeds a match directly, bypassing lifecycle rules.
func (r *Mock) Put(m *game.Match) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneMatch(m)
	r.matches[m.ID] = cp
}

func (r *Mock) Create(challengerID, challengerName, challengerAddress string, buyIn float64) (*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	m := &game.Match{
		ID:                uuid.New().String(),
		Challenger:        challengerID,
		ChallengerName:    challengerName,
		ChallengerAddress: challengerAddress,
		BuyIn:             buyIn,
		Status:            game.StatusPendingDeposit,
		Rounds:            []game.Round{},
		CreatedAt:         now.Unix(),
		ExpiresAt:         now.Add(game.CreateTimeout).Unix(),
	}
	r.matches[m.ID] = cloneMatch(m)
	return m, nil
}

func (r *Mock) Get(matchID string) (*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneMatch(m), nil
}

func (r *Mock) JoinRequest(matchID, opponentID, opponentName, opponentAddress string) (*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Status != game.StatusWaiting || m.Opponent != "" {
		return nil, ErrNotJoinable
	}
	m.Opponent = opponentID
	m.OpponentName = opponentName
	m.OpponentAddress = opponentAddress
	m.Status = game.StatusPendingJoin
	m.ExpiresAt = time.Now().Add(game.JoinTimeout).Unix()
	m.Version++
	return cloneMatch(m), nil
}

func (r *Mock) ReleaseOpponent(matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.matches[matchID]
	if !ok {
		return ErrNotFound
	}
	m.Opponent = ""
	m.OpponentName = ""
	m.OpponentAddress = ""
	m.Status = game.StatusWaiting
	m.ExpiresAt = time.Now().Add(game.CreateTimeout).Unix()
	m.Version++
	return nil
}

func (r *Mock) Update(m *game.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UpdateCalls = append(r.UpdateCalls, cloneMatch(m))
	if r.UpdateFunc != nil {
		return r.UpdateFunc(m)
	}
	stored, ok := r.matches[m.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != m.Version {
		return ErrVersionConflict
	}
	cp := cloneMatch(m)
	cp.Version++
	r.matches[m.ID] = cp
	m.Version++
	return nil
}

func (r *Mock) Delete(matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.DeleteCalls = append(r.DeleteCalls, matchID)
	delete(r.matches, matchID)
	return nil
}

func (r *Mock) ListByStatus(status game.MatchStatus) ([]*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*game.Match
	for _, m := range r.matches {
		if m.Status == status {
			out = append(out, cloneMatch(m))
		}
	}
	return out, nil
}

func (r *Mock) ListUnfinished() ([]*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*game.Match
	for _, m := range r.matches {
		if !m.Terminal() {
			out = append(out, cloneMatch(m))
		}
	}
	return out, nil
}

func (r *Mock) ListCompletedBefore(cutoff time.Time) ([]*game.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*game.Match
	for _, m := range r.matches {
		if m.Status == game.StatusCompleted && m.CompletedAt < cutoff.Unix() {
			out = append(out, cloneMatch(m))
		}
	}
	return out, nil
}

func (r *Mock) MarkLotteryRolled(matchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.MarkLotteryRolledCalls = append(r.MarkLotteryRolledCalls, matchID)
	if r.MarkLotteryRolledFunc != nil {
		return r.MarkLotteryRolledFunc(matchID)
	}
	m, ok := r.matches[matchID]
	if !ok {
		return ErrNotFound
	}
	if m.LotteryRolled {
		return ErrLotteryAlreadyRolled
	}
	m.LotteryRolled = true
	m.Version++
	return nil
}

func cloneMatch(m *game.Match) *game.Match {
	cp := *m
	cp.Rounds = make([]game.Round, len(m.Rounds))
	for i, rd := range m.Rounds {
		cp.Rounds[i] = rd
		if rd.Challenger != nil {
			c := *rd.Challenger
			cp.Rounds[i].Challenger = &c
		}
		if rd.Opponent != nil {
			o := *rd.Opponent
			cp.Rounds[i].Opponent = &o
		}
	}
	return &cp
}
