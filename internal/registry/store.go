package registry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
)

// store handles database operations for the match registry.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a new SQLite-backed MatchRegistry.
func NewStore(db *sql.DB) MatchRegistry {
	return &store{
		db: db,
	}
}

const matchColumns = `
	id, challenger_id, challenger_name, opponent_id, opponent_name,
	challenger_address, opponent_address, buy_in, status, rounds_json,
	current_round, challenger_score, opponent_score, winner_id, end_reason,
	escrow_ref, payout_amount, payout_pending, lottery_rolled,
	created_at, expires_at, completed_at, version`

func (s *store) Create(challengerID, challengerName, challengerAddress string, buyIn float64) (*game.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	match := &game.Match{
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

	roundsJSON, err := json.Marshal(match.Rounds)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		INSERT INTO matches (id, challenger_id, challenger_name, challenger_address, buy_in, status, rounds_json, created_at, expires_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`, match.ID, match.Challenger, match.ChallengerName, match.ChallengerAddress, match.BuyIn, match.Status, roundsJSON, match.CreatedAt, match.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	log.Info("Created match", "matchID", match.ID, "challenger", challengerName, "buyIn", buyIn)
	return match, nil
}

func (s *store) Get(matchID string) (*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID)
	match, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return match, nil
}

func (s *store) JoinRequest(matchID, opponentID, opponentName, opponentAddress string) (*game.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Now().Add(game.JoinTimeout).Unix()

	// The WHERE clause doubles as the slot reservation: only a waiting
	// match with an empty opponent seat can be claimed.
	res, err := s.db.Exec(`
		UPDATE matches
		SET opponent_id = ?, opponent_name = ?, opponent_address = ?, status = ?, expires_at = ?, version = version + 1
		WHERE id = ? AND status = ? AND opponent_id IS NULL
	`, opponentID, opponentName, opponentAddress, game.StatusPendingJoin, expiresAt, matchID, game.StatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve opponent slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, err := s.getLocked(matchID); err != nil {
			return nil, err
		}
		return nil, ErrNotJoinable
	}

	log.Info("Reserved opponent slot", "matchID", matchID, "opponent", opponentName)
	return s.getLocked(matchID)
}

func (s *store) ReleaseOpponent(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt := time.Now().Add(game.CreateTimeout).Unix()
	res, err := s.db.Exec(`
		UPDATE matches
		SET opponent_id = NULL, opponent_name = NULL, opponent_address = NULL, status = ?, expires_at = ?, version = version + 1
		WHERE id = ? AND status = ?
	`, game.StatusWaiting, expiresAt, matchID, game.StatusPendingJoin)
	if err != nil {
		return fmt.Errorf("failed to release opponent slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	log.Info("Released opponent slot, match reopened", "matchID", matchID)
	return nil
}

// Update writes the full match state back, guarded by the version read at
// load time. A zero-row update means either the match disappeared or a
// concurrent writer got there first.
func (s *store) Update(m *game.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	roundsJSON, err := json.Marshal(m.Rounds)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE matches
		SET opponent_id = ?, opponent_name = ?, opponent_address = ?, status = ?,
			rounds_json = ?, current_round = ?, challenger_score = ?, opponent_score = ?,
			winner_id = ?, end_reason = ?, escrow_ref = ?, payout_amount = ?, payout_pending = ?,
			expires_at = ?, completed_at = ?, version = version + 1
		WHERE id = ? AND version = ?
	`,
		nullString(m.Opponent), nullString(m.OpponentName), nullString(m.OpponentAddress), m.Status,
		roundsJSON, m.CurrentRound, m.ChallengerScore, m.OpponentScore,
		nullString(m.Winner), nullString(string(m.EndReason)), nullString(m.EscrowRef), m.PayoutAmount, m.PayoutPending,
		m.ExpiresAt, m.CompletedAt,
		m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.getLocked(m.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	m.Version++
	return nil
}

func (s *store) Delete(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec("DELETE FROM matches WHERE id = ?", matchID)
	if err != nil {
		return fmt.Errorf("failed to delete match: %w", err)
	}
	return nil
}

func (s *store) ListByStatus(status game.MatchStatus) ([]*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list("SELECT "+matchColumns+" FROM matches WHERE status = ? ORDER BY created_at", status)
}

func (s *store) ListUnfinished() ([]*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(
		"SELECT "+matchColumns+" FROM matches WHERE status NOT IN (?, ?, ?) ORDER BY created_at",
		game.StatusCompleted, game.StatusCancelled, game.StatusExpired,
	)
}

func (s *store) ListCompletedBefore(cutoff time.Time) ([]*game.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(
		"SELECT "+matchColumns+" FROM matches WHERE status = ? AND completed_at < ? ORDER BY completed_at",
		game.StatusCompleted, cutoff.Unix(),
	)
}

// MarkLotteryRolled is the idempotency gate for the lottery: the conditional
// UPDATE succeeds for exactly one caller per match.
func (s *store) MarkLotteryRolled(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE matches SET lottery_rolled = 1, version = version + 1
		WHERE id = ? AND lottery_rolled = 0
	`, matchID)
	if err != nil {
		return fmt.Errorf("failed to mark lottery rolled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.getLocked(matchID); err != nil {
			return err
		}
		return ErrLotteryAlreadyRolled
	}
	return nil
}

func (s *store) list(query string, args ...any) ([]*game.Match, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*game.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

// getLocked fetches a match without taking the store lock; callers must hold it.
func (s *store) getLocked(matchID string) (*game.Match, error) {
	row := s.db.QueryRow("SELECT "+matchColumns+" FROM matches WHERE id = ?", matchID)
	match, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return match, nil
}

func scanMatch(scanner interface{ Scan(...any) error }) (*game.Match, error) {
	var match game.Match
	var opponentID, opponentName, opponentAddress, winnerID, endReason, escrowRef sql.NullString
	var roundsJSON sql.NullString

	err := scanner.Scan(
		&match.ID, &match.Challenger, &match.ChallengerName, &opponentID, &opponentName,
		&match.ChallengerAddress, &opponentAddress, &match.BuyIn, &match.Status, &roundsJSON,
		&match.CurrentRound, &match.ChallengerScore, &match.OpponentScore, &winnerID, &endReason,
		&escrowRef, &match.PayoutAmount, &match.PayoutPending, &match.LotteryRolled,
		&match.CreatedAt, &match.ExpiresAt, &match.CompletedAt, &match.Version,
	)
	if err != nil {
		return nil, err
	}

	match.Opponent = opponentID.String
	match.OpponentName = opponentName.String
	match.OpponentAddress = opponentAddress.String
	match.Winner = winnerID.String
	match.EndReason = game.EndReason(endReason.String)
	match.EscrowRef = escrowRef.String

	if roundsJSON.Valid && roundsJSON.String != "" {
		if err := json.Unmarshal([]byte(roundsJSON.String), &match.Rounds); err != nil {
			log.Error("Failed to unmarshal rounds_json", "error", err, "matchID", match.ID)
		}
	}
	if match.Rounds == nil {
		match.Rounds = []game.Round{}
	}

	return &match, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
