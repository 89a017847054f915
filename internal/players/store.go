package players

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// store handles database operations for players and their history.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new PlayerStore.
func New(db *sql.DB) PlayerStore {
	return &store{
		db: db,
	}
}

func (s *store) Connect(playerID, name, walletAddress string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO players (id, name, wallet_address, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			wallet_address = excluded.wallet_address;
	`, playerID, name, walletAddress, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to connect wallet: %w", err)
	}

	log.Info("Connected wallet", "playerID", playerID, "name", name, "address", walletAddress)
	return nil
}

func (s *store) Get(playerID string) (*PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p PlayerInfo
	err := s.db.QueryRow(
		"SELECT id, name, wallet_address, created_at FROM players WHERE id = ?", playerID,
	).Scan(&p.ID, &p.Name, &p.WalletAddress, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return &p, nil
}

func (s *store) AddressOf(playerID string) (string, error) {
	p, err := s.Get(playerID)
	if err != nil {
		return "", err
	}
	return p.WalletAddress, nil
}

func (s *store) IsKnownPlayer(playerID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exists bool
	err := s.db.QueryRow("SELECT EXISTS(SELECT 1 FROM players WHERE id = ?)", playerID).Scan(&exists)
	if err != nil {
		log.Error("Failed to check if player exists", "error", err, "playerID", playerID)
		return false
	}
	return exists
}

func (s *store) GetAllPlayers() ([]PlayerInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, wallet_address, created_at FROM players ORDER BY name")
	if err != nil {
		log.Error("Failed to query all players", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []PlayerInfo
	for rows.Next() {
		var p PlayerInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.WalletAddress, &p.CreatedAt); err != nil {
			log.Error("Failed to scan player row", "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *store) RecordGame(rec *GameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO game_history (id, challenger_id, opponent_id, winner_id, buy_in, payout, end_reason, challenger_score, opponent_score, rounds_played, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;
	`, rec.ID, rec.ChallengerID, rec.OpponentID, rec.WinnerID, rec.BuyIn, rec.Payout, rec.EndReason, rec.ChallengerScore, rec.OpponentScore, rec.RoundsPlayed, rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}
	log.Debug("Recorded finished game", "gameID", rec.ID, "winner", rec.WinnerID)
	return nil
}

func (s *store) RecordLotteryRoll(rec *LotteryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO lottery_rolls (id, match_id, player_id, die1, die2, total, won, payout, rolled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.MatchID, rec.PlayerID, rec.Die1, rec.Die2, rec.Total, rec.Won, rec.Payout, rec.RolledAt)
	if err != nil {
		return fmt.Errorf("failed to record lottery roll: %w", err)
	}
	return nil
}

const statsQuery = `
	SELECT
		p.id,
		p.name,
		COUNT(g.id),
		COALESCE(SUM(CASE WHEN g.winner_id = p.id THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN g.winner_id IS NOT NULL AND g.winner_id != p.id THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(g.buy_in), 0),
		COALESCE(SUM(CASE WHEN g.winner_id = p.id THEN g.payout ELSE 0 END), 0),
		(SELECT COUNT(*) FROM lottery_rolls lr WHERE lr.player_id = p.id AND lr.won = 1)
	FROM players p
	LEFT JOIN game_history g ON g.challenger_id = p.id OR g.opponent_id = p.id
`

func (s *store) GetPlayerStats(playerID string) (*PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(statsQuery+" WHERE p.id = ? GROUP BY p.id", playerID)

	var stat PlayerStats
	err := row.Scan(
		&stat.PlayerID,
		&stat.PlayerName,
		&stat.GamesPlayed,
		&stat.GamesWon,
		&stat.GamesLost,
		&stat.TotalWagered,
		&stat.TotalWon,
		&stat.LotteryWins,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("failed to query player stats: %w", err)
	}

	if stat.GamesPlayed > 0 {
		stat.WinPercentage = (float64(stat.GamesWon) / float64(stat.GamesPlayed)) * 100
	}
	return &stat, nil
}

func (s *store) GetLeaderboard(limit int) ([]PlayerStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		statsQuery+" GROUP BY p.id ORDER BY 4 DESC, 7 DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []PlayerStats
	for rows.Next() {
		var stat PlayerStats
		err := rows.Scan(
			&stat.PlayerID,
			&stat.PlayerName,
			&stat.GamesPlayed,
			&stat.GamesWon,
			&stat.GamesLost,
			&stat.TotalWagered,
			&stat.TotalWon,
			&stat.LotteryWins,
		)
		if err != nil {
			return nil, err
		}
		if stat.GamesPlayed > 0 {
			stat.WinPercentage = (float64(stat.GamesWon) / float64(stat.GamesPlayed)) * 100
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
