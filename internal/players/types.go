package players

// PlayerInfo is a registered player with a connected wallet.
type PlayerInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WalletAddress string `json:"wallet_address"`
	CreatedAt     int64  `json:"created_at"`
}

// PlayerStats aggregates a player's duel history.
type PlayerStats struct {
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	GamesPlayed   int     `json:"games_played"`
	GamesWon      int     `json:"games_won"`
	GamesLost     int     `json:"games_lost"`
	TotalWagered  float64 `json:"total_wagered"`
	TotalWon      float64 `json:"total_won"`
	WinPercentage float64 `json:"win_percentage"`
	LotteryWins   int     `json:"lottery_wins"`
}

// GameRecord is one finished duel persisted to history.
type GameRecord struct {
	ID              string  `json:"id"`
	ChallengerID    string  `json:"challenger_id"`
	OpponentID      string  `json:"opponent_id"`
	WinnerID        string  `json:"winner_id"`
	BuyIn           float64 `json:"buy_in"`
	Payout          float64 `json:"payout"`
	EndReason       string  `json:"end_reason"`
	ChallengerScore int     `json:"challenger_score"`
	OpponentScore   int     `json:"opponent_score"`
	RoundsPlayed    int     `json:"rounds_played"`
	CompletedAt     int64   `json:"completed_at"`
}

// LotteryRecord is one lottery throw persisted for auditing.
type LotteryRecord struct {
	ID       string  `json:"id"`
	MatchID  string  `json:"match_id"`
	PlayerID string  `json:"player_id"`
	Die1     int     `json:"die1"`
	Die2     int     `json:"die2"`
	Total    int     `json:"total"`
	Won      bool    `json:"won"`
	Payout   float64 `json:"payout"`
	RolledAt int64   `json:"rolled_at"`
}
