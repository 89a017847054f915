package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := make(map[string]string)
	required := []string{"TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN"}

	for _, key := range required {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		} else {
			log.Fatalf("Error: Required environment variable %s is not set.", key)
		}
	}
	return config
}

type dummyPlayer struct {
	ID      string
	Name    string
	Address string
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	// Connect directly to the primary database
	dbURL := fmt.Sprintf("%s?authToken=%s", cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	db, err := sql.Open("libsql", dbURL)
	if err != nil {
		log.Fatalf("Failed to open primary database: %s", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to connect to primary database: %s", err)
	}

	log.Info("Successfully connected to the primary database.")

	// Create 4 dummy players to use in matches
	dummyPlayers := []dummyPlayer{
		{ID: "player-1", Name: "Seeder Player A", Address: "0xseed000000000000000000000000000000000001"},
		{ID: "player-2", Name: "Seeder Player B", Address: "0xseed000000000000000000000000000000000002"},
		{ID: "player-3", Name: "Seeder Player C", Address: "0xseed000000000000000000000000000000000003"},
		{ID: "player-4", Name: "Seeder Player D", Address: "0xseed000000000000000000000000000000000004"},
	}

	for _, p := range dummyPlayers {
		_, err := db.Exec("INSERT OR IGNORE INTO players (id, name, wallet_address, created_at) VALUES (?, ?, ?, ?)",
			p.ID, p.Name, p.Address, time.Now().Unix())
		if err != nil {
			log.Fatalf("Failed to insert dummy player %s: %s", p.Name, err)
		}
	}
	log.Info("Ensured dummy players exist.")

	const batchSize = 100 // Insert 100 games at a time
	const numGames = 10000

	log.Info("Preparing to insert dummy game history...", "total", numGames, "batch_size", batchSize)
	startTime := time.Now()

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %s", err)
	}

	valueStrings := make([]string, 0, batchSize)
	valueArgs := make([]interface{}, 0, batchSize*11) // 11 columns per game

	for i := 0; i < numGames; i++ {
		completedAt := time.Now().Add(-time.Duration(rand.Intn(365*24)) * time.Hour)
		challenger := dummyPlayers[rand.Intn(len(dummyPlayers))]
		opponent := dummyPlayers[rand.Intn(len(dummyPlayers))]
		for opponent.ID == challenger.ID {
			opponent = dummyPlayers[rand.Intn(len(dummyPlayers))]
		}

		buyIn := float64(10 + rand.Intn(90))
		challengerScore := 15 + rand.Intn(20)
		opponentScore := 15 + rand.Intn(20)
		for opponentScore == challengerScore {
			opponentScore = 15 + rand.Intn(20)
		}
		winner := challenger
		if opponentScore > challengerScore {
			winner = opponent
		}

		valueStrings = append(valueStrings, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		valueArgs = append(valueArgs,
			uuid.NewString(),
			challenger.ID,
			opponent.ID,
			winner.ID,
			buyIn,
			buyIn*2*0.98,
			game.EndReasonScore,
			challengerScore,
			opponentScore,
			game.RoundsPerMatch,
			completedAt.Unix(),
		)

		if (i+1)%batchSize == 0 || (i+1) == numGames {
			stmt := fmt.Sprintf(`
				INSERT INTO game_history (id, challenger_id, opponent_id, winner_id, buy_in, payout,
					end_reason, challenger_score, opponent_score, rounds_played, completed_at)
				VALUES %s;`, strings.Join(valueStrings, ","))

			_, err := tx.Exec(stmt, valueArgs...)
			if err != nil {
				tx.Rollback()
				log.Fatalf("Failed to execute batch insert: %s", err)
			}

			// Reset for the next batch
			valueStrings = make([]string, 0, batchSize)
			valueArgs = make([]interface{}, 0, batchSize*11)
			log.Info("Inserted batch", "completed", i+1, "total", numGames)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %s", err)
	}

	duration := time.Since(startTime)
	log.Info("Successfully inserted all dummy game history.", "duration", duration)
}
