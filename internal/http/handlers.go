package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
	"github.com/wildwestlabs/dice-duel-bot/internal/engine"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var matches []*game.Match
		var err error
		if status := r.URL.Query().Get("status"); status != "" {
			matches, err = s.Registry.ListByStatus(game.MatchStatus(status))
		} else {
			matches, err = s.Registry.ListUnfinished()
		}
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get matches from registry", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(matches); err != nil {
			log.Error("Failed to encode matches to JSON", "error", err)
		}
	}
}

// StatsHandler exposes the durable operational counters. Unlike /metrics these
// survive restarts, since they live in the database.
func (s *Server) StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		counters, err := s.Counters.GetAll()
		if err != nil {
			http.Error(w, "Failed to get stats", http.StatusInternalServerError)
			log.Error("Failed to get durable counters", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(counters); err != nil {
			log.Error("Failed to encode stats to JSON", "error", err)
		}
	}
}

func (s *Server) SweepHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Info("Starting expiry sweep...")
		result, err := s.Engine.SweepExpired(time.Now())
		if err != nil {
			http.Error(w, "Sweep failed", http.StatusInternalServerError)
			log.Error("Expiry sweep failed", "error", err)
			return
		}
		s.Counters.Increment("sweeps_run")
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			log.Error("Failed to encode sweep result to JSON", "error", err)
		}
	}
}

// decodePushMessage unwraps a pubsub push delivery: the JSON envelope carries a
// base64-encoded MessagePack payload.
func (s *Server) decodePushMessage(r *http.Request, returnValue any) error {
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	log.Debug("Received push message", "body", string(bodyBytes))

	var pubsubMsg struct {
		Subscription string `json:"subscription"`
		Message      struct {
			Data string `json:"data"` // base64-encoded message payload
		} `json:"message"`
	}
	if err := json.Unmarshal(bodyBytes, &pubsubMsg); err != nil {
		return fmt.Errorf("failed to unmarshal wrapper JSON: %w", err)
	}

	rawData, err := base64.StdEncoding.DecodeString(pubsubMsg.Message.Data)
	if err != nil {
		return fmt.Errorf("failed to decode base64 data: %w", err)
	}

	return s.pubsub.ProcessMessage(rawData, returnValue)
}

// GameCompletedHandler consumes the game-completed event and writes the match
// into the players' history. The record insert is idempotent, so pubsub's
// at-least-once delivery cannot double-count a duel.
func (s *Server) GameCompletedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := game.Match{}
		if err := s.decodePushMessage(r, &match); err != nil {
			log.Error("Failed to decode game-completed message", "error", err)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}

		isDryRun := isDryRunFromContext(r)
		record := &players.GameRecord{
			ID:              match.ID,
			ChallengerID:    match.Challenger,
			OpponentID:      match.Opponent,
			WinnerID:        match.Winner,
			BuyIn:           match.BuyIn,
			Payout:          match.PayoutAmount,
			EndReason:       string(match.EndReason),
			ChallengerScore: match.ChallengerScore,
			OpponentScore:   match.OpponentScore,
			RoundsPlayed:    len(match.Rounds),
			CompletedAt:     match.CompletedAt,
		}
		if isDryRun {
			log.Info("[Dry Run] Would record game history", "matchID", match.ID)
		} else if err := s.Players.RecordGame(record); err != nil {
			log.Error("Failed to record game history", "error", err, "matchID", match.ID)
			http.Error(w, "Failed to record game", http.StatusInternalServerError)
			return
		} else {
			s.Counters.Increment("games_recorded")
		}
		w.Write([]byte("OK"))
	}
}

// NotifyResultHandler consumes the notify-result event and announces the
// finished duel in the channel.
func (s *Server) NotifyResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := game.Match{}
		if err := s.decodePushMessage(r, &match); err != nil {
			log.Error("Failed to decode notify-result message", "error", err)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}

		isDryRun := isDryRunFromContext(r)
		if err := s.Notifier.SendResultNotification(&match, isDryRun); err != nil {
			log.Error("Failed to notify result", "error", err, "matchID", match.ID)
			http.Error(w, "Failed to notify result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// LotteryRolledHandler consumes the lottery-rolled event, persists the throw
// and announces it in the channel.
func (s *Server) LotteryRolledHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		record := players.LotteryRecord{}
		if err := s.decodePushMessage(r, &record); err != nil {
			log.Error("Failed to decode lottery-rolled message", "error", err)
			http.Error(w, "Invalid message", http.StatusBadRequest)
			return
		}

		isDryRun := isDryRunFromContext(r)
		if isDryRun {
			log.Info("[Dry Run] Would record lottery roll", "matchID", record.MatchID)
		} else if err := s.Players.RecordLotteryRoll(&record); err != nil {
			log.Error("Failed to record lottery roll", "error", err, "matchID", record.MatchID)
			http.Error(w, "Failed to record lottery roll", http.StatusInternalServerError)
			return
		} else {
			s.Counters.Increment("lottery_rolls_recorded")
		}

		playerName := record.PlayerID
		if info, err := s.Players.Get(record.PlayerID); err == nil {
			playerName = info.Name
		}
		if err := s.Notifier.SendLotteryResult(&record, playerName, isDryRun); err != nil {
			log.Error("Failed to notify lottery result", "error", err, "matchID", record.MatchID)
			http.Error(w, "Failed to notify lottery result", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// respondWithFormatted casts a notifier-formatted response and writes it out.
func respondWithFormatted(w http.ResponseWriter, msg any, err error) {
	if err != nil {
		http.Error(w, "Failed to format response", http.StatusInternalServerError)
		log.Error("Failed to format response", "error", err)
		return
	}
	slackMsg, ok := msg.(slack.Message)
	if !ok {
		http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
		log.Error("Failed to cast message to slack.Message")
		return
	}
	respondWithSlackMsg(w, slackMsg)
}

// respondCommandError turns the engine's typed errors into an ephemeral
// message the player can act on; anything else is a plain 500.
func respondCommandError(w http.ResponseWriter, err error) {
	var vErr *engine.ValidationError
	var depErr *engine.InsufficientDepositError
	var termErr *engine.TerminalStateError
	var setErr *engine.SettlementError
	if errors.As(err, &vErr) || errors.As(err, &depErr) || errors.As(err, &termErr) || errors.As(err, &setErr) {
		respondWithSlackMsg(w, slack.NewBlockMessage(
			slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "⚠️ "+err.Error(), true, false), nil, nil),
		))
		return
	}
	http.Error(w, "Something went wrong", http.StatusInternalServerError)
	log.Error("Command failed", "error", err)
}

// commandForm parses a slash command payload and returns the caller plus the
// trimmed text argument.
func commandForm(w http.ResponseWriter, r *http.Request) (userID, userName, text string, ok bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return "", "", "", false
	}
	return r.FormValue("user_id"), r.FormValue("user_name"), strings.TrimSpace(r.FormValue("text")), true
}

// ConnectCommandHandler returns a handler for the /duel-connect Slack command.
func (s *Server) ConnectCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, userName, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Wallet address is required. Usage: /duel-connect <address>", http.StatusBadRequest)
			return
		}

		log.Info("Received connect command", "user", userID)
		if err := s.Players.Connect(userID, userName, text); err != nil {
			respondCommandError(w, err)
			return
		}
		info, err := s.Players.Get(userID)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatConnectResponse(info)
		respondWithFormatted(w, msg, err)
	}
}

// CreateCommandHandler returns a handler for the /duel-create Slack command.
func (s *Server) CreateCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, userName, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		buyIn, err := strconv.ParseFloat(text, 64)
		if err != nil {
			http.Error(w, "Buy-in amount is required. Usage: /duel-create <amount>", http.StatusBadRequest)
			return
		}

		log.Info("Received create command", "user", userID, "buyIn", buyIn)
		match, err := s.Engine.CreateMatch(userID, userName, buyIn)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatMatchCreatedResponse(match)
		respondWithFormatted(w, msg, err)
	}
}

// ConfirmCommandHandler returns a handler for the /duel-confirm Slack command.
func (s *Server) ConfirmCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-confirm <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received confirm command", "user", userID, "matchID", text)
		match, err := s.Engine.ConfirmCreate(text, userID)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatMatchOpenResponse(match)
		respondWithFormatted(w, msg, err)
	}
}

// JoinCommandHandler returns a handler for the /duel-join Slack command.
func (s *Server) JoinCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, userName, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-join <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received join command", "user", userID, "matchID", text)
		match, err := s.Engine.Join(text, userID, userName)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatJoinResponse(match)
		respondWithFormatted(w, msg, err)
	}
}

// ConfirmJoinCommandHandler returns a handler for the /duel-confirm-join Slack command.
func (s *Server) ConfirmJoinCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-confirm-join <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received confirm-join command", "user", userID, "matchID", text)
		match, err := s.Engine.ConfirmJoin(text, userID)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatMatchLiveResponse(match)
		respondWithFormatted(w, msg, err)
	}
}

// RollCommandHandler returns a handler for the /duel-roll Slack command.
func (s *Server) RollCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-roll <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received roll command", "user", userID, "matchID", text)
		outcome, err := s.Engine.SubmitRoll(text, userID)
		if err != nil {
			// A settlement failure still produced a decided match; the
			// error text tells the winner what happened.
			respondCommandError(w, err)
			return
		}

		msg, err := s.Notifier.FormatRollResponse(outcome.Match, outcome.Roll, outcome.Round)
		respondWithFormatted(w, msg, err)
	}
}

// CancelCommandHandler returns a handler for the /duel-cancel Slack command.
func (s *Server) CancelCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-cancel <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received cancel command", "user", userID, "matchID", text)
		if err := s.Engine.Cancel(text, userID); err != nil {
			respondCommandError(w, err)
			return
		}

		respondWithSlackMsg(w, slack.NewBlockMessage(
			slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Match cancelled.", true, false), nil, nil),
		))
	}
}

// LotteryCommandHandler returns a handler for the /duel-lottery Slack command.
func (s *Server) LotteryCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, _, text, ok := commandForm(w, r)
		if !ok {
			return
		}
		if text == "" {
			http.Error(w, "Match ID is required. Usage: /duel-lottery <match-id>", http.StatusBadRequest)
			return
		}

		log.Info("Received lottery command", "user", userID, "matchID", text)
		outcome, err := s.Engine.RollLottery(text, userID)
		if err != nil {
			respondCommandError(w, err)
			return
		}

		record := &players.LotteryRecord{
			MatchID:  outcome.MatchID,
			PlayerID: userID,
			Die1:     outcome.Roll.Die1,
			Die2:     outcome.Roll.Die2,
			Total:    outcome.Roll.Total,
			Won:      outcome.Won,
			Payout:   outcome.Payout,
		}
		msg, err := s.Notifier.FormatLotteryResponse(record)
		respondWithFormatted(w, msg, err)
	}
}

// GamesCommandHandler returns a handler for the /duel-games Slack command.
func (s *Server) GamesCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		waiting, err := s.Registry.ListByStatus(game.StatusWaiting)
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get waiting matches from registry", "error", err)
			return
		}
		active, err := s.Registry.ListByStatus(game.StatusActive)
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get active matches from registry", "error", err)
			return
		}

		msg, err := s.Notifier.FormatGamesResponse(append(waiting, active...))
		respondWithFormatted(w, msg, err)
	}
}

// parseUserMention extracts the user ID from a Slack mention like <@U123|name>.
func parseUserMention(text string) (string, bool) {
	if !strings.HasPrefix(text, "<@") || !strings.HasSuffix(text, ">") {
		return "", false
	}
	inner := text[2 : len(text)-1]
	if idx := strings.IndexByte(inner, '|'); idx >= 0 {
		inner = inner[:idx]
	}
	return inner, inner != ""
}

// PlayerStatsCommandHandler returns a handler for the /duel-stats Slack command.
// Without an argument it reports the caller's own stats; with a mention it
// reports the mentioned player's.
func (s *Server) PlayerStatsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, userName, text, ok := commandForm(w, r)
		if !ok {
			return
		}

		targetID, query := userID, userName
		if text != "" {
			mentionID, ok := parseUserMention(text)
			if !ok {
				msg, err := s.Notifier.FormatPlayerNotFoundResponse(text)
				respondWithFormatted(w, msg, err)
				return
			}
			targetID, query = mentionID, text
		}

		log.Info("Received player stats command", "target", targetID)
		stats, err := s.Players.GetPlayerStats(targetID)
		var msg any
		if err != nil {
			log.Warn("Could not find player stats", "target", targetID, "error", err)
			msg, err = s.Notifier.FormatPlayerNotFoundResponse(query)
		} else {
			msg, err = s.Notifier.FormatPlayerStatsResponse(stats, query)
		}
		respondWithFormatted(w, msg, err)
	}
}

// LeaderboardCommandHandler returns a handler for the /duel-leaderboard Slack command.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := s.Players.GetLeaderboard(10)
		if err != nil {
			http.Error(w, "Failed to get player stats", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}

		msg, err := s.Notifier.FormatLeaderboardResponse(stats)
		respondWithFormatted(w, msg, err)
	}
}

// JackpotCommandHandler returns a handler for the /duel-jackpot Slack command.
func (s *Server) JackpotCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pool, err := s.Engine.JackpotPool()
		if err != nil {
			http.Error(w, "Failed to get lottery pool", http.StatusInternalServerError)
			log.Error("Failed to get lottery pool", "error", err)
			return
		}

		msg, err := s.Notifier.FormatJackpotResponse(pool)
		respondWithFormatted(w, msg, err)
	}
}
