package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/notifier"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

var dieFaces = [...]string{"⚀", "⚁", "⚂", "⚃", "⚄", "⚅"}

// dice renders a throw as dice glyphs with the total, e.g. "⚄ ⚅ (11)".
func dice(roll game.RollResult) string {
	return fmt.Sprintf("%s %s (%d)", dieFaces[roll.Die1-1], dieFaces[roll.Die2-1], roll.Total)
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Implement the Notifier interface
func (s *Notifier) SendResultNotification(match *game.Match, dryRun bool) error {
	msg := s.formatResultNotification(match)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendLotteryResult(record *players.LotteryRecord, playerName string, dryRun bool) error {
	msg := s.formatLotteryResult(record, playerName)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendLeaderboard(stats []players.PlayerStats, dryRun bool) error {
	msg := s.formatLeaderboard(stats)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendPlayerStats(stats *players.PlayerStats, query string, dryRun bool) error {
	msg := s.formatPlayerStats(stats, query)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendPlayerNotFound(query string, dryRun bool) error {
	msg := s.formatPlayerNotFound(query)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// FormatConnectResponse formats the wallet-connected confirmation for a slash command response.
func (s *Notifier) FormatConnectResponse(info *players.PlayerInfo) (any, error) {
	text := fmt.Sprintf("✅ Wallet connected!\nAddress: `%s`\nYou can now create and join matches.", info.WalletAddress)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	), nil
}

// FormatMatchCreatedResponse formats the reply to a freshly created match.
func (s *Notifier) FormatMatchCreatedResponse(match *game.Match) (any, error) {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 Match created! 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Buy-in: %.2f tokens\nMatch ID: %s", match.BuyIn, match.ID)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	instructionText := fmt.Sprintf("Deposit %.2f tokens to your escrow wallet, then run `/duel-confirm %s` to open the match for opponents.", match.BuyIn, match.ID)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", instructionText, false, false), nil, nil))

	blocks = append(blocks, slack.NewContextBlock("",
		slack.NewTextBlockObject("plain_text", fmt.Sprintf("Expires: %s", time.Unix(match.ExpiresAt, 0).Format("15:04")), true, false)))

	return slack.NewBlockMessage(blocks...), nil
}

// FormatMatchOpenResponse formats the confirmation that a match is open for opponents.
func (s *Notifier) FormatMatchOpenResponse(match *game.Match) (any, error) {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 Match open! 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s has staked %.2f tokens and is looking for an opponent.\nJoin with `/duel-join %s`.",
		match.ChallengerName, match.BuyIn, match.ID)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", detailsText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...), nil
}

// FormatJoinResponse formats the reply after a player reserved the opponent slot.
func (s *Notifier) FormatJoinResponse(match *game.Match) (any, error) {
	text := fmt.Sprintf("You reserved the opponent slot against %s for %.2f tokens.\nDeposit your stake, then run `/duel-confirm-join %s` within %d minutes.",
		match.ChallengerName, match.BuyIn, match.ID, int(game.JoinTimeout.Minutes()))
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	), nil
}

// FormatMatchLiveResponse formats the reply once both stakes are locked.
func (s *Notifier) FormatMatchLiveResponse(match *game.Match) (any, error) {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 The duel is live! 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s vs %s for %.2f tokens\nBest of three. Roll with `/duel-roll %s`. Snake eyes loses on the spot!",
		match.ChallengerName, match.OpponentName, match.BuyIn, match.ID)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", detailsText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...), nil
}

// FormatRollResponse formats a roll reply: either a waiting prompt or the scored round.
func (s *Notifier) FormatRollResponse(match *game.Match, roll game.RollResult, round *game.RoundOutcome) (any, error) {
	blocks := make([]slack.Block, 0)

	rollText := fmt.Sprintf("You rolled %s", dice(roll))
	if roll.SnakeEyes {
		rollText += " 🐍"
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", rollText, true, false), nil, nil))

	if round == nil {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("plain_text", "Waiting for your opponent to roll...", true, false)))
		return slack.NewBlockMessage(blocks...), nil
	}

	roundText := fmt.Sprintf("Round %d: %s %s vs %s %s\nScore: %s %d — %s %d",
		round.RoundIndex+1,
		match.ChallengerName, dice(round.Challenger),
		match.OpponentName, dice(round.Opponent),
		match.ChallengerName, round.ChallengerScore,
		match.OpponentName, round.OpponentScore,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", roundText, true, false), nil, nil))

	if round.MatchOver {
		winnerName := match.ChallengerName
		if round.WinnerID == match.Opponent {
			winnerName = match.OpponentName
		}
		var verdict string
		switch round.EndReason {
		case game.EndReasonSnakeEyes:
			verdict = fmt.Sprintf("🐍 Snake eyes! %s wins the pot! 🏆", winnerName)
		case game.EndReasonSuddenDeath:
			verdict = fmt.Sprintf("⚔️ Sudden death! %s wins the pot! 🏆", winnerName)
		default:
			verdict = fmt.Sprintf("%s wins the pot! 🏆", winnerName)
		}
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", verdict, true, false), nil, nil))
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("mrkdwn", fmt.Sprintf("Winner: roll the bonus lottery with `/duel-lottery %s` within %d minutes!", match.ID, int(game.LotteryGrace.Minutes())), false, false)))
	} else if round.SuddenDeath || (round.RoundIndex+1 >= game.RoundsPerMatch && round.ChallengerScore == round.OpponentScore) {
		blocks = append(blocks, slack.NewContextBlock("",
			slack.NewTextBlockObject("plain_text", "⚔️ Tied after three rounds. Sudden death: first decided round wins!", true, false)))
	}

	return slack.NewBlockMessage(blocks...), nil
}

// FormatLotteryResponse formats the lottery throw reply for the roller.
func (s *Notifier) FormatLotteryResponse(record *players.LotteryRecord) (any, error) {
	roll := game.NewRollResult(record.Die1, record.Die2)
	var text string
	if record.Won {
		text = fmt.Sprintf("🎰 You rolled %s — JACKPOT! %.2f tokens are on their way. 💰", dice(roll), record.Payout)
	} else {
		text = fmt.Sprintf("🎰 You rolled %s — no jackpot this time. Seven or eleven wins the pool.", dice(roll))
	}
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil),
	), nil
}

// FormatGamesResponse formats the open and running matches list.
func (s *Notifier) FormatGamesResponse(matches []*game.Match) (any, error) {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 Current matches 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(matches) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No matches right now. Start one with /duel-create!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...), nil
	}

	var lines []string
	for _, m := range matches {
		switch m.Status {
		case game.StatusWaiting:
			lines = append(lines, fmt.Sprintf("• %s — %s waiting for an opponent (%.2f tokens)", m.ID, m.ChallengerName, m.BuyIn))
		case game.StatusActive:
			lines = append(lines, fmt.Sprintf("• %s — %s %d vs %s %d, round %d", m.ID, m.ChallengerName, m.ChallengerScore, m.OpponentName, m.OpponentScore, m.CurrentRound+1))
		default:
			lines = append(lines, fmt.Sprintf("• %s — %s (%s)", m.ID, m.ChallengerName, m.Status))
		}
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", strings.Join(lines, "\n"), true, false), nil, nil))

	return slack.NewBlockMessage(blocks...), nil
}

// FormatJackpotResponse formats the lottery pool balance.
func (s *Notifier) FormatJackpotResponse(pool float64) (any, error) {
	text := fmt.Sprintf("💰 The lottery pool currently holds %.2f tokens. Win a duel and roll a 7 or 11 to claim it!", pool)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil),
	), nil
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(stats []players.PlayerStats) (any, error) {
	return s.formatLeaderboard(stats), nil
}

// FormatPlayerStatsResponse formats a player stats message for a slash command response.
func (s *Notifier) FormatPlayerStatsResponse(stats *players.PlayerStats, query string) (any, error) {
	return s.formatPlayerStats(stats, query), nil
}

// FormatPlayerNotFoundResponse formats a player not found message for a slash command response.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

// formatResultNotification creates the Slack message for a finished duel using Block Kit.
func (s *Notifier) formatResultNotification(match *game.Match) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 Duel finished! 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	winnerName := match.ChallengerName
	loserName := match.OpponentName
	if match.Winner == match.Opponent {
		winnerName, loserName = loserName, winnerName
	}

	var verdict string
	switch match.EndReason {
	case game.EndReasonSnakeEyes:
		verdict = fmt.Sprintf("🐍 %s rolled snake eyes — %s takes the pot!", loserName, winnerName)
	case game.EndReasonSuddenDeath:
		verdict = fmt.Sprintf("⚔️ %s beat %s in sudden death!", winnerName, loserName)
	default:
		verdict = fmt.Sprintf("%s beat %s %d to %d!", winnerName, loserName, winnerScore(match), loserScore(match))
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", verdict, true, false), nil, nil))

	// Rounds
	var roundLines []string
	for i, round := range match.Rounds {
		if !round.Complete() {
			continue
		}
		roundLines = append(roundLines, fmt.Sprintf("Round %d: %s %s vs %s %s",
			i+1, match.ChallengerName, dice(*round.Challenger), match.OpponentName, dice(*round.Opponent)))
	}
	if len(roundLines) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", strings.Join(roundLines, "\n"), true, false), nil, nil))
	}

	var contextElements []slack.MixedElement
	if match.PayoutPending {
		contextElements = append(contextElements, slack.NewTextBlockObject("plain_text", "⚠️ Payout is being resolved manually.", true, false))
	} else {
		contextElements = append(contextElements, slack.NewTextBlockObject("plain_text", fmt.Sprintf("💰 %.2f tokens paid out to %s", match.PayoutAmount, winnerName), true, false))
	}
	blocks = append(blocks, slack.NewContextBlock("", contextElements...))

	return slack.NewBlockMessage(blocks...)
}

// formatLotteryResult creates the channel announcement for a lottery throw.
func (s *Notifier) formatLotteryResult(record *players.LotteryRecord, playerName string) slack.Message {
	blocks := make([]slack.Block, 0)

	roll := game.NewRollResult(record.Die1, record.Die2)
	if record.Won {
		headerText := slack.NewTextBlockObject("plain_text", "🎰 JACKPOT! 🎰", true, false)
		blocks = append(blocks, slack.NewHeaderBlock(headerText))
		text := fmt.Sprintf("%s rolled %s and takes the lottery pool: %.2f tokens! 💰", playerName, dice(roll), record.Payout)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil))
	} else {
		text := fmt.Sprintf("🎰 %s rolled %s on the lottery — the pool keeps growing.", playerName, dice(roll))
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the player leaderboard.
func (s *Notifier) formatLeaderboard(stats []players.PlayerStats) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Duel Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(stats) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No stats available yet. Go roll some dice!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, stat := range stats {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s\n> Win %%: %.2f%% (%d/%d) | Tokens Won: %.2f | Lottery Wins: %d",
			rank,
			medal,
			stat.PlayerName,
			stat.WinPercentage,
			stat.GamesWon,
			stat.GamesPlayed,
			stat.TotalWon,
			stat.LotteryWins,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", playerText, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerStats creates a Slack message to display a single player's stats.
func (s *Notifier) formatPlayerStats(stat *players.PlayerStats, query string) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := fmt.Sprintf("🏆 Stats for %s 🏆", stat.PlayerName)
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", headerText, true, false)))

	playerText := fmt.Sprintf("> *Win %%*: %.2f%% (%d/%d)\n> *Tokens Wagered*: %.2f\n> *Tokens Won*: %.2f\n> *Lottery Wins*: %d",
		stat.WinPercentage,
		stat.GamesWon,
		stat.GamesPlayed,
		stat.TotalWagered,
		stat.TotalWon,
		stat.LotteryWins,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", playerText, false, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a player's stats are not found.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	text := fmt.Sprintf("Sorry, I couldn't find a player matching *%s*. Try a different name.", query)
	return slack.NewBlockMessage(
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", text, false, false), nil, nil),
	)
}

func winnerScore(m *game.Match) int {
	if m.Winner == m.Opponent {
		return m.OpponentScore
	}
	return m.ChallengerScore
}

func loserScore(m *game.Match) int {
	if m.Winner == m.Opponent {
		return m.ChallengerScore
	}
	return m.OpponentScore
}
