package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func completedMatch() *game.Match {
	r1c := game.NewRollResult(5, 6)
	r1o := game.NewRollResult(3, 4)
	r2c := game.NewRollResult(6, 6)
	r2o := game.NewRollResult(2, 2)
	r3c := game.NewRollResult(4, 4)
	r3o := game.NewRollResult(3, 3)
	return &game.Match{
		ID:              "match-1",
		Challenger:      "U-ALICE",
		ChallengerName:  "alice",
		Opponent:        "U-BOB",
		OpponentName:    "bob",
		BuyIn:           50,
		Status:          game.StatusCompleted,
		Winner:          "U-ALICE",
		EndReason:       game.EndReasonScore,
		ChallengerScore: 31,
		OpponentScore:   17,
		PayoutAmount:    99,
		Rounds: []game.Round{
			{Challenger: &r1c, Opponent: &r1o},
			{Challenger: &r2c, Opponent: &r2o},
			{Challenger: &r3c, Opponent: &r3o},
		},
		CompletedAt: time.Now().Unix(),
	}
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, true)
	require.NoError(t, err)
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage(slackapi.NewSectionBlock(slackapi.NewTextBlockObject("plain_text", "hello", false, false), nil, nil))
	_, _, err := notifier.sendMessage(message, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	postMessageCalled := false
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(message, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

// Test one of the public methods to ensure it calls the private sender.
func TestSendResultNotification_CallsSender(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	err := notifier.SendResultNotification(completedMatch(), false)
	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called via SendResultNotification")
}

func TestFormatResultNotification(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	t.Run("score win shows verdict, rounds and payout", func(t *testing.T) {
		msg := client.formatResultNotification(completedMatch())
		require.Len(t, msg.Blocks.BlockSet, 4, "Expected 4 blocks")

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok, "First block should be a HeaderBlock")
		assert.Equal(t, "🎲 Duel finished! 🎲", header.Text.Text)

		verdict, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok, "Second block should be a SectionBlock")
		assert.Equal(t, "alice beat bob 31 to 17!", verdict.Text.Text)

		rounds, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok, "Third block should be a SectionBlock")
		assert.Contains(t, rounds.Text.Text, "Round 1: alice ⚄ ⚅ (11) vs bob ⚂ ⚃ (7)")
		assert.Contains(t, rounds.Text.Text, "Round 3:")

		contextBlock, ok := msg.Blocks.BlockSet[3].(*slackapi.ContextBlock)
		require.True(t, ok, "Fourth block should be a ContextBlock")
		require.Len(t, contextBlock.ContextElements.Elements, 1)
		payout, ok := contextBlock.ContextElements.Elements[0].(*slackapi.TextBlockObject)
		require.True(t, ok)
		assert.Equal(t, "💰 99.00 tokens paid out to alice", payout.Text)
	})

	t.Run("snake eyes win names the loser", func(t *testing.T) {
		match := completedMatch()
		match.Winner = "U-BOB"
		match.EndReason = game.EndReasonSnakeEyes

		msg := client.formatResultNotification(match)
		verdict, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "🐍 alice rolled snake eyes — bob takes the pot!", verdict.Text.Text)
	})

	t.Run("pending payout is flagged", func(t *testing.T) {
		match := completedMatch()
		match.PayoutPending = true

		msg := client.formatResultNotification(match)
		contextBlock, ok := msg.Blocks.BlockSet[3].(*slackapi.ContextBlock)
		require.True(t, ok)
		flag, ok := contextBlock.ContextElements.Elements[0].(*slackapi.TextBlockObject)
		require.True(t, ok)
		assert.Equal(t, "⚠️ Payout is being resolved manually.", flag.Text)
	})
}

func TestFormatLotteryResult(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	t.Run("jackpot announcement", func(t *testing.T) {
		record := &players.LotteryRecord{MatchID: "match-1", Die1: 3, Die2: 4, Total: 7, Won: true, Payout: 500}

		msg := client.formatLotteryResult(record, "alice")
		require.Len(t, msg.Blocks.BlockSet, 2)

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok)
		assert.Equal(t, "🎰 JACKPOT! 🎰", header.Text.Text)

		section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "alice rolled ⚂ ⚃ (7) and takes the lottery pool: 500.00 tokens! 💰", section.Text.Text)
	})

	t.Run("losing throw", func(t *testing.T) {
		record := &players.LotteryRecord{MatchID: "match-1", Die1: 2, Die2: 4, Total: 6}

		msg := client.formatLotteryResult(record, "alice")
		require.Len(t, msg.Blocks.BlockSet, 1)

		section, ok := msg.Blocks.BlockSet[0].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, section.Text.Text, "the pool keeps growing")
	})
}

func TestFormatRollResponse(t *testing.T) {
	client := &Notifier{channelID: "C123"}
	match := completedMatch()
	match.Status = game.StatusActive

	t.Run("waiting for the other side", func(t *testing.T) {
		resp, err := client.FormatRollResponse(match, game.NewRollResult(5, 6), nil)
		require.NoError(t, err)

		msg, ok := resp.(slackapi.Message)
		require.True(t, ok)
		require.Len(t, msg.Blocks.BlockSet, 2)

		roll, ok := msg.Blocks.BlockSet[0].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "You rolled ⚄ ⚅ (11)", roll.Text.Text)
	})

	t.Run("decided match includes the lottery prompt", func(t *testing.T) {
		round := &game.RoundOutcome{
			RoundIndex:      2,
			Challenger:      game.NewRollResult(4, 4),
			Opponent:        game.NewRollResult(3, 3),
			ChallengerScore: 31,
			OpponentScore:   17,
			MatchOver:       true,
			WinnerID:        "U-ALICE",
			EndReason:       game.EndReasonScore,
		}

		resp, err := client.FormatRollResponse(match, game.NewRollResult(3, 3), round)
		require.NoError(t, err)

		msg, ok := resp.(slackapi.Message)
		require.True(t, ok)
		require.Len(t, msg.Blocks.BlockSet, 4)

		verdict, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "alice wins the pot! 🏆", verdict.Text.Text)
	})
}

func TestFormatLeaderboard(t *testing.T) {
	t.Run("displays leaderboard with stats", func(t *testing.T) {
		stats := []players.PlayerStats{
			{PlayerName: "alice", GamesPlayed: 10, GamesWon: 8, WinPercentage: 80.0, TotalWon: 960, LotteryWins: 1},
			{PlayerName: "bob", GamesPlayed: 10, GamesWon: 6, WinPercentage: 60.0, TotalWon: 480},
			{PlayerName: "carol", GamesPlayed: 10, GamesWon: 4, WinPercentage: 40.0, TotalWon: 120},
		}

		client := &Notifier{channelID: "C123"}
		msg := client.formatLeaderboard(stats)

		require.Len(t, msg.Blocks.BlockSet, 4, "Expected 4 blocks (header + 3 players)")

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok)
		assert.Equal(t, "🏆 Duel Leaderboard 🏆", header.Text.Text)

		player1, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, player1.Text.Text, "1. 🥇 alice")
		assert.Contains(t, player1.Text.Text, "> Win %: 80.00% (8/10)")
		assert.Contains(t, player1.Text.Text, "Lottery Wins: 1")

		player2, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, player2.Text.Text, "2. 🥈 bob")

		player3, ok := msg.Blocks.BlockSet[3].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, player3.Text.Text, "3. 🥉 carol")
	})

	t.Run("displays message when no stats are available", func(t *testing.T) {
		client := &Notifier{channelID: "C123"}
		msg := client.formatLeaderboard([]players.PlayerStats{})

		require.Len(t, msg.Blocks.BlockSet, 2, "Expected 2 blocks (header + message)")

		message, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "No stats available yet. Go roll some dice!", message.Text.Text)
	})
}

func TestFormatPlayerStats(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	t.Run("formats stats for a found player", func(t *testing.T) {
		stat := &players.PlayerStats{
			PlayerName:    "alice",
			GamesPlayed:   10,
			GamesWon:      8,
			WinPercentage: 80.0,
			TotalWagered:  500,
			TotalWon:      960,
			LotteryWins:   1,
		}

		msg := client.formatPlayerStats(stat, "alice")
		require.Len(t, msg.Blocks.BlockSet, 2)

		header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
		require.True(t, ok)
		assert.Equal(t, "🏆 Stats for alice 🏆", header.Text.Text)

		section, ok := msg.Blocks.BlockSet[1].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Contains(t, section.Text.Text, "> *Win %*: 80.00% (8/10)")
		assert.Contains(t, section.Text.Text, "> *Tokens Won*: 960.00")
		assert.Contains(t, section.Text.Text, "> *Lottery Wins*: 1")
	})

	t.Run("formats message for a player not found", func(t *testing.T) {
		msg := client.formatPlayerNotFound("Unknown Player")
		require.Len(t, msg.Blocks.BlockSet, 1)

		section, ok := msg.Blocks.BlockSet[0].(*slackapi.SectionBlock)
		require.True(t, ok)
		assert.Equal(t, "Sorry, I couldn't find a player matching *Unknown Player*. Try a different name.", section.Text.Text)
	})
}

func TestFormatJackpotResponse(t *testing.T) {
	client := &Notifier{channelID: "C123"}

	resp, err := client.FormatJackpotResponse(1234.5)
	require.NoError(t, err)

	msg, ok := resp.(slackapi.Message)
	require.True(t, ok)
	require.Len(t, msg.Blocks.BlockSet, 1)

	section, ok := msg.Blocks.BlockSet[0].(*slackapi.SectionBlock)
	require.True(t, ok)
	assert.Contains(t, section.Text.Text, "1234.50 tokens")
}
