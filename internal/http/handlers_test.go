package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/wildwestlabs/dice-duel-bot/internal/config"
	"github.com/wildwestlabs/dice-duel-bot/internal/database"
	"github.com/wildwestlabs/dice-duel-bot/internal/engine"
	"github.com/wildwestlabs/dice-duel-bot/internal/escrow"
	"github.com/wildwestlabs/dice-duel-bot/internal/game"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/notifier"
	slacknotifier "github.com/wildwestlabs/dice-duel-bot/internal/notifier/slack"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
	"github.com/wildwestlabs/dice-duel-bot/internal/pubsub"
	"github.com/wildwestlabs/dice-duel-bot/internal/registry"
)

const testSlackSigningSecret = "test-signing-secret"

type testDeps struct {
	escrow *escrow.MockGateway
	roller *game.FixedRoller
	pubsub *pubsub.MockPubSubClient
}

// setupTestServer initializes a new server with a test database and mock clients.
func setupTestServer(t *testing.T, notif notifier.Notifier, slackSigningSecret string) (*Server, *testDeps, func()) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)

	matchRegistry := registry.NewStore(db)
	playerStore := players.New(db)
	cfg := config.Config{Slack: config.SlackConfig{SigningSecret: slackSigningSecret}}

	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)

	deps := &testDeps{
		escrow: escrow.NewMock(),
		roller: &game.FixedRoller{},
		pubsub: pubsub.NewMock("TEST"),
	}
	deps.escrow.GetDepositFunc = func(address string) (float64, error) {
		return 1000, nil
	}
	deps.escrow.SettleFunc = func(ref, winnerAddress string) (escrow.Settlement, error) {
		return escrow.Settlement{Amount: 49, Ref: "settle-1"}, nil
	}

	if notif == nil {
		// The real formatter with no API client: slash commands only format,
		// they never post.
		notif = slacknotifier.NewNotifierWithAPI(nil, "C-TEST", metricsSvc)
	}

	eng := engine.New(matchRegistry, playerStore, deps.escrow, deps.roller, metricsSvc, deps.pubsub)
	server := NewServer(matchRegistry, playerStore, eng, metricsSvc, metricsHandler, metrics.New(db), cfg, notif, deps.pubsub)

	teardown := func() {
		if dbTeardown != nil {
			dbTeardown()
		}
	}
	return server, deps, teardown
}

// createSlackCommandRequest creates an http.Request suitable for testing Slack slash commands,
// including the necessary signature and timestamp headers for verification.
func createSlackCommandRequest(t *testing.T, targetURL string, form url.Values, signingSecret string) *http.Request {
	t.Helper()

	body := strings.NewReader(form.Encode())
	req, err := http.NewRequest("POST", targetURL, body)
	require.NoError(t, err)

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	timestamp := time.Now().Unix()
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(timestamp, 10))

	bodyBytes, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	baseString := fmt.Sprintf("v0:%d:%s", timestamp, string(bodyBytes))
	h := hmac.New(sha256.New, []byte(signingSecret))
	h.Write([]byte(baseString))
	signature := hex.EncodeToString(h.Sum(nil))

	req.Header.Set("X-Slack-Signature", "v0="+signature)

	return req
}

// createPushRequest wraps a payload the way a pubsub push delivery does:
// MessagePack bytes, base64-encoded, inside a JSON envelope.
func createPushRequest(t *testing.T, targetURL string, payload any) *http.Request {
	t.Helper()

	raw, err := msgpack.Marshal(payload)
	require.NoError(t, err)

	envelope := map[string]any{
		"subscription": "test-sub",
		"message": map[string]any{
			"data": base64.StdEncoding.EncodeToString(raw),
		},
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", targetURL, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func connectPlayer(t *testing.T, server *Server, userID, userName, address string) {
	t.Helper()
	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("user_name", userName)
	form.Set("text", address)

	req := createSlackCommandRequest(t, "/slack/command/connect", form, testSlackSigningSecret)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
}

func runCommand(t *testing.T, server *Server, path, userID, userName, text string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{}
	form.Set("user_id", userID)
	form.Set("user_name", userName)
	if text != "" {
		form.Set("text", text)
	}

	req := createSlackCommandRequest(t, path, form, testSlackSigningSecret)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	return rr
}

func TestHealthCheckHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, "")
	defer teardown()

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "handler returned wrong status code")
	assert.Equal(t, "OK!", rr.Body.String(), "handler returned unexpected body")
}

func TestSlackSignatureVerification(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()

	t.Run("accepts a correctly signed request", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{}, testSlackSigningSecret)

		rr := httptest.NewRecorder()
		server.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejects request with invalid signature", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{}, testSlackSigningSecret)
		req.Header.Set("X-Slack-Signature", "v0=invalid-signature")

		rr := httptest.NewRecorder()
		server.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects request with missing signature", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{}, testSlackSigningSecret)
		req.Header.Del("X-Slack-Signature")

		rr := httptest.NewRecorder()
		server.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects request with outdated timestamp", func(t *testing.T) {
		req := createSlackCommandRequest(t, "/slack/command/leaderboard", url.Values{}, testSlackSigningSecret)
		req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Add(-6*time.Minute).Unix(), 10))

		rr := httptest.NewRecorder()
		server.Router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestConnectCommandHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()

	t.Run("connects a wallet", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/connect", "U1", "alice", "0xaaa")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "0xaaa")

		addr, err := server.Players.AddressOf("U1")
		require.NoError(t, err)
		assert.Equal(t, "0xaaa", addr)
	})

	t.Run("requires an address", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/connect", "U1", "alice", "")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestCreateCommandHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()
	connectPlayer(t, server, "U1", "alice", "0xaaa")

	t.Run("creates a match", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/create", "U1", "alice", "25")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Match created")

		matches, err := server.Registry.ListByStatus(game.StatusPendingDeposit)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, 25.0, matches[0].BuyIn)
	})

	t.Run("rejects a non-numeric amount", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/create", "U1", "alice", "lots")

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("tells an unregistered player to connect first", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/create", "U-NOBODY", "nobody", "25")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "connect a wallet")
	})
}

// TestDuelLifecycle drives a whole duel through the slash command surface.
func TestDuelLifecycle(t *testing.T) {
	server, deps, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()

	connectPlayer(t, server, "U1", "alice", "0xaaa")
	connectPlayer(t, server, "U2", "bob", "0xbbb")
	deps.roller.Throws = [][2]int{
		{5, 6}, {3, 4},
		{6, 6}, {2, 2},
		{4, 4}, {3, 3},
	}

	rr := runCommand(t, server, "/slack/command/create", "U1", "alice", "25")
	require.Equal(t, http.StatusOK, rr.Code)

	matches, err := server.Registry.ListByStatus(game.StatusPendingDeposit)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	matchID := matches[0].ID

	rr = runCommand(t, server, "/slack/command/confirm", "U1", "alice", matchID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Match open")

	rr = runCommand(t, server, "/slack/command/join", "U2", "bob", matchID)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = runCommand(t, server, "/slack/command/confirm-join", "U2", "bob", matchID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "live")

	for round := 0; round < 3; round++ {
		rr = runCommand(t, server, "/slack/command/roll", "U1", "alice", matchID)
		require.Equal(t, http.StatusOK, rr.Code)
		rr = runCommand(t, server, "/slack/command/roll", "U2", "bob", matchID)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	assert.Contains(t, rr.Body.String(), "wins the pot")

	final, err := server.Registry.Get(matchID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusCompleted, final.Status)
	assert.Equal(t, "U1", final.Winner)
	assert.Equal(t, 49.0, final.PayoutAmount)

	// Completion published both downstream events.
	require.Len(t, deps.pubsub.SendMessageCalls, 2)
	assert.Equal(t, pubsub.EventGameCompleted, deps.pubsub.SendMessageCalls[0].Topic)
	assert.Equal(t, pubsub.EventNotifyResult, deps.pubsub.SendMessageCalls[1].Topic)

	// The winner gets the bonus throw.
	deps.roller.Throws = append(deps.roller.Throws, [2]int{3, 4})
	rr = runCommand(t, server, "/slack/command/lottery", "U1", "alice", matchID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "JACKPOT")
}

func TestGamesCommandHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()

	rr := runCommand(t, server, "/slack/command/games", "U1", "alice", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No matches right now")
}

func TestPlayerStatsCommandHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()
	connectPlayer(t, server, "U1", "alice", "0xaaa")
	connectPlayer(t, server, "U2", "bob", "0xbbb")

	require.NoError(t, server.Players.RecordGame(&players.GameRecord{
		ID:           "g1",
		ChallengerID: "U1",
		OpponentID:   "U2",
		WinnerID:     "U1",
		BuyIn:        25,
		Payout:       49,
		EndReason:    "score",
		RoundsPlayed: 3,
		CompletedAt:  time.Now().Unix(),
	}))

	t.Run("reports the caller's own stats", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/stats", "U1", "alice", "")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Stats for alice")
	})

	t.Run("reports a mentioned player's stats", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/stats", "U1", "alice", "<@U2|bob>")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Stats for bob")
	})

	t.Run("reports not found for a non-mention query", func(t *testing.T) {
		rr := runCommand(t, server, "/slack/command/stats", "U1", "alice", "whoever")

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "couldn't find a player")
	})
}

func TestJackpotCommandHandler(t *testing.T) {
	server, deps, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()
	deps.escrow.GetLotteryPoolFunc = func() (float64, error) {
		return 321, nil
	}

	rr := runCommand(t, server, "/slack/command/jackpot", "U1", "alice", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "321.00 tokens")
}

func TestGameCompletedHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()
	connectPlayer(t, server, "U1", "alice", "0xaaa")
	connectPlayer(t, server, "U2", "bob", "0xbbb")

	match := game.Match{
		ID:           "match-1",
		Challenger:   "U1",
		Opponent:     "U2",
		Winner:       "U1",
		BuyIn:        25,
		PayoutAmount: 49,
		Status:       game.StatusCompleted,
		EndReason:    game.EndReasonScore,
		CompletedAt:  time.Now().Unix(),
	}

	req := createPushRequest(t, "/game-completed", &match)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	stats, err := server.Players.GetPlayerStats("U1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 1, stats.GamesWon)

	// Redelivery of the same event must not double-count.
	req = createPushRequest(t, "/game-completed", &match)
	rr = httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	stats, err = server.Players.GetPlayerStats("U1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GamesPlayed)
}

func TestNotifyResultHandler(t *testing.T) {
	mockNotifier := notifier.NewMock()
	server, _, teardown := setupTestServer(t, mockNotifier, "")
	defer teardown()

	match := game.Match{
		ID:         "match-1",
		Challenger: "U1",
		Opponent:   "U2",
		Winner:     "U1",
		Status:     game.StatusCompleted,
	}

	req := createPushRequest(t, "/notify-result", &match)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, mockNotifier.SendResultNotificationCalls, 1)
	assert.Equal(t, "match-1", mockNotifier.SendResultNotificationCalls[0].Match.ID)
}

func TestLotteryRolledHandler(t *testing.T) {
	mockNotifier := notifier.NewMock()
	server, _, teardown := setupTestServer(t, mockNotifier, testSlackSigningSecret)
	defer teardown()
	connectPlayer(t, server, "U1", "alice", "0xaaa")

	record := players.LotteryRecord{
		ID:       "lot-1",
		MatchID:  "match-1",
		PlayerID: "U1",
		Die1:     3,
		Die2:     4,
		Total:    7,
		Won:      true,
		Payout:   500,
		RolledAt: time.Now().Unix(),
	}

	req := createPushRequest(t, "/lottery-rolled", &record)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, mockNotifier.SendLotteryResultCalls, 1)
	assert.Equal(t, "alice", mockNotifier.SendLotteryResultCalls[0].PlayerName)

	stats, err := server.Players.GetPlayerStats("U1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.LotteryWins)
}

func TestListMatchesHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, testSlackSigningSecret)
	defer teardown()
	connectPlayer(t, server, "U1", "alice", "0xaaa")

	_, err := server.Engine.CreateMatch("U1", "alice", 25)
	require.NoError(t, err)

	req, err := http.NewRequest("GET", "/matches", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pending_deposit")
}

func TestSweepHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, "")
	defer teardown()

	req, err := http.NewRequest("GET", "/sweep", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "\"expired\":0")
}

func TestStatsHandler(t *testing.T) {
	server, _, teardown := setupTestServer(t, nil, "")
	defer teardown()

	// Run a sweep so at least one durable counter exists.
	req, err := http.NewRequest("GET", "/sweep", nil)
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	req, err = http.NewRequest("GET", "/stats", nil)
	require.NoError(t, err)
	rr = httptest.NewRecorder()
	server.Router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "\"sweeps_run\":1")
}