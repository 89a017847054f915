package http

import (
	"net/http"

	"github.com/wildwestlabs/dice-duel-bot/internal/config"
	"github.com/wildwestlabs/dice-duel-bot/internal/engine"
	"github.com/wildwestlabs/dice-duel-bot/internal/metrics"
	"github.com/wildwestlabs/dice-duel-bot/internal/notifier"
	"github.com/wildwestlabs/dice-duel-bot/internal/players"
	"github.com/wildwestlabs/dice-duel-bot/internal/pubsub"
	"github.com/wildwestlabs/dice-duel-bot/internal/registry"
)

func NewServer(reg registry.MatchRegistry, playerStore players.PlayerStore, eng *engine.Engine, metricsSvc metrics.Metrics, metricsHandler http.Handler, counters metrics.MetricsStore, cfg config.Config, notifier notifier.Notifier, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Registry:       reg,
		Players:        playerStore,
		Engine:         eng,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Counters:       counters,
		Cfg:            cfg,
		Notifier:       notifier,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// Slash command routes additionally verify the Slack request signature.
	slackVerify := slackVerifyMiddleware(s.Cfg.Slack.SigningSecret)

	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/stats", Chain(s.StatsHandler(), paramsMiddleware))
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/sweep", Chain(s.SweepHandler(), paramsMiddleware))
	s.Router.Handle("/game-completed", Chain(s.GameCompletedHandler(), paramsMiddleware))
	s.Router.Handle("/notify-result", Chain(s.NotifyResultHandler(), paramsMiddleware))
	s.Router.Handle("/lottery-rolled", Chain(s.LotteryRolledHandler(), paramsMiddleware))
	s.Router.Handle("/slack/command/connect", Chain(s.ConnectCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/create", Chain(s.CreateCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/confirm", Chain(s.ConfirmCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/join", Chain(s.JoinCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/confirm-join", Chain(s.ConfirmJoinCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/roll", Chain(s.RollCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/cancel", Chain(s.CancelCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/lottery", Chain(s.LotteryCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/games", Chain(s.GamesCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/stats", Chain(s.PlayerStatsCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), slackVerify, paramsMiddleware))
	s.Router.Handle("/slack/command/jackpot", Chain(s.JackpotCommandHandler(), slackVerify, paramsMiddleware))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
