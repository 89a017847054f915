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

type Server struct {
	Registry       registry.MatchRegistry
	Players        players.PlayerStore
	Engine         *engine.Engine
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Counters       metrics.MetricsStore
	Cfg            config.Config
	Notifier       notifier.Notifier
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
}
