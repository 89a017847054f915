package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	MatchesCreated     prometheus.Counter
	MatchesCompleted   prometheus.Counter
	MatchesExpired     prometheus.Counter
	RollsSubmitted     prometheus.Counter
	LotteryRolls       prometheus.Counter
	SettlementDuration prometheus.Histogram
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	StartupTimeSeconds prometheus.Gauge
}
