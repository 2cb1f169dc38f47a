package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Alert outcomes, used as the outcome label of accident_alerts_total.
const (
	outcomeSent        = "sent"
	outcomeFailed      = "failed"
	outcomePoolFull    = "dropped_pool_full"
	outcomeCircuitOpen = "dropped_circuit_open"
	outcomeShutdown    = "dropped_shutdown"
)

var (
	alertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accident_alerts_total",
			Help: "Accident alerts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	alertSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "accident_alert_send_duration_seconds",
			Help:    "Time spent delivering one alert, retries included",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"channel"},
	)

	alertsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accident_alerts_in_flight",
		Help: "Alerts waiting for a worker slot or being delivered",
	})

	alertChannelsEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accident_alert_channels_enabled",
		Help: "Number of enabled alert channels",
	})
)

// recordSend records a delivery attempt that reached the channel.
func recordSend(channel string, d time.Duration, err error) {
	outcome := outcomeSent
	if err != nil {
		outcome = outcomeFailed
	}
	alertsTotal.WithLabelValues(channel, outcome).Inc()
	alertSendDuration.WithLabelValues(channel).Observe(d.Seconds())
}

func recordDropped(channel, outcome string) {
	alertsTotal.WithLabelValues(channel, outcome).Inc()
}
