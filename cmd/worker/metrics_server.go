package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/usecase/notify"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Per-channel states reported by /health/channels.
const (
	channelOK       = "ok"
	channelDisabled = "disabled"
	channelOpen     = "circuit open"
)

// channelsResponse is the body of /health/channels.
type channelsResponse struct {
	Status   string            `json:"status"`
	Channels map[string]string `json:"channels"`
}

// newMetricsServer builds the server behind METRICS_PORT:
//
//	GET /metrics          Prometheus exposition
//	GET /health/channels  alert channel state, 503 while an enabled channel's breaker is open
func newMetricsServer(port int, notifyService *notify.Service) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health/channels", tracing.Middleware(channelsHandler(notifyService)))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

func channelsHandler(notifyService *notify.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := channelsResponse{Status: "ok", Channels: map[string]string{}}
		code := http.StatusOK

		for _, ch := range notifyService.GetChannelHealth() {
			switch {
			case !ch.Enabled:
				resp.Channels[ch.Name] = channelDisabled
			case ch.CircuitBreakerOpen:
				resp.Channels[ch.Name] = channelOpen
				resp.Status = "degraded"
				code = http.StatusServiceUnavailable
			default:
				resp.Channels[ch.Name] = channelOK
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
