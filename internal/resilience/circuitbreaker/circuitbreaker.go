// Package circuitbreaker stops calling a publisher or webhook that keeps
// failing, using github.com/sony/gobreaker.
//
// A 404 on one article or an unparsable page says nothing about the health
// of the site, so answered 4xx statuses and parse errors do not count
// against a circuit.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/resilience/retry"

	"github.com/sony/gobreaker"
)

// ErrOpenState is returned while the circuit is open.
var ErrOpenState = gobreaker.ErrOpenState

// Config describes one circuit.
type Config struct {
	Name             string
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open → half-open
	FailureThreshold float64       // failure ratio that trips the circuit
	MinRequests      uint32        // requests observed before the ratio applies
}

// SourceConfig is the circuit of one publisher's listing and detail requests.
// A crawl run is short, so the open state lasts long enough to cover the rest of it.
func SourceConfig(source string) Config {
	return Config{
		Name:             "source:" + source,
		MaxRequests:      1,
		Interval:         5 * time.Minute,
		Timeout:          10 * time.Minute,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// WebhookConfig is the circuit of one notification channel.
func WebhookConfig(channel string) Config {
	return Config{
		Name:             "webhook:" + channel,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          2 * time.Minute,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// ContentFetchConfig is the circuit shared by readability fallback fetches,
// which go to arbitrary article hosts.
func ContentFetchConfig() Config {
	return Config{
		Name:             "content-fetch",
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreaker wraps gobreaker.CircuitBreaker.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New creates a circuit breaker. Its state is exported as the
// circuit_breaker_open gauge.
func New(cfg Config) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
			metrics.RecordCircuitState(name, to == gobreaker.StateOpen)
		},
	}

	metrics.RecordCircuitState(cfg.Name, false)
	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// countsAsSuccess reports whether err leaves the circuit healthy.
func countsAsSuccess(err error) bool {
	// 呼び出し側のキャンセルは相手側の障害ではない
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr *entity.NetworkError
	if errors.As(err, &netErr) && netErr.StatusCode != 0 {
		return !retry.IsRetryableStatus(netErr.StatusCode)
	}
	var parseErr *entity.ParseError
	return errors.As(err, &parseErr)
}

// Execute runs fn through the circuit. While open it returns ErrOpenState
// without calling fn.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	return cb.breaker.Execute(fn)
}

// Do is Execute for calls without a result value.
func (cb *CircuitBreaker) Do(fn func() error) error {
	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func (cb *CircuitBreaker) State() gobreaker.State { return cb.breaker.State() }
func (cb *CircuitBreaker) Name() string           { return cb.name }
func (cb *CircuitBreaker) IsOpen() bool           { return cb.State() == gobreaker.StateOpen }
