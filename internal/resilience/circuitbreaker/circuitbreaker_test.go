package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Millisecond,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

func statusErr(code int) error {
	return &entity.NetworkError{URL: "https://www.eltribuno.com/jujuy", StatusCode: code, Err: errors.New(http.StatusText(code))}
}

func fail(cb *CircuitBreaker, err error, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Do(func() error { return err })
	}
}

func TestPresets(t *testing.T) {
	src := SourceConfig("todojujuy")
	assert.Equal(t, "source:todojujuy", src.Name)
	assert.Greater(t, src.Timeout, src.Interval, "an open source circuit should outlast the counting window")

	hook := WebhookConfig("slack")
	assert.Equal(t, "webhook:slack", hook.Name)

	for _, cfg := range []Config{src, hook, ContentFetchConfig()} {
		assert.Positive(t, cfg.MaxRequests, cfg.Name)
		assert.Positive(t, cfg.MinRequests, cfg.Name)
		assert.Greater(t, cfg.FailureThreshold, 0.0, cfg.Name)
		assert.LessOrEqual(t, cfg.FailureThreshold, 1.0, cfg.Name)
	}
}

func TestCircuitBreaker_TripsOnTransientFailures(t *testing.T) {
	cb := New(testConfig(t.Name()))

	fail(cb, statusErr(http.StatusServiceUnavailable), 3)
	require.True(t, cb.IsOpen())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CircuitBreakerOpen.WithLabelValues(t.Name())))

	called := false
	err := cb.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "open circuit must not call through")
}

func TestCircuitBreaker_GenericErrorsCount(t *testing.T) {
	cb := New(testConfig(t.Name()))
	fail(cb, errors.New("connection reset by peer"), 3)
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	cb := New(testConfig(t.Name()))

	fail(cb, statusErr(http.StatusNotFound), 5)
	fail(cb, &entity.ParseError{URL: "https://www.eltribuno.com/nota", Field: "body"}, 5)
	fail(cb, fmt.Errorf("fetch: %w", context.Canceled), 5)

	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Zero(t, testutil.ToFloat64(metrics.CircuitBreakerOpen.WithLabelValues(t.Name())))
}

func TestCircuitBreaker_BelowMinRequests(t *testing.T) {
	cb := New(testConfig(t.Name()))
	fail(cb, statusErr(http.StatusBadGateway), 2)
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cfg := testConfig(t.Name())
	cb := New(cfg)

	fail(cb, statusErr(http.StatusInternalServerError), 3)
	require.True(t, cb.IsOpen())

	time.Sleep(cfg.Timeout + 20*time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	require.NoError(t, cb.Do(func() error { return nil }))
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.Zero(t, testutil.ToFloat64(metrics.CircuitBreakerOpen.WithLabelValues(t.Name())))
}

func TestCircuitBreaker_Execute(t *testing.T) {
	cb := New(testConfig(t.Name()))
	assert.Equal(t, t.Name(), cb.Name())

	got, err := cb.Execute(func() (interface{}, error) { return "cuerpo", nil })
	require.NoError(t, err)
	assert.Equal(t, "cuerpo", got)

	_, err = cb.Execute(func() (interface{}, error) { return nil, statusErr(http.StatusBadGateway) })
	var netErr *entity.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
}

func TestCountsAsSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"canceled", context.Canceled, true},
		{"404", statusErr(http.StatusNotFound), true},
		{"410", statusErr(http.StatusGone), true},
		{"parse error", &entity.ParseError{Field: "listing"}, true},
		{"429", statusErr(http.StatusTooManyRequests), false},
		{"503", statusErr(http.StatusServiceUnavailable), false},
		{"network error without status", &entity.NetworkError{URL: "u", Err: errors.New("eof")}, false},
		{"deadline", context.DeadlineExceeded, false},
		{"generic", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countsAsSuccess(tt.err))
		})
	}
}
