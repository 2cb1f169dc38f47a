// Package retry retries transient HTTP failures with exponential backoff.
//
// Both the crawler and the alert webhooks talk to servers that throttle
// aggressively, so a delay advertised by the server (Retry-After) always wins
// over the computed backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
)

// Config describes one retry policy.
type Config struct {
	MaxAttempts    int           // including the first call
	InitialDelay   time.Duration // wait before the second call
	MaxDelay       time.Duration // cap of the computed backoff
	Multiplier     float64
	JitterFraction float64 // 0.0〜1.0
}

// ScrapeConfig is used for listing and detail page requests.
// Publishers are small news sites, so retries stay few and slow.
func ScrapeConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   2 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WebhookConfig is used for accident notification webhooks.
func WebhookConfig() Config {
	return Config{
		MaxAttempts:    2,
		InitialDelay:   1 * time.Second,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// WithBackoff calls fn until it succeeds, returns a permanent error, or
// MaxAttempts is reached. The last error is wrapped when attempts run out.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	logger := logging.FromContext(ctx)

	var lastErr error
	delay := cfg.InitialDelay
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("request succeeded after retry", slog.Int("attempt", attempt))
			}
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		// 最終試行後は待たない
		if attempt == cfg.MaxAttempts {
			break
		}

		wait := delay
		if hint := RetryAfterHint(lastErr); hint > wait {
			wait = hint
		}
		logger.Warn("request failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", wait),
			slog.Any("error", lastErr))

		if err := Sleep(ctx, wait); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}
		delay = nextDelay(delay, cfg)
	}
	return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, lastErr)
}

func nextDelay(d time.Duration, cfg Config) time.Duration {
	d = time.Duration(float64(d) * cfg.Multiplier)
	if cfg.MaxDelay > 0 && d > cfg.MaxDelay {
		d = cfg.MaxDelay
	}
	return addJitter(d, cfg.JitterFraction)
}

// Sleep waits for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately unless ctx is already done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRetryable reports whether err is transient: a retryable HTTP status,
// a network timeout, or a refused/reset connection. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr *entity.NetworkError
	if errors.As(err, &netErr) && netErr.StatusCode != 0 {
		return IsRetryableStatus(netErr.StatusCode)
	}

	var timeoutErr net.Error
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// IsRetryableStatus reports whether an HTTP status is transient:
// 5xx, 429 Too Many Requests and 408 Request Timeout.
func IsRetryableStatus(code int) bool {
	if code >= 500 && code < 600 {
		return true
	}
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// RetryAfterHint returns the server requested delay carried by err, if any.
func RetryAfterHint(err error) time.Duration {
	var netErr *entity.NetworkError
	if errors.As(err, &netErr) && netErr.RetryAfter > 0 {
		return netErr.RetryAfter
	}
	return 0
}

// ParseRetryAfter decodes a Retry-After header, either delta seconds or an
// HTTP date relative to now. Invalid or past values yield zero.
func ParseRetryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// addJitter adds up to fraction*d of random delay so that sources sharing
// a host do not retry in lockstep.
func addJitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	if fraction > 1.0 {
		fraction = 1.0
	}
	// #nosec G404 -- jitter does not need a cryptographic source.
	return d + time.Duration(rand.Float64()*float64(d)*fraction)
}
