package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/resilience/retry"
	"crashscraper/internal/utils/text"

	"golang.org/x/time/rate"
)

const (
	defaultRetryAfter = 5 * time.Second
	maxErrorBodyBytes = 4 << 10
	truncationSuffix  = "..."
)

// RateLimitError represents a 429 response from a webhook service.
// It unwraps to the *entity.NetworkError carrying the status code.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// webhook posts JSON payloads to one incoming-webhook URL.
type webhook struct {
	name    string
	url     string
	client  *http.Client
	limiter *rate.Limiter
	retry   retry.Config
}

func newWebhook(name, rawURL string, timeout time.Duration, rps float64, burst int) *webhook {
	return &webhook{
		name: name,
		url:  rawURL,
		client: &http.Client{
			Timeout:   timeout,
			Transport: tracing.NewTransport(nil),
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		retry:   retry.WebhookConfig(),
	}
}

// notify delivers the payload of one article alert and logs the outcome.
func (w *webhook) notify(ctx context.Context, article *entity.Article, payload any) error {
	logger := logging.FromContext(ctx).With(
		slog.String("channel", w.name),
		slog.Int64("article_id", article.ID),
		slog.String("url", article.URL))

	if err := w.deliver(ctx, payload); err != nil {
		logger.Error("accident alert failed", slog.Any("error", err))
		return err
	}
	logger.Info("accident alert sent")
	return nil
}

// deliver waits for a rate limiter token and posts payload, retrying
// 5xx and network errors. A 429 is retried after the advertised delay,
// which WithBackoff reads from the wrapped NetworkError.
func (w *webhook) deliver(ctx context.Context, payload any) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s rate limiter: %w", w.name, err)
	}

	err := retry.WithBackoff(ctx, w.retry, func() error {
		return w.post(ctx, payload)
	})
	if err != nil {
		return fmt.Errorf("%s notification failed: %w", w.name, err)
	}
	return nil
}

func (w *webhook) post(ctx context.Context, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// webhook URL はトークンを含むのでログ・エラーには host までしか出さない
	target := redactURL(w.url)

	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &entity.NetworkError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	netErr := &entity.NetworkError{
		URL:        target,
		StatusCode: resp.StatusCode,
		Err:        errors.New(responseMessage(resp, respBody)),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		netErr.RetryAfter = extractRetryAfter(resp, respBody)
		return &RateLimitError{RetryAfter: netErr.RetryAfter, Err: netErr}
	}
	return netErr
}

// extractRetryAfter reads retry_after (seconds, fractional) from a Discord
// style JSON body, then the Retry-After header, then falls back to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var payload struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.RetryAfter > 0 {
		return time.Duration(payload.RetryAfter * float64(time.Second))
	}

	if d := retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); d > 0 {
		return d
	}
	return defaultRetryAfter
}

func responseMessage(resp *http.Response, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return resp.Status
	}
	return msg
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "webhook"
	}
	return u.Scheme + "://" + u.Host
}

// excerpt collapses whitespace and caps s to maxRunes, marking the cut.
func excerpt(s string, maxRunes int) string {
	s = text.CollapseSpace(s)
	if text.CountRunes(s) <= maxRunes {
		return s
	}
	return text.Truncate(s, maxRunes-len(truncationSuffix)) + truncationSuffix
}

func votesSummary(v entity.Votes) string {
	return fmt.Sprintf("%d/4 votes", v.Positive())
}
