package scraper

import (
	"context"
	"net/url"
	"time"

	"crashscraper/internal/resilience/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func testClient() *Client {
	return NewClient("test", ClientOptions{UserAgent: "crashscraper-test", Retry: fastRetry()})
}

/* ───────── スタブ実装 ───────── */

type stubExtractor struct {
	text string
	err  error
}

func (s stubExtractor) Extract(_ []byte, _ *url.URL) (string, error) { return s.text, s.err }

type stubContent struct {
	threshold int
	text      string
	err       error
	calls     []string
}

func (s *stubContent) Threshold() int { return s.threshold }

func (s *stubContent) FetchContent(_ context.Context, u string) (string, error) {
	s.calls = append(s.calls, u)
	return s.text, s.err
}
