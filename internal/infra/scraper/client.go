// Package scraper implements the publisher adapters used by the crawl
// controller: an HTML adapter driven by CSS selectors and an RSS/Atom adapter,
// both behind a polite per-source HTTP client.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/resilience/circuitbreaker"
	"crashscraper/internal/resilience/retry"

	"golang.org/x/time/rate"
)

// Request kinds used as the metrics "kind" label.
const (
	KindListing = "listing"
	KindDetail  = "detail"
	KindFeed    = "feed"
)

const defaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// ClientOptions configures a per-source Client.
type ClientOptions struct {
	UserAgent         string
	RequestsPerSecond float64 // 0 disables the limiter
	Timeout           time.Duration
	MaxBodySize       int64
	Retry             retry.Config
}

// Page is a fetched document and the URL it was finally served from.
type Page struct {
	URL  *url.URL
	Body []byte
}

// Client performs GET requests for one source through a token-bucket
// limiter, retry with backoff and a circuit breaker.
type Client struct {
	source    string
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
	breaker   *circuitbreaker.CircuitBreaker
	retry     retry.Config
	maxBody   int64
}

// NewClient creates the client for the named source.
func NewClient(source string, opts ClientOptions) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.ScrapeConfig()
	}
	return &Client{
		source: source,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: tracing.NewTransport(nil),
		},
		userAgent: opts.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   circuitbreaker.New(circuitbreaker.SourceConfig(source)),
		retry:     opts.Retry,
		maxBody:   opts.MaxBodySize,
	}
}

// Get fetches rawURL. Failures are returned as *entity.NetworkError, except
// context cancellation which is returned as is.
func (c *Client) Get(ctx context.Context, rawURL, kind string) (*Page, error) {
	var page *Page
	err := retry.WithBackoff(ctx, c.retry, func() error {
		return c.breaker.Do(func() error {
			p, err := c.get(ctx, rawURL, kind)
			page = p
			return err
		})
	})
	if err == nil {
		return page, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var netErr *entity.NetworkError
	if errors.As(err, &netErr) {
		return nil, err
	}
	if errors.Is(err, circuitbreaker.ErrOpenState) {
		metrics.RecordCrawlError(c.source, "circuit_open")
	}
	return nil, &entity.NetworkError{URL: rawURL, Err: err}
}

func (c *Client) get(ctx context.Context, rawURL, kind string) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept-Language", "es-AR,es;q=0.9")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordScrapeRequest(c.source, kind, "error", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &entity.NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordScrapeRequest(c.source, kind, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode != http.StatusOK {
		// 429/503 の Retry-After は次の試行まで尊重する
		return nil, &entity.NetworkError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        errors.New(resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return nil, &entity.NetworkError{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return &Page{URL: resp.Request.URL, Body: body}, nil
}
