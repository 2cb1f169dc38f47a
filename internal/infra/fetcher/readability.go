package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/resilience/circuitbreaker"
	"crashscraper/internal/utils/text"

	"github.com/go-shiori/go-readability"
)

// ReadabilityFetcher extracts clean article text using the Mozilla
// Readability algorithm. It is safe for concurrent use.
type ReadabilityFetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	config         ContentFetchConfig
}

// NewReadabilityFetcher creates a fetcher whose client validates every
// redirect target and enforces TLS 1.2+.
func NewReadabilityFetcher(config ContentFetchConfig) *ReadabilityFetcher {
	f := &ReadabilityFetcher{
		circuitBreaker: circuitbreaker.New(circuitbreaker.ContentFetchConfig()),
		config:         config,
	}

	f.client = &http.Client{
		Timeout: 30 * time.Second,
		Transport: tracing.NewTransport(&http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		}),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= f.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", ErrTooManyRedirects, len(via))
			}
			if err := checkTarget(req.Context(), req.URL.String(), f.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}
	return f
}

// Threshold returns the configured minimum feed content length.
func (f *ReadabilityFetcher) Threshold() int {
	return f.config.Threshold
}

// Extract returns the readable text of an HTML document that was already
// downloaded. pageURL resolves relative links and may be nil.
func (f *ReadabilityFetcher) Extract(html []byte, pageURL *url.URL) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReadabilityFailed, err)
	}

	content := article.TextContent
	if content == "" {
		content = article.Content
	}
	content = text.CollapseSpace(content)
	if content == "" {
		return "", fmt.Errorf("%w: no readable content found", ErrReadabilityFailed)
	}
	return content, nil
}

// FetchContent downloads urlStr and extracts its article text.
// Disabled configs return ("", nil) so callers keep the text they have.
func (f *ReadabilityFetcher) FetchContent(ctx context.Context, urlStr string) (string, error) {
	if !f.config.Enabled {
		metrics.RecordContentFetchSkipped()
		return "", nil
	}
	if err := checkTarget(ctx, urlStr, f.config.DenyPrivateIPs); err != nil {
		return "", err
	}

	start := time.Now()
	result, err := f.circuitBreaker.Execute(func() (interface{}, error) {
		return f.doFetch(ctx, urlStr)
	})
	if err != nil {
		metrics.RecordContentFetchFailed(time.Since(start))
		return "", err
	}

	content := result.(string)
	metrics.RecordContentFetchSuccess(time.Since(start), len(content))
	return content, nil
}

func (f *ReadabilityFetcher) doFetch(ctx context.Context, urlStr string) (interface{}, error) {
	reqCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: request exceeded %v", ErrTimeout, f.config.Timeout)
		}
		// リダイレクト検証エラーはそのまま返す
		var urlErr *url.Error
		if errors.As(err, &urlErr) && urlErr.Err != nil {
			return "", urlErr.Err
		}
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &entity.NetworkError{URL: urlStr, StatusCode: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	htmlBytes, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(htmlBytes)) > f.config.MaxBodySize {
		return "", fmt.Errorf("%w: response size %d bytes exceeds limit %d bytes",
			ErrBodyTooLarge, len(htmlBytes), f.config.MaxBodySize)
	}

	// リダイレクト後の最終URLで相対リンクを解決する
	pageURL := resp.Request.URL
	content, err := f.Extract(htmlBytes, pageURL)
	if err != nil {
		return "", err
	}
	slog.Debug("article content extracted",
		slog.String("url", urlStr),
		slog.Int("content_length", len(content)))
	return content, nil
}
