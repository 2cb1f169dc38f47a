package fetcher

import (
	"errors"
	"fmt"
	"time"

	"crashscraper/internal/pkg/config"
)

const (
	minBodySize  = 1 << 10   // 1KB
	maxBodySize  = 100 << 20 // 100MB
	maxRedirects = 10
)

// ContentFetchConfig controls the readability fallback. It is used when a
// source's body selector matches nothing and when a feed item is shorter than
// Threshold runes.
type ContentFetchConfig struct {
	Enabled        bool          // false keeps extraction of downloaded pages but never hits the network
	Threshold      int           // feed items shorter than this are completed from the article page
	Timeout        time.Duration // per request
	MaxBodySize    int64         // enforced while reading
	MaxRedirects   int           // every hop is checked like the original URL
	DenyPrivateIPs bool
	UserAgent      string
}

// DefaultConfig returns the settings used when no CONTENT_FETCH_* variable is set.
func DefaultConfig() ContentFetchConfig {
	return ContentFetchConfig{
		Enabled:        true,
		Threshold:      500,
		Timeout:        10 * time.Second,
		MaxBodySize:    10 << 20,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
		UserAgent:      "Mozilla/5.0 (compatible; crashscraper/1.0)",
	}
}

// Validate reports the first out-of-range field.
func (c *ContentFetchConfig) Validate() error {
	switch {
	case c.Threshold < 0:
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	case c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize:
		return fmt.Errorf("max body size must be within [%d, %d] bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	case c.MaxRedirects < 0 || c.MaxRedirects > maxRedirects:
		return fmt.Errorf("max redirects must be within [0, %d], got %d", maxRedirects, c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv overlays CONTENT_FETCH_* variables on DefaultConfig.
//
// Loading is fail-open like the worker configuration: a variable that cannot
// be parsed or is out of range keeps its default. The returned config is
// always valid; the error joins one warning per rejected variable.
//
//	CONTENT_FETCH_ENABLED           bool     (true)
//	CONTENT_FETCH_THRESHOLD         int      (500)
//	CONTENT_FETCH_TIMEOUT           duration (10s)
//	CONTENT_FETCH_MAX_BODY_SIZE     bytes    (10485760)
//	CONTENT_FETCH_MAX_REDIRECTS     int      (5)
//	CONTENT_FETCH_DENY_PRIVATE_IPS  bool     (true)
//	CONTENT_FETCH_USER_AGENT        string
func LoadConfigFromEnv() (ContentFetchConfig, error) {
	cfg := DefaultConfig()
	var warnings []error
	collect := func(ws []string) {
		for _, w := range ws {
			warnings = append(warnings, errors.New(w))
		}
	}

	enabled := config.LoadEnvBool("CONTENT_FETCH_ENABLED", cfg.Enabled)
	cfg.Enabled = enabled.Value
	collect(enabled.Warnings)

	threshold := config.LoadEnvInt("CONTENT_FETCH_THRESHOLD", cfg.Threshold, func(v int) error {
		return config.ValidateIntRange(v, 0, 100_000)
	})
	cfg.Threshold = threshold.Value
	collect(threshold.Warnings)

	timeout := config.LoadEnvDuration("CONTENT_FETCH_TIMEOUT", cfg.Timeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	cfg.Timeout = timeout.Value
	collect(timeout.Warnings)

	body := config.LoadEnvInt("CONTENT_FETCH_MAX_BODY_SIZE", int(cfg.MaxBodySize), func(v int) error {
		return config.ValidateIntRange(v, minBodySize, maxBodySize)
	})
	cfg.MaxBodySize = int64(body.Value)
	collect(body.Warnings)

	redirects := config.LoadEnvInt("CONTENT_FETCH_MAX_REDIRECTS", cfg.MaxRedirects, func(v int) error {
		return config.ValidateIntRange(v, 0, maxRedirects)
	})
	cfg.MaxRedirects = redirects.Value
	collect(redirects.Warnings)

	deny := config.LoadEnvBool("CONTENT_FETCH_DENY_PRIVATE_IPS", cfg.DenyPrivateIPs)
	cfg.DenyPrivateIPs = deny.Value
	collect(deny.Warnings)

	cfg.UserAgent = config.LoadEnvString("CONTENT_FETCH_USER_AGENT", cfg.UserAgent)

	return cfg, errors.Join(warnings...)
}
