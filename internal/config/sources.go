// Package config loads the crawl pipeline configuration: the publishers to
// ingest, how to read their listing and article pages, and the politeness
// settings shared by every source.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"crashscraper/internal/domain/entity"

	"gopkg.in/yaml.v3"
)

// EnvSourcesPath names the environment variable holding the sources file path.
const EnvSourcesPath = "CRASHSCRAPER_SOURCES"

// DefaultSourcesPath is used when EnvSourcesPath is unset.
const DefaultSourcesPath = "config/sources.yaml"

// PagePlaceholder is replaced by the page number in ListingURL.
const PagePlaceholder = "{page}"

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid sources config")

// Config is the root of the sources file.
type Config struct {
	Crawl   CrawlConfig    `yaml:"crawl"`
	Sources []SourceConfig `yaml:"sources"`
}

// CrawlConfig holds the politeness settings applied to every source.
type CrawlConfig struct {
	PageDelay         time.Duration `yaml:"page_delay"`
	ArticleDelay      time.Duration `yaml:"article_delay"`
	MaxPages          int           `yaml:"max_pages"`
	UserAgent         string        `yaml:"user_agent"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RawContentLimit   int           `yaml:"raw_content_limit"`
}

// SourceConfig describes one publisher.
//
// For html sources, ListingURL is a section page with an optional {page}
// placeholder starting at FirstPage. FirstPageURL, when set, is fetched
// instead for FirstPage on sites whose later pages live at another path.
// Each ItemSelector match is one candidate; LinkSelector, TitleSelector and
// DateSelector are evaluated inside it. Without ItemSelector the links are
// selected from the whole page. Article pages are read with BodySelector,
// falling back to readability extraction when it matches nothing.
//
// For rss sources, ListingURL is the feed URL and the selectors are optional.
type SourceConfig struct {
	Name          string   `yaml:"name"`
	Kind          string   `yaml:"kind"`
	BaseURL       string   `yaml:"base_url"`
	ListingURL    string   `yaml:"listing_url"`
	FirstPage     int      `yaml:"first_page"`
	FirstPageURL  string   `yaml:"first_page_url"`
	ItemSelector  string   `yaml:"item_selector"`
	LinkSelector  string   `yaml:"link_selector"`
	TitleSelector string   `yaml:"title_selector"`
	DateSelector  string   `yaml:"date_selector"`
	DateLayouts   []string `yaml:"date_layouts"`
	BodySelector  string   `yaml:"body_selector"`
	Active        *bool    `yaml:"active"`
}

// DefaultCrawlConfig returns the politeness settings of the reference
// scrapers: 2s between listing pages and 3s between articles.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		PageDelay:         2 * time.Second,
		ArticleDelay:      3 * time.Second,
		MaxPages:          50,
		UserAgent:         "Mozilla/5.0 (compatible; crashscraper/1.0)",
		RequestsPerSecond: 1,
		RequestTimeout:    15 * time.Second,
		RawContentLimit:   20000,
	}
}

// IsActive reports whether the source should be crawled; unset means active.
func (s SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// Paginated reports whether ListingURL carries the page placeholder.
func (s SourceConfig) Paginated() bool {
	return strings.Contains(s.ListingURL, PagePlaceholder)
}

// PageURL returns the listing URL of page.
func (s SourceConfig) PageURL(page int) string {
	if page == s.FirstPage && s.FirstPageURL != "" {
		return s.FirstPageURL
	}
	return strings.ReplaceAll(s.ListingURL, PagePlaceholder, strconv.Itoa(page))
}

// Entity converts the config entry into the persisted source row.
func (s SourceConfig) Entity() *entity.Source {
	return &entity.Source{
		Name:    s.Name,
		BaseURL: s.BaseURL,
		Kind:    s.Kind,
		Active:  s.IsActive(),
	}
}

// Lookup returns the source named name.
func (c *Config) Lookup(name string) (SourceConfig, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return SourceConfig{}, false
}

// Load reads and validates the sources file at path. Zero crawl settings are
// filled from DefaultCrawlConfig.
// The path parameter is expected to come from a trusted source (CLI flag or environment).
func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted source (CLI arg or env), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// LoadFromEnv loads the file named by CRASHSCRAPER_SOURCES, or DefaultSourcesPath.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvSourcesPath)
	if path == "" {
		path = DefaultSourcesPath
	}
	return Load(path)
}

// Parse decodes and validates a sources document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultCrawlConfig()
	if c.Crawl.MaxPages == 0 {
		c.Crawl.MaxPages = d.MaxPages
	}
	if c.Crawl.UserAgent == "" {
		c.Crawl.UserAgent = d.UserAgent
	}
	if c.Crawl.RequestsPerSecond == 0 {
		c.Crawl.RequestsPerSecond = d.RequestsPerSecond
	}
	if c.Crawl.RequestTimeout == 0 {
		c.Crawl.RequestTimeout = d.RequestTimeout
	}
	if c.Crawl.RawContentLimit == 0 {
		c.Crawl.RawContentLimit = d.RawContentLimit
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		s.Kind = strings.ToLower(strings.TrimSpace(s.Kind))
		if s.Kind == "" {
			s.Kind = entity.SourceKindHTML
		}
		if s.FirstPage == 0 && s.Paginated() {
			s.FirstPage = 1
		}
	}
}

// Validate checks the crawl settings and every source entry. Delays may be
// zero; negative values are rejected.
func (c *Config) Validate() error {
	if c.Crawl.PageDelay < 0 || c.Crawl.ArticleDelay < 0 {
		return fmt.Errorf("%w: delays must not be negative", ErrInvalidConfig)
	}
	if c.Crawl.MaxPages < 1 {
		return fmt.Errorf("%w: max_pages must be positive, got %d", ErrInvalidConfig, c.Crawl.MaxPages)
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative", ErrInvalidConfig)
	}
	if c.Crawl.RequestTimeout < 0 {
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: sources[%d]: %v", ErrInvalidConfig, i, err)
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: duplicate source name %q", ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

func (s SourceConfig) validate() error {
	if err := s.Entity().Validate(); err != nil {
		return err
	}
	if s.ListingURL == "" {
		return fmt.Errorf("%s: listing_url is required", s.Name)
	}
	probe := strings.ReplaceAll(s.ListingURL, PagePlaceholder, "1")
	if err := entity.ValidateURL(probe); err != nil {
		return fmt.Errorf("%s: listing_url: %w", s.Name, err)
	}
	if s.FirstPageURL != "" {
		if err := entity.ValidateURL(s.FirstPageURL); err != nil {
			return fmt.Errorf("%s: first_page_url: %w", s.Name, err)
		}
		if !s.Paginated() {
			return fmt.Errorf("%s: first_page_url needs a {page} listing_url", s.Name)
		}
	}
	if s.Kind == entity.SourceKindHTML && s.LinkSelector == "" {
		return fmt.Errorf("%s: link_selector is required for html sources", s.Name)
	}
	if s.FirstPage < 0 {
		return fmt.Errorf("%s: first_page must not be negative", s.Name)
	}
	return nil
}
