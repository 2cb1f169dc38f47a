package scraper

import (
	"errors"
	"fmt"
	"sync"

	"crashscraper/internal/config"
	"crashscraper/internal/domain/entity"
	"crashscraper/internal/usecase/crawl"
)

// ErrNoSourceConfig is returned for a stored source that has no entry in the
// sources file.
var ErrNoSourceConfig = errors.New("no configuration for source")

// Readability is the optional content extraction backend shared by the
// adapters.
type Readability interface {
	Extractor
	ContentFetcher
}

// Factory builds adapters from the sources file. One Client is kept per
// source so its rate limiter and circuit breaker outlive a single run.
type Factory struct {
	cfg         *config.Config
	readability Readability

	mu      sync.Mutex
	clients map[string]*Client
}

var _ crawl.AdapterFactory = (*Factory)(nil)

// NewFactory creates a Factory. readability may be nil.
func NewFactory(cfg *config.Config, readability Readability) *Factory {
	return &Factory{
		cfg:         cfg,
		readability: readability,
		clients:     make(map[string]*Client),
	}
}

// AdapterFor implements crawl.AdapterFactory.
func (f *Factory) AdapterFor(src *entity.Source) (crawl.SourceAdapter, error) {
	sc, ok := f.cfg.Lookup(src.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSourceConfig, src.Name)
	}
	client := f.client(sc.Name)

	switch sc.Kind {
	case entity.SourceKindRSS:
		return NewRSSAdapter(sc, client, f.readability), nil
	case entity.SourceKindHTML:
		return NewHTMLAdapter(sc, client, f.readability), nil
	default:
		return nil, fmt.Errorf("source %s: unsupported kind %q", src.Name, sc.Kind)
	}
}

func (f *Factory) client(name string) *Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients[name]; ok {
		return c
	}
	c := NewClient(name, ClientOptions{
		UserAgent:         f.cfg.Crawl.UserAgent,
		RequestsPerSecond: f.cfg.Crawl.RequestsPerSecond,
		Timeout:           f.cfg.Crawl.RequestTimeout,
	})
	f.clients[name] = c
	return c
}
