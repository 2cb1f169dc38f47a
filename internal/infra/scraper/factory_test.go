package scraper

import (
	"testing"

	"crashscraper/internal/config"
	"crashscraper/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactoryConfig() *config.Config {
	return &config.Config{
		Crawl: config.DefaultCrawlConfig(),
		Sources: []config.SourceConfig{
			{Name: "diario", Kind: "html", ListingURL: "https://diario.example/p/{page}", LinkSelector: "a"},
			{Name: "feed", Kind: "rss", ListingURL: "https://feed.example/rss"},
			{Name: "raro", Kind: "json", ListingURL: "https://raro.example"},
		},
	}
}

func TestFactory_AdapterFor(t *testing.T) {
	f := NewFactory(testFactoryConfig(), nil)

	a, err := f.AdapterFor(&entity.Source{Name: "diario"})
	require.NoError(t, err)
	assert.IsType(t, &HTMLAdapter{}, a)

	a, err = f.AdapterFor(&entity.Source{Name: "feed"})
	require.NoError(t, err)
	assert.IsType(t, &RSSAdapter{}, a)

	_, err = f.AdapterFor(&entity.Source{Name: "raro"})
	assert.Error(t, err)

	_, err = f.AdapterFor(&entity.Source{Name: "desconocido"})
	assert.ErrorIs(t, err, ErrNoSourceConfig)
}

func TestFactory_ReusesClientPerSource(t *testing.T) {
	f := NewFactory(testFactoryConfig(), nil)

	assert.Same(t, f.client("diario"), f.client("diario"))
	assert.NotSame(t, f.client("diario"), f.client("feed"))
}
