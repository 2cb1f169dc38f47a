package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
crawl:
  page_delay: 500ms
  article_delay: 0s
  max_pages: 5
sources:
  - name: diario
    base_url: https://diario.example.com
    listing_url: https://diario.example.com/policiales?page={page}
    item_selector: article
    link_selector: h2 a
    date_selector: time
    date_layouts: ["02/01/2006"]
  - name: feed
    kind: RSS
    listing_url: https://feed.example.com/rss
    active: false
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.PageDelay)
	assert.Zero(t, cfg.Crawl.ArticleDelay)
	assert.Equal(t, 5, cfg.Crawl.MaxPages)
	// 未指定の値はデフォルトで埋まる
	assert.Equal(t, DefaultCrawlConfig().UserAgent, cfg.Crawl.UserAgent)
	assert.Equal(t, DefaultCrawlConfig().RequestTimeout, cfg.Crawl.RequestTimeout)

	require.Len(t, cfg.Sources, 2)
	diario := cfg.Sources[0]
	assert.Equal(t, "html", diario.Kind)
	assert.Equal(t, 1, diario.FirstPage)
	assert.True(t, diario.Paginated())
	assert.True(t, diario.IsActive())
	assert.Equal(t, []string{"02/01/2006"}, diario.DateLayouts)

	feed := cfg.Sources[1]
	assert.Equal(t, "rss", feed.Kind)
	assert.False(t, feed.IsActive())
	assert.False(t, feed.Paginated())
	assert.False(t, feed.Entity().Active)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", `sources: [{listing_url: "https://a.example.com", link_selector: a}]`},
		{"missing listing url", `sources: [{name: a, link_selector: a}]`},
		{"bad kind", `sources: [{name: a, kind: json, listing_url: "https://a.example.com"}]`},
		{"html without link selector", `sources: [{name: a, listing_url: "https://a.example.com"}]`},
		{"private listing url", `sources: [{name: a, listing_url: "http://127.0.0.1/x", link_selector: a}]`},
		{"duplicate name", `sources: [{name: a, kind: rss, listing_url: "https://a.example.com"}, {name: a, kind: rss, listing_url: "https://b.example.com"}]`},
		{"first page url without template", `sources: [{name: a, listing_url: "https://a.example.com", first_page_url: "https://a.example.com/x", link_selector: a}]`},
		{"private first page url", `sources: [{name: a, listing_url: "https://a.example.com/{page}", first_page_url: "http://localhost/x", link_selector: a}]`},
		{"negative delay", "crawl: {page_delay: -1s}\nsources: []"},
		{"negative max pages", "crawl: {max_pages: -3}\nsources: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestSourceConfig_PageURL(t *testing.T) {
	s := SourceConfig{
		ListingURL:   "https://informate.example/default/listar_contenido?categoria=13&p={page}",
		FirstPage:    1,
		FirstPageURL: "https://informate.example/categoria/13/policiales",
	}
	assert.Equal(t, "https://informate.example/categoria/13/policiales", s.PageURL(1))
	assert.Equal(t, "https://informate.example/default/listar_contenido?categoria=13&p=2", s.PageURL(2))

	s.FirstPageURL = ""
	assert.Equal(t, "https://informate.example/default/listar_contenido?categoria=13&p=1", s.PageURL(1))
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("sources: [::"))
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))
	t.Setenv(EnvSourcesPath, path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	src, ok := cfg.Lookup("feed")
	assert.True(t, ok)
	assert.Equal(t, "https://feed.example.com/rss", src.ListingURL)
	_, ok = cfg.Lookup("missing")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_RepositoryFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "sources.yaml"))
	require.NoError(t, err)
	for _, name := range []string{
		"todojujuy", "jujuyalmomento", "jujuydice", "elsubmarinojujuy", "eltribuno-salta",
		"eltribuno", "informate_salta", "pregon", "quepasasalta", "somosjujuy",
	} {
		_, ok := cfg.Lookup(name)
		assert.True(t, ok, name)
	}
}
