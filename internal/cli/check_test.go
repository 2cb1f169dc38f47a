package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"crashscraper/internal/config"
	"crashscraper/internal/infra/scraper"
	"crashscraper/internal/usecase/crawl"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Policiales</title>
<item><title>Choque en ruta 9</title><link>%[1]s/nota/2</link><pubDate>Tue, 11 Mar 2025 10:00:00 GMT</pubDate></item>
<item><title>Vuelco en Palpalá</title><link>%[1]s/nota/1</link><pubDate>Mon, 10 Mar 2025 10:00:00 GMT</pubDate></item>
</channel></rss>`

func newCheckServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, checkFeed, srv.URL)
	})
	mux.HandleFunc("/vacio/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Sin notas</p></body></html>`)
	})
	mux.HandleFunc("/roto/", http.NotFound)
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func checkConfig(t *testing.T, base string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf(`
crawl:
  max_pages: 1
  requests_per_second: 100
sources:
  - name: feed
    kind: rss
    base_url: %[1]s
    listing_url: %[1]s/rss
  - name: vacio
    kind: html
    base_url: %[1]s
    listing_url: %[1]s/vacio/{page}
    link_selector: article a
  - name: roto
    kind: html
    base_url: %[1]s
    listing_url: %[1]s/roto/{page}
    link_selector: article a
`, base)))
	require.NoError(t, err)
	return cfg
}

func TestDiagnoseSources(t *testing.T) {
	srv := newCheckServer(t)
	cfg := checkConfig(t, srv.URL)

	diags, err := diagnoseSources(context.Background(), cfg, scraper.NewFactory(cfg, nil), nil, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, diags, 3)

	assert.Equal(t, checkOK, diags[0].Status)
	assert.Equal(t, 2, diags[0].CandidateCount)
	assert.Equal(t, "2025-03-11T10:00:00Z", diags[0].LatestDate)
	assert.False(t, diags[0].HasNextPage)

	assert.Equal(t, checkEmpty, diags[1].Status)
	assert.Zero(t, diags[1].CandidateCount)

	assert.Equal(t, checkHTTPError, diags[2].Status)
	assert.Equal(t, http.StatusNotFound, diags[2].HTTPCode)
	assert.NotEmpty(t, diags[2].ErrorMessage)
}

func TestDiagnoseSourcesByName(t *testing.T) {
	srv := newCheckServer(t)
	cfg := checkConfig(t, srv.URL)

	diags, err := diagnoseSources(context.Background(), cfg, scraper.NewFactory(cfg, nil), []string{"feed"}, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "feed", diags[0].Name)

	_, err = diagnoseSources(context.Background(), cfg, scraper.NewFactory(cfg, nil), []string{"nope"}, 5*time.Second)
	assert.ErrorIs(t, err, crawl.ErrUnknownSource)
}

func TestSourcesCheckJSON(t *testing.T) {
	srv := newCheckServer(t)

	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(`
sources:
  - name: feed
    kind: rss
    base_url: %[1]s
    listing_url: %[1]s/rss
`, srv.URL)), 0o600))

	out, err := execute(t, "--sources", path, "sources", "check", "--json")
	require.NoError(t, err)

	var diags []SourceDiagnostic
	require.NoError(t, json.Unmarshal([]byte(out), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, checkOK, diags[0].Status)
}
