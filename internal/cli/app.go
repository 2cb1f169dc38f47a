package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"crashscraper/internal/classifier"
	"crashscraper/internal/config"
	"crashscraper/internal/infra/adapter/persistence"
	"crashscraper/internal/infra/db"
	"crashscraper/internal/infra/fetcher"
	"crashscraper/internal/infra/scraper"
	"crashscraper/internal/observability/logging"

	"github.com/spf13/cobra"
)

const envVocabularyPath = "CRASHSCRAPER_VOCABULARY"

// app is the store handle opened for one command.
type app struct {
	db      *sql.DB
	dialect db.Dialect
	repos   persistence.Repositories
}

func openApp(ctx context.Context) (*app, error) {
	conn, dialect, err := db.OpenFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return &app{
		db:      conn,
		dialect: dialect,
		repos:   persistence.NewRepositories(conn, dialect),
	}, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.db.Close(); err != nil {
		logging.FromContext(ctx).Warn("failed to close database", slog.Any("error", err))
	}
}

// withApp opens the store around fn and closes it afterwards.
func withApp(fn func(cmd *cobra.Command, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())
		return fn(cmd, a)
	}
}

func (o *options) loadSources() (*config.Config, error) {
	cfg, err := config.Load(o.sourcesPath)
	if err != nil {
		return nil, fmt.Errorf("load sources %s: %w", o.sourcesPath, err)
	}
	return cfg, nil
}

func (o *options) newEnsemble() (*classifier.Ensemble, error) {
	vocabulary, err := classifier.LoadConfig(o.vocabularyPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	ensemble, err := classifier.New(vocabulary)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return ensemble, nil
}

// newReadability returns the body extraction fallback. Rejected
// CONTENT_FETCH_* values keep their defaults.
func newReadability(ctx context.Context) scraper.Readability {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logging.FromContext(ctx).Warn("content fetch configuration fallback applied", slog.Any("error", err))
	}
	return fetcher.NewReadabilityFetcher(cfg)
}
