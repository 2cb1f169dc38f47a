// Package cli implements the crashscraper command line: one-shot crawl and
// classification runs plus store maintenance.
package cli

import (
	"context"
	"log/slog"
	"os"

	"crashscraper/internal/config"
	"crashscraper/internal/observability/logging"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// options are the persistent flags shared by every command.
type options struct {
	sourcesPath    string
	vocabularyPath string
}

// NewRootCmd builds the crashscraper command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "crashscraper",
		Short: "Crawl regional news and classify road traffic accidents",
		Long: `crashscraper crawls local news publishers, stores the articles and labels
each one as ACCIDENT or NOT_ACCIDENT with an ensemble of four keyword
classifiers.

The store is selected with DB_DRIVER (pgx or sqlite3) and DATABASE_URL.`,
		Example: `  # Create the tables
  crashscraper migrate

  # Crawl every active source published since March
  crashscraper crawl --cutoff 2025-03-01

  # Classify pending articles with the strict preset
  crashscraper classify --preset strict`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&opts.sourcesPath, "sources", envOr(config.EnvSourcesPath, config.DefaultSourcesPath),
		"sources file (env "+config.EnvSourcesPath+")")
	flags.StringVar(&opts.vocabularyPath, "vocabulary", os.Getenv(envVocabularyPath),
		"classifier vocabulary file, embedded default when empty (env "+envVocabularyPath+")")

	root.AddCommand(
		newCrawlCmd(opts),
		newClassifyCmd(opts),
		newReclassifyCmd(opts),
		newMigrateCmd(),
		newSourcesCmd(opts),
		newDedupeCmd(),
		newStatsCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	logger := logging.NewTextLogger(os.Stderr)
	slog.SetDefault(logger)
	ctx = logging.WithLogger(ctx, logger)

	cmd := NewRootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
