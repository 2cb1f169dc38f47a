package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"crashscraper/internal/infra/scraper"
	"crashscraper/internal/usecase/crawl"
	"crashscraper/internal/usecase/source"

	"github.com/spf13/cobra"
)

// cutoffLayout is the --cutoff date format.
const cutoffLayout = "2006-01-02"

// defaultCutoffDays is the look-back window when --cutoff is omitted.
const defaultCutoffDays = 30

// ErrSourcesFailed is returned when at least one source did not finish.
var ErrSourcesFailed = errors.New("sources failed")

type crawlOptions struct {
	sources     []string
	cutoff      string
	parallelism int
	timeout     time.Duration
}

func newCrawlCmd(opts *options) *cobra.Command {
	co := &crawlOptions{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl sources and store new articles",
		Long: `Crawl walks the listing pages of every active source (or the ones given
with --source), newest first, and stores each article not seen before.
A source stops at the first article older than the cutoff date.

Sources are synced from the sources file before crawling.`,
		Example: `  crashscraper crawl
  crashscraper crawl --source todojujuy --cutoff 2025-01-01`,
		RunE: withApp(func(cmd *cobra.Command, a *app) error {
			return runCrawl(cmd, a, opts, co)
		}),
	}
	cmd.Flags().StringSliceVar(&co.sources, "source", nil, "crawl only the named sources (repeatable)")
	cmd.Flags().StringVar(&co.cutoff, "cutoff", "", fmt.Sprintf("oldest publication date, YYYY-MM-DD (default %d days ago)", defaultCutoffDays))
	cmd.Flags().IntVar(&co.parallelism, "parallel", 2, "sources crawled at the same time")
	cmd.Flags().DurationVar(&co.timeout, "source-timeout", 30*time.Minute, "time limit per source")
	return cmd
}

func runCrawl(cmd *cobra.Command, a *app, opts *options, co *crawlOptions) error {
	ctx := cmd.Context()

	cutoff, err := parseCutoff(co.cutoff, time.Now())
	if err != nil {
		return err
	}
	cfg, err := opts.loadSources()
	if err != nil {
		return err
	}
	if _, err := (&source.Service{Repo: a.repos.Sources}).Sync(ctx, cfg.Sources); err != nil {
		return fmt.Errorf("sync sources: %w", err)
	}

	svc := crawl.NewService(a.repos.Articles, a.repos.Sources, crawl.Options{
		MaxPages:        cfg.Crawl.MaxPages,
		PageDelay:       cfg.Crawl.PageDelay,
		ArticleDelay:    cfg.Crawl.ArticleDelay,
		RawContentLimit: cfg.Crawl.RawContentLimit,
		Parallelism:     co.parallelism,
		SourceTimeout:   co.timeout,
	})
	factory := scraper.NewFactory(cfg, newReadability(ctx))

	runs, broken, err := svc.BuildRuns(ctx, factory, co.sources...)
	if err != nil {
		return err
	}
	report, err := svc.RunAllSources(ctx, runs, cutoff)
	if err != nil {
		return err
	}
	report.Sources = append(report.Sources, broken...)

	printReport(cmd.OutOrStdout(), report)

	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrSourcesFailed, failed, len(report.Sources))
	}
	return nil
}

// parseCutoff returns midnight UTC of value, or of defaultCutoffDays before
// now when value is empty.
func parseCutoff(value string, now time.Time) (time.Time, error) {
	if value == "" {
		y, m, d := now.UTC().AddDate(0, 0, -defaultCutoffDays).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(cutoffLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --cutoff %q: expected YYYY-MM-DD", value)
	}
	return t, nil
}

func printReport(w io.Writer, report crawl.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tPAGES\tINSERTED\tSKIPPED\tFAILED\tCUTOFF\tSTATUS")
	for _, res := range report.Sources {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%t\t%s\n",
			res.SourceName, res.Pages, res.Inserted, res.Skipped+res.Duplicated, res.Failed, res.StoppedAtCutoff, status)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "\n%d new articles in %s\n", report.Total, report.Duration.Round(time.Millisecond))
}
