package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"crashscraper/internal/config"
	"crashscraper/internal/domain/entity"
	"crashscraper/internal/infra/scraper"
	"crashscraper/internal/usecase/crawl"

	"github.com/spf13/cobra"
)

// Diagnostic statuses reported by sources check.
const (
	checkOK         = "OK"
	checkEmpty      = "EMPTY"
	checkHTTPError  = "HTTP_ERROR"
	checkTimeout    = "TIMEOUT"
	checkParseError = "PARSE_ERROR"
)

// SourceDiagnostic is the result of reading the first listing page of a source.
type SourceDiagnostic struct {
	Name           string `json:"name"`
	Kind           string `json:"kind"`
	URL            string `json:"url"`
	Status         string `json:"status"`
	HTTPCode       int    `json:"http_code,omitempty"`
	CandidateCount int    `json:"candidate_count"`
	LatestDate     string `json:"latest_date,omitempty"`
	HasNextPage    bool   `json:"has_next_page"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ResponseTime   int64  `json:"response_time_ms"`
}

func newSourcesCheckCmd(opts *options) *cobra.Command {
	var (
		names   []string
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch the first listing page of each configured source",
		Long: `Check reads the first listing page of every configured source with the
same adapters the crawler uses and reports how many candidates were found.
Use it after editing selectors in the sources file. Nothing is stored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadSources()
			if err != nil {
				return err
			}
			diags, err := diagnoseSources(cmd.Context(), cfg, scraper.NewFactory(cfg, newReadability(cmd.Context())), names, timeout)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(diags)
			}
			return printDiagnostics(cmd.OutOrStdout(), diags)
		},
	}
	cmd.Flags().StringSliceVar(&names, "source", nil, "check only the named sources")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "time limit per source")
	return cmd
}

// diagnoseSources checks the named sources, or every configured one, in
// file order. Inactive sources are checked too.
func diagnoseSources(ctx context.Context, cfg *config.Config, factory crawl.AdapterFactory, names []string, timeout time.Duration) ([]SourceDiagnostic, error) {
	selected := cfg.Sources
	if len(names) > 0 {
		selected = make([]config.SourceConfig, 0, len(names))
		for _, name := range names {
			sc, ok := cfg.Lookup(name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", crawl.ErrUnknownSource, name)
			}
			selected = append(selected, sc)
		}
	}

	diags := make([]SourceDiagnostic, 0, len(selected))
	for _, sc := range selected {
		if err := ctx.Err(); err != nil {
			return diags, err
		}
		diags = append(diags, diagnoseSource(ctx, sc, factory, timeout))
	}
	return diags, nil
}

func diagnoseSource(ctx context.Context, sc config.SourceConfig, factory crawl.AdapterFactory, timeout time.Duration) SourceDiagnostic {
	diag := SourceDiagnostic{Name: sc.Name, Kind: sc.Kind, URL: sc.ListingURL}

	adapter, err := factory.AdapterFor(sc.Entity())
	if err != nil {
		diag.Status = checkParseError
		diag.ErrorMessage = err.Error()
		return diag
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	candidates, next, err := adapter.NextPage(ctx, "")
	diag.ResponseTime = time.Since(start).Milliseconds()
	if err != nil {
		diag.ErrorMessage = err.Error()
		var netErr *entity.NetworkError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			diag.Status = checkTimeout
		case errors.As(err, &netErr):
			diag.Status = checkHTTPError
			diag.HTTPCode = netErr.StatusCode
		default:
			diag.Status = checkParseError
		}
		return diag
	}

	diag.CandidateCount = len(candidates)
	diag.HasNextPage = next != ""
	if len(candidates) == 0 {
		diag.Status = checkEmpty
		diag.ErrorMessage = "listing has no candidates, check the selectors"
		return diag
	}
	diag.Status = checkOK
	// 候補は新しい順に並んでいる
	if d := candidates[0].PublishedAt; !d.IsZero() {
		diag.LatestDate = d.Format(time.RFC3339)
	}
	return diag
}

func printDiagnostics(w io.Writer, diags []SourceDiagnostic) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tSTATUS\tCANDIDATES\tLATEST\tTIME\tERROR")
	healthy := 0
	for _, d := range diags {
		latest := d.LatestDate
		if latest == "" {
			latest = "-"
		}
		if d.Status == checkOK {
			healthy++
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%dms\t%s\n",
			d.Name, d.Status, d.CandidateCount, latest, d.ResponseTime, d.ErrorMessage)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d sources healthy\n", healthy, len(diags))
	return err
}
