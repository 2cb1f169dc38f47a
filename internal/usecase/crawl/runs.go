package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/metrics"

	"golang.org/x/sync/errgroup"
)

// SourceRun pairs a source with the adapter that crawls it.
type SourceRun struct {
	Source  *entity.Source
	Adapter SourceAdapter
}

// Report aggregates the results of RunAllSources in input order.
type Report struct {
	Sources  []SourceResult
	Total    int // sum of Inserted over all sources
	Duration time.Duration
}

// Failed returns the results whose run ended with an error.
func (r Report) Failed() []SourceResult {
	var out []SourceResult
	for _, res := range r.Sources {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// RunAllSources runs every source with its own timeout, up to Parallelism at
// a time. A source failure is recorded in its SourceResult and never stops the
// others; the only error returned is the cancellation of ctx itself.
func (s *Service) RunAllSources(ctx context.Context, runs []SourceRun, cutoff time.Time) (Report, error) {
	logger := logging.FromContext(ctx)
	start := time.Now()
	report := Report{Sources: make([]SourceResult, len(runs))}

	// 1ソースの失敗で他を止めないため WithContext は使わない
	var eg errgroup.Group
	eg.SetLimit(s.opts.Parallelism)

	for i, run := range runs {
		name := ""
		if run.Source != nil {
			name = run.Source.Name
		}
		if err := ctx.Err(); err != nil {
			report.Sources[i] = SourceResult{SourceName: name, Err: err}
			continue
		}
		eg.Go(func() error {
			report.Sources[i] = s.runWithTimeout(ctx, run, cutoff)
			return nil
		})
	}
	_ = eg.Wait()

	for _, res := range report.Sources {
		report.Total += res.Inserted
	}
	report.Duration = time.Since(start)

	logger.Info("all sources crawl completed",
		slog.Int("sources", len(runs)),
		slog.Int("failed_sources", len(report.Failed())),
		slog.Int("inserted", report.Total),
		slog.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *Service) runWithTimeout(ctx context.Context, run SourceRun, cutoff time.Time) SourceResult {
	if s.opts.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.SourceTimeout)
		defer cancel()
	}
	res, err := s.RunSource(ctx, run.Source, run.Adapter, cutoff)
	if err != nil {
		res.Err = err
		if errors.Is(err, context.DeadlineExceeded) && run.Source != nil {
			metrics.RecordCrawlError(run.Source.Name, "timeout")
		}
	}
	return res
}

// BuildRuns resolves the sources to crawl: the named ones, or every active
// source when names is empty. A source whose adapter cannot be built is
// reported as a failed result instead of aborting the others.
func (s *Service) BuildRuns(ctx context.Context, factory AdapterFactory, names ...string) ([]SourceRun, []SourceResult, error) {
	var (
		sources []*entity.Source
		err     error
	)
	if len(names) == 0 {
		sources, err = s.SourceRepo.ListActive(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("list active sources: %w", err)
		}
	} else {
		for _, name := range names {
			src, err := s.SourceRepo.GetByName(ctx, name)
			if err != nil {
				return nil, nil, fmt.Errorf("get source %q: %w", name, err)
			}
			if src == nil {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
			}
			sources = append(sources, src)
		}
	}

	runs := make([]SourceRun, 0, len(sources))
	var broken []SourceResult
	for _, src := range sources {
		adapter, err := factory.AdapterFor(src)
		if err != nil {
			logging.FromContext(ctx).Warn("cannot build adapter, skipping source",
				slog.String("source", src.Name),
				slog.Any("error", err))
			broken = append(broken, SourceResult{SourceName: src.Name, Err: err})
			continue
		}
		runs = append(runs, SourceRun{Source: src, Adapter: adapter})
	}
	return runs, broken, nil
}
