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
	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/repository"
	"crashscraper/internal/resilience/retry"
	"crashscraper/internal/utils/text"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxPages bounds the pages read from one source in a run.
	DefaultMaxPages = 50
	// DefaultRawContentLimit caps the stored raw content, in runes.
	DefaultRawContentLimit = 20000
)

// Options tune a crawl run. Zero values select the defaults documented on each field.
type Options struct {
	MaxPages        int           // 0 → DefaultMaxPages
	PageDelay       time.Duration // wait between listing pages
	ArticleDelay    time.Duration // wait between detail fetches
	RawContentLimit int           // 0 → DefaultRawContentLimit, <0 → no cap
	Parallelism     int           // concurrent sources in RunAllSources, 0 → 1
	SourceTimeout   time.Duration // per-source deadline in RunAllSources, 0 → none
}

func (o Options) withDefaults() Options {
	if o.MaxPages <= 0 {
		o.MaxPages = DefaultMaxPages
	}
	if o.RawContentLimit == 0 {
		o.RawContentLimit = DefaultRawContentLimit
	}
	if o.Parallelism <= 0 {
		o.Parallelism = 1
	}
	return o
}

// SourceResult holds the counters of one source run. It is returned even when
// the run was aborted, so that partial progress stays visible.
type SourceResult struct {
	SourceName      string
	Pages           int
	Candidates      int
	Inserted        int
	Skipped         int // URL already stored before the run
	Duplicated      int // lost an insert race on the URL
	Failed          int
	StoppedAtCutoff bool
	Err             error
	Duration        time.Duration
}

// Service orchestrates crawling of one or more sources.
type Service struct {
	ArticleRepo repository.ArticleRepository
	SourceRepo  repository.SourceRepository
	opts        Options
	now         func() time.Time
}

// NewService creates a crawl Service. sourceRepo may be nil when crawled_at
// bookkeeping is not wanted.
func NewService(articleRepo repository.ArticleRepository, sourceRepo repository.SourceRepository, opts Options) *Service {
	return &Service{
		ArticleRepo: articleRepo,
		SourceRepo:  sourceRepo,
		opts:        opts.withDefaults(),
		now:         time.Now,
	}
}

// RunSource crawls one source until the cutoff, the end of the listing, the
// page limit, a listing failure or cancellation, whichever comes first.
//
// Per-article failures never abort the run. A listing failure aborts it and is
// returned as a *entity.NetworkError; cancellation returns the context error.
// In both cases the partial SourceResult is returned as well.
func (s *Service) RunSource(ctx context.Context, src *entity.Source, adapter SourceAdapter, cutoff time.Time) (res SourceResult, err error) {
	if src == nil {
		return res, ErrNilSource
	}
	if adapter == nil {
		return res, ErrNilAdapter
	}

	res.SourceName = src.Name
	start := s.now()
	logger := logging.FromContext(ctx).With(slog.String("source", src.Name))

	ctx, span := tracing.StartSpan(ctx, "crawl.source",
		attribute.String("source", src.Name),
		attribute.String("cutoff", cutoff.Format(time.DateOnly)))

	defer func() {
		res.Duration = time.Since(start)
		res.Err = err
		s.touch(ctx, src, logger)
		metrics.RecordSourceCrawl(src.Name, res.Duration, res.Pages, res.Inserted, res.Skipped, res.Duplicated, res.Failed)
		span.SetAttributes(
			attribute.Int("pages", res.Pages),
			attribute.Int("inserted", res.Inserted),
			attribute.Int("failed", res.Failed),
		)
		tracing.EndSpan(span, err)

		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "source crawl finished",
			slog.Int("pages", res.Pages),
			slog.Int("candidates", res.Candidates),
			slog.Int("inserted", res.Inserted),
			slog.Int("skipped", res.Skipped),
			slog.Int("duplicated", res.Duplicated),
			slog.Int("failed", res.Failed),
			slog.Bool("stopped_at_cutoff", res.StoppedAtCutoff),
			slog.Duration("duration", res.Duration),
			slog.Any("error", err))
	}()

	r := &sourceRun{svc: s, src: src, adapter: adapter, cutoff: cutoff, logger: logger, res: &res}
	err = r.run(ctx)
	return res, err
}

// touch updates last_crawled_at regardless of how the run ended.
func (s *Service) touch(ctx context.Context, src *entity.Source, logger *slog.Logger) {
	if s.SourceRepo == nil || src.ID == 0 {
		return
	}
	safeCtx := context.WithoutCancel(ctx)
	if err := s.SourceRepo.TouchCrawledAt(safeCtx, src.ID, s.now()); err != nil {
		logger.Warn("failed to update source crawled timestamp", slog.Any("error", err))
	}
}

// sourceRun carries the state of a single RunSource call.
type sourceRun struct {
	svc     *Service
	src     *entity.Source
	adapter SourceAdapter
	cutoff  time.Time
	logger  *slog.Logger
	res     *SourceResult
	fetched int

	// stored holds the URLs of the current page already in the store.
	// lookupErr is set when that page's lookup failed.
	stored    map[string]bool
	lookupErr error
}

func (r *sourceRun) run(ctx context.Context) error {
	opts := r.svc.opts
	token := ""

	for page := 0; page < opts.MaxPages; page++ {
		if page > 0 {
			if err := retry.Sleep(ctx, opts.PageDelay); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		candidates, next, err := r.adapter.NextPage(ctx, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			metrics.RecordCrawlError(r.src.Name, "listing_failed")
			return listingError(r.src, token, err)
		}
		r.res.Pages++

		if len(candidates) == 0 {
			return nil
		}
		if err := r.lookupPage(ctx, candidates); err != nil {
			return err
		}
		for _, c := range candidates {
			stop, err := r.candidate(ctx, c)
			if err != nil {
				return err
			}
			if stop {
				r.res.StoppedAtCutoff = true
				return nil
			}
		}
		if next == "" {
			return nil
		}
		token = next
	}

	r.logger.Warn("max pages reached, stopping source",
		slog.Int("max_pages", opts.MaxPages))
	return nil
}

// lookupPage checks every URL of a listing page against the store with a
// single query. A store failure is counted per candidate by candidate.
func (r *sourceRun) lookupPage(ctx context.Context, candidates []Candidate) error {
	urls := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			urls = append(urls, c.URL)
		}
	}
	stored, err := r.svc.ArticleRepo.ExistsByURLBatch(ctx, urls)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.stored, r.lookupErr = nil, err
		return nil
	}
	if stored == nil {
		stored = make(map[string]bool)
	}
	r.stored, r.lookupErr = stored, nil
	return nil
}

// candidate processes one listing entry. It reports stop=true when the
// cutoff was crossed; a non-nil error is always a context error.
func (r *sourceRun) candidate(ctx context.Context, c Candidate) (stop bool, err error) {
	r.res.Candidates++
	logger := r.logger.With(slog.String("url", c.URL))

	if c.URL == "" {
		r.fail(logger, &entity.ParseError{URL: r.src.BaseURL, Field: "url"})
		return false, nil
	}

	if r.lookupErr != nil {
		r.fail(logger, &entity.StorageError{Op: "ExistsByURLBatch", Err: r.lookupErr})
		return false, nil
	}
	if r.stored[c.URL] {
		r.res.Skipped++
		return false, nil
	}

	if !c.PublishedAt.IsZero() && c.PublishedAt.Before(r.cutoff) {
		logger.Debug("cutoff reached", slog.Time("published_at", c.PublishedAt))
		return true, nil
	}

	if r.fetched > 0 {
		if err := retry.Sleep(ctx, r.svc.opts.ArticleDelay); err != nil {
			return false, err
		}
	}
	r.fetched++

	detail, err := r.adapter.FetchDetail(ctx, c)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		r.fail(logger, err)
		return false, nil
	}

	art := r.article(c, detail)

	// 一覧に日付がない場合は本文側の日付でカットオフ判定する
	if c.PublishedAt.IsZero() && !art.PublishedAt.IsZero() && art.PublishedAt.Before(r.cutoff) {
		logger.Debug("cutoff reached on detail date", slog.Time("published_at", art.PublishedAt))
		return true, nil
	}

	if err := art.Validate(); err != nil {
		var ve *entity.ValidationError
		if errors.As(err, &ve) {
			err = &entity.ParseError{URL: c.URL, Field: ve.Field, Err: err}
		}
		r.fail(logger, err)
		return false, nil
	}

	id, err := r.svc.ArticleRepo.Insert(ctx, art)
	switch {
	case errors.Is(err, entity.ErrDuplicate):
		r.res.Duplicated++
		r.stored[c.URL] = true
		logger.Debug("article already stored by a concurrent run")
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		r.fail(logger, &entity.StorageError{Op: "Insert", Err: err})
	default:
		r.res.Inserted++
		// 同じページ内で再掲された URL は Skipped として数える
		r.stored[c.URL] = true
		logger.Debug("article stored", slog.Int64("article_id", id))
	}
	return false, nil
}

// article merges the listing candidate and the detail page into an Article.
func (r *sourceRun) article(c Candidate, d Detail) *entity.Article {
	title := text.CollapseSpace(d.Title)
	if title == "" {
		title = text.CollapseSpace(c.Title)
	}
	body := d.Body
	if body == "" {
		body = c.Body
	}
	published := d.PublishedAt
	if published.IsZero() {
		published = c.PublishedAt
	}
	return &entity.Article{
		SourceID:    r.src.ID,
		URL:         c.URL,
		Title:       title,
		Body:        body,
		RawContent:  text.Truncate(d.RawContent, r.svc.opts.RawContentLimit),
		PublishedAt: published,
		CreatedAt:   r.svc.now(),
		Label:       entity.LabelUnclassified,
	}
}

func (r *sourceRun) fail(logger *slog.Logger, err error) {
	r.res.Failed++
	logger.Warn("article skipped", slog.Any("error", err))
}

// listingError normalizes an adapter listing failure to *entity.NetworkError.
func listingError(src *entity.Source, token string, err error) error {
	var ne *entity.NetworkError
	if errors.As(err, &ne) {
		return fmt.Errorf("listing page %q: %w", token, err)
	}
	return &entity.NetworkError{URL: src.BaseURL, Err: fmt.Errorf("listing page %q: %w", token, err)}
}
