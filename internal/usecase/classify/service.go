package classify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"crashscraper/internal/classifier"
	"crashscraper/internal/domain/entity"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/metrics"
	"crashscraper/internal/observability/tracing"
	"crashscraper/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of articles read and written per batch.
const DefaultBatchSize = 10

const (
	modeBatch      = "batch"
	modePending    = "pending"
	modeReclassify = "reclassify"
)

// Classifier computes the votes and label of one article.
// *classifier.Ensemble implements it.
type Classifier interface {
	Classify(title, body string, th classifier.Thresholds) classifier.Result
}

// AccidentNotifier is told about articles newly labelled ACCIDENT.
// Implementations must not block; delivery failures are theirs to handle.
type AccidentNotifier interface {
	NotifyAccident(ctx context.Context, article *entity.Article) error
}

// Options tune the classification loop.
type Options struct {
	BatchSize int // 0 → DefaultBatchSize
	Workers   int // concurrent classifications within a batch, 0 → 1
}

// BatchResult summarizes one ClassifyBatch call.
type BatchResult struct {
	Classified int
	Accidents  int
	Failed     int
	// Newly holds the articles whose stored label became ACCIDENT.
	Newly []*entity.Article
}

// Service provides the classification entry points.
type Service struct {
	Articles   repository.ArticleRepository
	Classifier Classifier
	Notifier   AccidentNotifier
	opts       Options
}

// NewService creates a classify Service. notifier may be nil.
func NewService(articles repository.ArticleRepository, cls Classifier, notifier AccidentNotifier, opts Options) (*Service, error) {
	if cls == nil {
		return nil, ErrNilClassifier
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBatchSize, opts.BatchSize)
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Service{Articles: articles, Classifier: cls, Notifier: notifier, opts: opts}, nil
}

// ClassifyBatch classifies each article and stores its votes and label.
// A failed update is logged and counted; the article stays unclassified for a
// later run and the rest of the batch continues. The returned error is
// non-nil only for invalid thresholds or cancellation.
func (s *Service) ClassifyBatch(ctx context.Context, articles []*entity.Article, th classifier.Thresholds) (BatchResult, error) {
	if err := th.Validate(); err != nil {
		return BatchResult{}, err
	}
	return s.classifyBatch(ctx, articles, th, modeBatch)
}

func (s *Service) classifyBatch(ctx context.Context, articles []*entity.Article, th classifier.Thresholds, mode string) (BatchResult, error) {
	start := time.Now()
	logger := logging.FromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "classify.batch",
		attribute.String("mode", mode),
		attribute.Int("size", len(articles)))

	var (
		mu  sync.Mutex
		res BatchResult
	)
	var eg errgroup.Group
	eg.SetLimit(s.opts.Workers)

	for _, art := range articles {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			r := s.Classifier.Classify(art.Title, art.Body, th)
			err := s.Articles.UpdateClassification(ctx, art.ID, r.Votes)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed++
				metrics.RecordClassificationFailure()
				logger.Warn("failed to store classification",
					slog.Int64("article_id", art.ID),
					slog.String("url", art.URL),
					slog.Any("error", &entity.StorageError{Op: "UpdateClassification", Err: err}))
				return nil
			}

			res.Classified++
			metrics.RecordClassification(string(r.Label), mode, voteMap(r.Votes))
			if r.Label == entity.LabelAccident {
				res.Accidents++
				if art.Label != entity.LabelAccident {
					updated := *art
					updated.Votes = r.Votes
					updated.Label = r.Label
					res.Newly = append(res.Newly, &updated)
				}
			}
			logger.Debug("article classified",
				slog.Int64("article_id", art.ID),
				slog.String("label", string(r.Label)),
				slog.Any("scores", r.Scores),
				slog.Bool("excluded", r.Excluded))
			return nil
		})
	}
	_ = eg.Wait()

	metrics.RecordClassificationBatch(time.Since(start))
	span.SetAttributes(attribute.Int("classified", res.Classified), attribute.Int("failed", res.Failed))
	err := ctx.Err()
	tracing.EndSpan(span, err)
	return res, err
}

// ClassifyPending classifies every article with a missing vote and returns the
// number classified. The pass walks the pending rows once by id; an article
// whose update failed keeps its NULL votes and is picked up by a later call.
func (s *Service) ClassifyPending(ctx context.Context, th classifier.Thresholds) (int, error) {
	if err := th.Validate(); err != nil {
		return 0, err
	}
	logger := logging.FromContext(ctx)
	total, failed := 0, 0
	var lastID int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := s.Articles.ListUnclassified(ctx, lastID, s.opts.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list unclassified after id %d: %w", lastID, err)
		}
		if len(batch) == 0 {
			break
		}

		res, err := s.classifyBatch(ctx, batch, th, modePending)
		total += res.Classified
		failed += res.Failed
		lastID = batch[len(batch)-1].ID
		s.notify(ctx, res.Newly)
		if err != nil {
			return total, err
		}
	}

	logger.Info("pending classification completed",
		slog.Int("classified", total),
		slog.Int("failed", failed),
		slog.String("thresholds", th.String()))
	return total, nil
}

// ReclassifyAll overwrites the votes and label of every stored article,
// walking the table by id. It returns the number of articles classified.
func (s *Service) ReclassifyAll(ctx context.Context, th classifier.Thresholds) (int, error) {
	if err := th.Validate(); err != nil {
		return 0, err
	}
	logger := logging.FromContext(ctx)
	total, failed := 0, 0
	var lastID int64

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		batch, err := s.Articles.ListAfterID(ctx, lastID, s.opts.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list after id %d: %w", lastID, err)
		}
		if len(batch) == 0 {
			break
		}

		res, err := s.classifyBatch(ctx, batch, th, modeReclassify)
		total += res.Classified
		failed += res.Failed
		if err != nil {
			return total, err
		}
		lastID = batch[len(batch)-1].ID
	}

	logger.Info("reclassification completed",
		slog.Int("classified", total),
		slog.Int("failed", failed),
		slog.String("thresholds", th.String()))
	return total, nil
}

func (s *Service) notify(ctx context.Context, articles []*entity.Article) {
	if s.Notifier == nil {
		return
	}
	for _, art := range articles {
		if err := s.Notifier.NotifyAccident(ctx, art); err != nil {
			logging.FromContext(ctx).Warn("failed to dispatch accident notification",
				slog.Int64("article_id", art.ID),
				slog.Any("error", err))
		}
	}
}

func voteMap(v entity.Votes) map[string]bool {
	m := make(map[string]bool, 4)
	set := func(name string, b *bool) {
		if b != nil {
			m[name] = *b
		}
	}
	set(classifier.StrategyLiteral, v.Literal)
	set(classifier.StrategyStem, v.Stem)
	set(classifier.StrategyLemma, v.Lemma)
	set(classifier.StrategyWeighted, v.Weighted)
	return m
}
