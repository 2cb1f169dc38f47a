package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"crashscraper/internal/classifier"
	"crashscraper/internal/config"
	"crashscraper/internal/infra/adapter/persistence"
	"crashscraper/internal/infra/db"
	"crashscraper/internal/infra/fetcher"
	"crashscraper/internal/infra/scraper"
	workerPkg "crashscraper/internal/infra/worker"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/observability/tracing"
	envconfig "crashscraper/internal/pkg/config"
	"crashscraper/internal/usecase/classify"
	"crashscraper/internal/usecase/crawl"
	"crashscraper/internal/usecase/source"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker terminated", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	// SIGINT/SIGTERM で全体をキャンセル
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	shutdownTracing := tracing.Init()
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("crawl_timeout", workerConfig.CrawlTimeout),
		slog.Duration("source_timeout", workerConfig.SourceTimeout),
		slog.Int("crawl_parallelism", workerConfig.CrawlParallelism),
		slog.Int("cutoff_days", workerConfig.CutoffDays),
		slog.Int("classify_workers", workerConfig.ClassifyWorkers),
		slog.Int("health_port", workerConfig.HealthPort))

	// ストアに繋がらない場合のみ起動を中止する
	database, dialect, err := db.OpenFromEnv(ctx)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	if err := db.MigrateUp(ctx, database, dialect); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	go db.ReportPoolStats(ctx, database, 15*time.Second)
	repos := persistence.NewRepositories(database, dialect)

	sourcesCfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	synced, err := (&source.Service{Repo: repos.Sources}).Sync(ctx, sourcesCfg.Sources)
	if err != nil {
		return fmt.Errorf("sync sources: %w", err)
	}
	logger.Info("sources synced",
		slog.Int("upserted", synced.Upserted),
		slog.Any("deactivated", synced.Deactivated))

	ensemble, thresholds, err := setupClassifier(logger)
	if err != nil {
		return err
	}

	notifyService := setupNotifications(logger, repos, workerConfig.NotifyMaxConcurrent)

	crawlSvc := crawl.NewService(repos.Articles, repos.Sources, crawl.Options{
		MaxPages:        sourcesCfg.Crawl.MaxPages,
		PageDelay:       sourcesCfg.Crawl.PageDelay,
		ArticleDelay:    sourcesCfg.Crawl.ArticleDelay,
		RawContentLimit: sourcesCfg.Crawl.RawContentLimit,
		Parallelism:     workerConfig.CrawlParallelism,
		SourceTimeout:   workerConfig.SourceTimeout,
	})
	classifySvc, err := classify.NewService(repos.Articles, ensemble, notifyService, classify.Options{
		Workers: workerConfig.ClassifyWorkers,
	})
	if err != nil {
		return fmt.Errorf("classify service: %w", err)
	}
	factory := scraper.NewFactory(sourcesCfg, setupReadability(logger))
	job := workerPkg.NewJob(crawlSvc, factory, classifySvc, thresholds, *workerConfig, workerMetrics)

	// /metrics と /health/channels
	metricsServer := newMetricsServer(workerConfig.MetricsPort, notifyService)
	go func() { _ = workerPkg.Serve(ctx, logger, "metrics", metricsServer) }()

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	healthServer.AddCheck("database", database.PingContext)
	go func() { _ = healthServer.Start(ctx) }()

	runCronWorker(ctx, logger, job, workerConfig, healthServer)

	// 送信中の通知を待つ
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := notifyService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("notification shutdown incomplete", slog.Any("error", err))
	}
	logger.Info("worker stopped")
	return nil
}

// setupClassifier builds the ensemble from CRASHSCRAPER_VOCABULARY (embedded
// default when unset) and the thresholds from CLASSIFY_PRESET.
func setupClassifier(logger *slog.Logger) (*classifier.Ensemble, classifier.Thresholds, error) {
	vocabulary, err := classifier.LoadConfig(os.Getenv("CRASHSCRAPER_VOCABULARY"))
	if err != nil {
		return nil, classifier.Thresholds{}, fmt.Errorf("load vocabulary: %w", err)
	}
	ensemble, err := classifier.New(vocabulary)
	if err != nil {
		return nil, classifier.Thresholds{}, fmt.Errorf("build classifier: %w", err)
	}

	preset := envconfig.LoadEnvString("CLASSIFY_PRESET", "default")
	thresholds, err := classifier.Preset(preset)
	if err != nil {
		logger.Warn("unknown classification preset, using default",
			slog.String("preset", preset),
			slog.Any("error", err))
		thresholds = classifier.DefaultThresholds()
	}
	logger.Info("classifier initialized",
		slog.Int("terms", len(vocabulary.Vocabulary)),
		slog.Int("exclusions", len(vocabulary.Exclusions)),
		slog.String("thresholds", thresholds.String()))
	return ensemble, thresholds, nil
}

// setupReadability creates the content extraction fallback. The fetcher is
// always created so that already downloaded pages can be extracted; network
// fetches honour CONTENT_FETCH_ENABLED.
func setupReadability(logger *slog.Logger) scraper.Readability {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("content fetch configuration fallback applied", slog.Any("error", err))
	}
	logger.Info("content fetching configured",
		slog.Bool("enabled", cfg.Enabled),
		slog.Int("threshold", cfg.Threshold),
		slog.Duration("timeout", cfg.Timeout))
	return fetcher.NewReadabilityFetcher(cfg)
}

// runCronWorker schedules the pipeline job and blocks until ctx is done.
func runCronWorker(ctx context.Context, logger *slog.Logger, job *workerPkg.Job, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer) {
	c := cron.New(cron.WithLocation(cfg.Location()))

	_, err := c.AddFunc(cfg.CronSchedule, func() {
		runPipelineJob(ctx, logger, job)
	})
	if err != nil {
		// LoadConfigFromEnv で検証済みのため通常は到達しない
		logger.Error("failed to add cron job", slog.Any("error", err))
		return
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	if envconfig.LoadEnvBool("RUN_ON_START", false).Value {
		go runPipelineJob(ctx, logger, job)
	}

	<-ctx.Done()
	healthServer.SetReady(false)
	logger.Info("shutdown signal received, waiting for running job")

	// 実行中のジョブは ctx のキャンセルで打ち切られる
	<-c.Stop().Done()
}

// runPipelineJob executes one crawl-then-classify run.
func runPipelineJob(ctx context.Context, logger *slog.Logger, job *workerPkg.Job) {
	res, err := job.Run(ctx)
	if errors.Is(err, workerPkg.ErrJobRunning) {
		logger.Warn("previous pipeline run still in progress, skipping")
		return
	}
	if err != nil {
		logger.Error("pipeline run failed",
			slog.String("job_id", res.RunID),
			slog.Any("error", err))
		return
	}
	logger.Info("pipeline run finished",
		slog.String("job_id", res.RunID),
		slog.Int("inserted", res.Inserted),
		slog.Int("classified", res.Classified),
		slog.Duration("duration", res.Duration))
}
