package worker

import (
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata" // 最小イメージでも WORKER_TIMEZONE を解決する

	"crashscraper/internal/pkg/config"
)

// WorkerConfig holds the configuration of the worker daemon.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Invalid environment values never stop the worker: each one falls back to
// its default with a warning and a fallback metric.
type WorkerConfig struct {
	// CronSchedule is the 5-field cron expression of the pipeline job.
	// Default: "0 */6 * * *" (every 6 hours)
	CronSchedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	// Default: "America/Argentina/Jujuy"
	Timezone string

	// CrawlTimeout bounds one whole pipeline run (crawl and classify).
	// Range: 1m-6h, default 2h
	CrawlTimeout time.Duration

	// SourceTimeout bounds the crawl of a single source.
	// Range: 1m-2h, default 30m
	SourceTimeout time.Duration

	// CrawlParallelism is the number of sources crawled concurrently.
	// Range: 1-16, default 2
	CrawlParallelism int

	// CutoffDays is how far back the crawl reaches.
	// Range: 1-365, default 30
	CutoffDays int

	// ClassifyWorkers is the number of articles classified concurrently.
	// Range: 1-32, default 4
	ClassifyWorkers int

	// NotifyMaxConcurrent bounds concurrent webhook deliveries.
	// Range: 1-50, default 10
	NotifyMaxConcurrent int

	// HealthPort serves /health and /health/ready.
	// Range: 1024-65535, default 9091
	HealthPort int

	// MetricsPort serves /metrics.
	// Range: 1024-65535, default 9090
	MetricsPort int
}

// DefaultConfig returns a WorkerConfig with production defaults.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule:        "0 */6 * * *",             // Every 6 hours
		Timezone:            "America/Argentina/Jujuy", // ART
		CrawlTimeout:        2 * time.Hour,
		SourceTimeout:       30 * time.Minute,
		CrawlParallelism:    2,
		CutoffDays:          30,
		ClassifyWorkers:     4,
		NotifyMaxConcurrent: 10,
		HealthPort:          9091,
		MetricsPort:         9090, // Standard Prometheus exporter port
	}
}

// Cutoff returns the oldest publication date crawled at now.
func (c *WorkerConfig) Cutoff(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, -c.CutoffDays).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// Location loads the configured timezone, falling back to UTC.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.CrawlTimeout, time.Minute, 6*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("crawl timeout: %w", err))
	}
	if err := config.ValidateDuration(c.SourceTimeout, time.Minute, 2*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("source timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.CrawlParallelism, 1, 16); err != nil {
		errs = append(errs, fmt.Errorf("crawl parallelism: %w", err))
	}
	if err := config.ValidateIntRange(c.CutoffDays, 1, 365); err != nil {
		errs = append(errs, fmt.Errorf("cutoff days: %w", err))
	}
	if err := config.ValidateIntRange(c.ClassifyWorkers, 1, 32); err != nil {
		errs = append(errs, fmt.Errorf("classify workers: %w", err))
	}
	if err := config.ValidateIntRange(c.NotifyMaxConcurrent, 1, 50); err != nil {
		errs = append(errs, fmt.Errorf("notify max concurrent: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("metrics port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration with the fail-open
// strategy: an invalid variable keeps its default, logs a warning and is
// counted in metrics. The returned error is always nil.
//
// Environment variables:
//   - CRON_SCHEDULE, WORKER_TIMEZONE
//   - CRAWL_TIMEOUT, SOURCE_TIMEOUT (duration strings, e.g. "30m")
//   - CRAWL_PARALLELISM, CUTOFF_DAYS, CLASSIFY_WORKERS, NOTIFY_MAX_CONCURRENT
//   - HEALTH_PORT, METRICS_PORT
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fallbackApplied := false

	// フォールバック時の共通処理
	track := func(field string, fallback bool, reason string, warnings []string) {
		if !fallback {
			return
		}
		fallbackApplied = true
		metrics.RecordFallback(field, reason)
		for _, warning := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", warning))
		}
	}
	intRange := func(min, max int) func(int) error {
		return func(v int) error { return config.ValidateIntRange(v, min, max) }
	}
	durationRange := func(min, max time.Duration) func(time.Duration) error {
		return func(d time.Duration) error { return config.ValidateDuration(d, min, max) }
	}

	s := config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)
	cfg.CronSchedule = s.Value
	track("cron_schedule", s.FallbackApplied, s.Reason, s.Warnings)

	s = config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	cfg.Timezone = s.Value
	track("timezone", s.FallbackApplied, s.Reason, s.Warnings)

	d := config.LoadEnvDuration("CRAWL_TIMEOUT", cfg.CrawlTimeout, durationRange(time.Minute, 6*time.Hour))
	cfg.CrawlTimeout = d.Value
	track("crawl_timeout", d.FallbackApplied, d.Reason, d.Warnings)

	d = config.LoadEnvDuration("SOURCE_TIMEOUT", cfg.SourceTimeout, durationRange(time.Minute, 2*time.Hour))
	cfg.SourceTimeout = d.Value
	track("source_timeout", d.FallbackApplied, d.Reason, d.Warnings)

	ints := []struct {
		env    string
		field  string
		target *int
		min    int
		max    int
	}{
		{"CRAWL_PARALLELISM", "crawl_parallelism", &cfg.CrawlParallelism, 1, 16},
		{"CUTOFF_DAYS", "cutoff_days", &cfg.CutoffDays, 1, 365},
		{"CLASSIFY_WORKERS", "classify_workers", &cfg.ClassifyWorkers, 1, 32},
		{"NOTIFY_MAX_CONCURRENT", "notify_max_concurrent", &cfg.NotifyMaxConcurrent, 1, 50},
		{"HEALTH_PORT", "health_port", &cfg.HealthPort, 1024, 65535},
		{"METRICS_PORT", "metrics_port", &cfg.MetricsPort, 1024, 65535},
	}
	for _, f := range ints {
		r := config.LoadEnvInt(f.env, *f.target, intRange(f.min, f.max))
		*f.target = r.Value
		track(f.field, r.FallbackApplied, r.Reason, r.Warnings)
	}

	metrics.RecordLoaded(fallbackApplied)

	// Always return valid config (fail-open strategy)
	return &cfg, nil
}
