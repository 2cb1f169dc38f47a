// Package worker contains the building blocks of the worker daemon: its
// environment configuration, health probes, metrics and the scheduled
// pipeline job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"crashscraper/internal/classifier"
	"crashscraper/internal/observability/logging"
	"crashscraper/internal/usecase/crawl"
)

// ErrJobRunning is returned when a run is triggered while the previous one
// has not finished.
var ErrJobRunning = errors.New("pipeline job already running")

// CrawlService is the part of crawl.Service the job uses.
type CrawlService interface {
	BuildRuns(ctx context.Context, factory crawl.AdapterFactory, names ...string) ([]crawl.SourceRun, []crawl.SourceResult, error)
	RunAllSources(ctx context.Context, runs []crawl.SourceRun, cutoff time.Time) (crawl.Report, error)
}

// ClassifyService is the part of classify.Service the job uses.
type ClassifyService interface {
	ClassifyPending(ctx context.Context, th classifier.Thresholds) (int, error)
}

// JobResult summarizes one pipeline run.
type JobResult struct {
	RunID         string
	Inserted      int
	FailedSources int
	Classified    int
	Duration      time.Duration
}

// Job crawls every active source and then classifies the pending articles.
// Runs never overlap.
type Job struct {
	Crawl      CrawlService
	Factory    crawl.AdapterFactory
	Classify   ClassifyService
	Thresholds classifier.Thresholds
	Config     WorkerConfig
	Metrics    *WorkerMetrics

	now     func() time.Time
	running atomic.Bool
}

// NewJob creates the pipeline job.
func NewJob(crawlSvc CrawlService, factory crawl.AdapterFactory, classifySvc ClassifyService, th classifier.Thresholds, cfg WorkerConfig, m *WorkerMetrics) *Job {
	return &Job{
		Crawl:      crawlSvc,
		Factory:    factory,
		Classify:   classifySvc,
		Thresholds: th,
		Config:     cfg,
		Metrics:    m,
		now:        time.Now,
	}
}

// Run executes one pipeline run bounded by Config.CrawlTimeout.
//
// Source failures are reported but do not fail the run; classification runs
// even when some sources failed. The run fails when the sources cannot be
// listed, when classification fails, or when ctx ends.
func (j *Job) Run(ctx context.Context) (res JobResult, err error) {
	if !j.running.CompareAndSwap(false, true) {
		return res, ErrJobRunning
	}
	defer j.running.Store(false)

	res.RunID = logging.NewJobID()
	ctx = logging.WithJobID(ctx, res.RunID)
	logger := logging.FromContext(ctx)

	if j.Config.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Config.CrawlTimeout)
		defer cancel()
	}

	start := j.now()
	defer func() {
		res.Duration = time.Since(start)
		if j.Metrics == nil {
			return
		}
		if err != nil {
			j.Metrics.RecordJobRun("failure")
			return
		}
		j.Metrics.RecordJobRun("success")
		j.Metrics.RecordLastSuccess()
	}()

	cutoff := j.Config.Cutoff(start.In(j.Config.Location()))
	logger.Info("pipeline run started", slog.String("cutoff", cutoff.Format(time.DateOnly)))

	// 1. crawl
	crawlStart := time.Now()
	runs, broken, err := j.Crawl.BuildRuns(ctx, j.Factory)
	if err != nil {
		return res, fmt.Errorf("build crawl runs: %w", err)
	}
	report, err := j.Crawl.RunAllSources(ctx, runs, cutoff)
	res.Inserted = report.Total
	res.FailedSources = len(report.Failed()) + len(broken)
	j.observe("crawl", time.Since(crawlStart))
	if j.Metrics != nil {
		j.Metrics.RecordInserted(report.Total)
	}
	if err != nil {
		return res, fmt.Errorf("crawl: %w", err)
	}
	for _, failed := range append(broken, report.Failed()...) {
		logger.Warn("source crawl failed",
			slog.String("source", failed.SourceName),
			slog.Any("error", failed.Err))
	}

	// 2. classify
	classifyStart := time.Now()
	res.Classified, err = j.Classify.ClassifyPending(ctx, j.Thresholds)
	j.observe("classify", time.Since(classifyStart))
	if j.Metrics != nil {
		j.Metrics.RecordClassified(res.Classified)
	}
	if err != nil {
		return res, fmt.Errorf("classify pending: %w", err)
	}

	logger.Info("pipeline run completed",
		slog.Int("inserted", res.Inserted),
		slog.Int("failed_sources", res.FailedSources),
		slog.Int("classified", res.Classified),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (j *Job) observe(stage string, d time.Duration) {
	if j.Metrics != nil {
		j.Metrics.RecordStageDuration(stage, d)
	}
}
