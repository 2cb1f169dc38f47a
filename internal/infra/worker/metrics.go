package worker

import (
	"time"

	"crashscraper/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics holds the Prometheus metrics of the worker daemon.
// It embeds ConfigMetrics for the configuration fallback metrics.
//
// Metrics:
//   - worker_config_*: configuration load and fallback state
//   - worker_cron_job_runs_total{status}: pipeline runs by success/failure
//   - worker_cron_job_duration_seconds{stage}: crawl and classify durations
//   - worker_cron_job_articles_inserted_total: articles stored by crawls
//   - worker_cron_job_articles_classified_total: articles classified
//   - worker_cron_job_last_success_timestamp: last fully successful run
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal            *prometheus.CounterVec
	JobDurationSeconds      *prometheus.HistogramVec
	ArticlesInsertedTotal   prometheus.Counter
	ArticlesClassifiedTotal prometheus.Counter
	JobLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics registers the worker metrics with the default registry.
// It must be called once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return newWorkerMetrics("worker")
}

func newWorkerMetrics(component string) *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics(component),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_cron_job_runs_total",
			Help: "Total number of pipeline runs by status (success/failure)",
		}, []string{"status"}),

		JobDurationSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    component + "_cron_job_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600}, // 1s .. 1h
		}, []string{"stage"}),

		ArticlesInsertedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: component + "_cron_job_articles_inserted_total",
			Help: "Total number of articles stored across all pipeline runs",
		}),

		ArticlesClassifiedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: component + "_cron_job_articles_classified_total",
			Help: "Total number of articles classified across all pipeline runs",
		}),

		JobLastSuccessTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: component + "_cron_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful pipeline run",
		}),
	}
}

// RecordJobRun counts a finished run; status is "success" or "failure".
func (m *WorkerMetrics) RecordJobRun(status string) {
	m.JobRunsTotal.WithLabelValues(status).Inc()
}

// RecordStageDuration observes the duration of a pipeline stage.
func (m *WorkerMetrics) RecordStageDuration(stage string, d time.Duration) {
	m.JobDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordInserted adds the articles stored by a crawl.
func (m *WorkerMetrics) RecordInserted(count int) {
	m.ArticlesInsertedTotal.Add(float64(count))
}

// RecordClassified adds the articles classified by a run.
func (m *WorkerMetrics) RecordClassified(count int) {
	m.ArticlesClassifiedTotal.Add(float64(count))
}

// RecordLastSuccess sets the last success timestamp to now.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.JobLastSuccessTimestamp.SetToCurrentTime()
}
