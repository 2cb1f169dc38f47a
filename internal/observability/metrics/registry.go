// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outbound HTTP metrics track requests made to publishers
var (
	// ScrapeRequestsTotal counts outbound requests by source, kind and status
	ScrapeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_requests_total",
			Help: "Total number of outbound scrape requests",
		},
		[]string{"source", "kind", "status"}, // kind: listing, detail
	)

	// ScrapeRequestDuration measures outbound request duration in seconds
	ScrapeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_request_duration_seconds",
			Help:    "Outbound scrape request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"source", "kind"},
	)
)

// Crawl metrics track the incremental crawl controller
var (
	// ArticlesTotal tracks total number of articles in database
	ArticlesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articles_total",
			Help: "Total number of articles in the database",
		},
	)

	// SourcesTotal tracks total number of sources in database
	SourcesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sources_total",
			Help: "Total number of sources in the database",
		},
	)

	// CrawlArticlesTotal counts candidates by outcome for each source
	CrawlArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_articles_total",
			Help: "Total number of crawl candidates by outcome",
		},
		[]string{"source", "outcome"}, // outcome: inserted, skipped, duplicated, failed
	)

	// CrawlPagesTotal counts listing pages fetched per source
	CrawlPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_pages_total",
			Help: "Total number of listing pages fetched",
		},
		[]string{"source"},
	)

	// CrawlDuration measures time to crawl a source
	CrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_duration_seconds",
			Help:    "Time taken to crawl a source",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
		[]string{"source"},
	)

	// CrawlErrors counts source-level crawl errors
	CrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_errors_total",
			Help: "Total number of source-level crawl errors",
		},
		[]string{"source", "error_type"},
	)
)

// Classification metrics track the voting ensemble
var (
	// ClassificationsTotal counts classified articles by resulting label
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifications_total",
			Help: "Total number of articles classified",
		},
		[]string{"label", "mode"}, // mode: pending, reclassify
	)

	// ClassificationFailures counts articles whose classification could not be stored
	ClassificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classification_failures_total",
			Help: "Total number of classification update failures",
		},
	)

	// StrategyVotesTotal counts individual strategy votes
	StrategyVotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_strategy_votes_total",
			Help: "Total number of votes cast by each classification strategy",
		},
		[]string{"strategy", "vote"},
	)

	// ClassificationDuration measures time to classify one batch
	ClassificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classification_batch_duration_seconds",
			Help:    "Time taken to classify and store one batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

// Detail fetch metrics track body extraction from article pages
var (
	// ContentFetchAttemptsTotal counts content fetch attempts by result
	ContentFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "content_fetch_attempts_total",
			Help: "Total number of content fetch attempts",
		},
		[]string{"result"}, // result: success, failure, skipped
	)

	// ContentFetchDuration measures time to fetch article content
	ContentFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_duration_seconds",
			Help:    "Time taken to fetch article content",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// ContentFetchSize measures fetched content size in bytes
	ContentFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "content_fetch_size_bytes",
			Help:    "Fetched article content size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 2, 14),
		},
	)
)

// CircuitBreakerOpen is 1 while the named circuit is open.
var CircuitBreakerOpen = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "circuit_breaker_open",
		Help: "Whether the circuit breaker is open (1) or not (0)",
	},
	[]string{"circuit"},
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordScrapeRequest records an outbound request to a publisher.
func RecordScrapeRequest(source, kind, status string, duration time.Duration) {
	ScrapeRequestsTotal.WithLabelValues(source, kind, status).Inc()
	ScrapeRequestDuration.WithLabelValues(source, kind).Observe(duration.Seconds())
}

// RecordCircuitState publishes the state of a circuit breaker.
func RecordCircuitState(circuit string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	CircuitBreakerOpen.WithLabelValues(circuit).Set(v)
}
