package metrics

import (
	"time"
)

// Crawl outcomes used as the "outcome" label of CrawlArticlesTotal.
const (
	OutcomeInserted   = "inserted"
	OutcomeSkipped    = "skipped"
	OutcomeDuplicated = "duplicated"
	OutcomeFailed     = "failed"
)

// RecordSourceCrawl records the per-source counters of a finished crawl.
// Zero counts are still touched so that the series exist for every source.
func RecordSourceCrawl(source string, duration time.Duration, pages, inserted, skipped, duplicated, failed int) {
	CrawlDuration.WithLabelValues(source).Observe(duration.Seconds())
	CrawlPagesTotal.WithLabelValues(source).Add(float64(pages))
	CrawlArticlesTotal.WithLabelValues(source, OutcomeInserted).Add(float64(inserted))
	CrawlArticlesTotal.WithLabelValues(source, OutcomeSkipped).Add(float64(skipped))
	CrawlArticlesTotal.WithLabelValues(source, OutcomeDuplicated).Add(float64(duplicated))
	CrawlArticlesTotal.WithLabelValues(source, OutcomeFailed).Add(float64(failed))
}

// RecordCrawlError records a source-level error such as a failed listing page.
func RecordCrawlError(source, errorType string) {
	CrawlErrors.WithLabelValues(source, errorType).Inc()
}

// RecordClassification records one stored classification and its strategy votes.
// votes maps strategy name to its boolean vote.
func RecordClassification(label, mode string, votes map[string]bool) {
	ClassificationsTotal.WithLabelValues(label, mode).Inc()
	for name, v := range votes {
		vote := "false"
		if v {
			vote = "true"
		}
		StrategyVotesTotal.WithLabelValues(name, vote).Inc()
	}
}

// RecordClassificationFailure records an article whose votes could not be stored.
func RecordClassificationFailure() {
	ClassificationFailures.Inc()
}

// RecordClassificationBatch records the time taken to classify one batch.
func RecordClassificationBatch(duration time.Duration) {
	ClassificationDuration.Observe(duration.Seconds())
}

// UpdateArticlesTotal updates the total count of articles in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateArticlesTotal(count int64) {
	ArticlesTotal.Set(float64(count))
}

// UpdateSourcesTotal updates the total count of sources in the database.
func UpdateSourcesTotal(count int) {
	SourcesTotal.Set(float64(count))
}

// RecordContentFetchSuccess records a successful content fetch operation.
// This tracks both the duration and size of fetched content.
//
// Example:
//
//	start := time.Now()
//	content, err := fetcher.FetchContent(ctx, url)
//	if err == nil {
//	    RecordContentFetchSuccess(time.Since(start), len(content))
//	}
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch operation.
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a detail page whose selector body was long enough.
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "insert_article", "list_unclassified").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
