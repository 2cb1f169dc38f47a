// Package metrics declares the crawler's Prometheus collectors and the
// Record* helpers that update them. Collectors live in the default registry
// and are scraped from the worker's /metrics endpoint.
//
// Families:
//
//	scrape_*                outbound page requests by source and status
//	crawl_*                 pages walked and articles per outcome, per source
//	classification*         labels and batch durations
//	classifier_*            votes per strategy
//	articles_total          stored articles (gauge)
//	sources_total           catalogue size (gauge)
//	db_*                    connection pool and query durations
//	content_fetch_*         readability fallback fetches
//	circuit_breaker_open    breaker state per circuit
package metrics
