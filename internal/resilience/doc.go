// Package resilience provides reliability and fault tolerance patterns for the application.
//
// The package supports:
//   - Circuit breakers around each publisher and each notification webhook
//   - Retry logic with exponential backoff and jitter for transient HTTP failures
//   - Context-aware sleeping used for politeness delays between requests
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.SourceConfig("diario"))
//	err := retry.WithBackoff(ctx, retry.ScrapeConfig(), func() error {
//	    return cb.Do(func() error { return fetchPage(ctx) })
//	})
package resilience
