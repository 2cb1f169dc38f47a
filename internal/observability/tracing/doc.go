// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created around each source crawl and classification batch,
// around the worker's HTTP endpoints (Middleware), and around every
// outbound scrape request (Transport).
//
// Example usage:
//
//	shutdown := tracing.Init()
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.StartSpan(ctx, "crawl.source", attribute.String("source", name))
//	defer span.End()
package tracing
