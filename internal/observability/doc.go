// Package observability groups the logging, metrics and tracing infrastructure
// shared by the crawler, the classifier and the worker.
//
// Subpackages:
//   - logging: Structured logging utilities with slog and job ID propagation
//   - metrics: Prometheus metrics registry and recorders
//   - tracing: OpenTelemetry spans for runs, worker endpoints and outbound requests
package observability
