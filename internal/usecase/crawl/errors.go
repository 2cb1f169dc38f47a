// Package crawl implements the incremental crawl controller: it pages through
// a publisher's listing newest first, stops at a date cutoff, skips URLs that
// are already stored, fetches and persists each new article, and isolates
// per-article failures from the rest of the run.
package crawl

import "errors"

// Sentinel errors for crawl use case operations.
var (
	// ErrNilSource indicates that RunSource was called without a source.
	ErrNilSource = errors.New("crawl: source is nil")

	// ErrNilAdapter indicates that RunSource was called without an adapter.
	ErrNilAdapter = errors.New("crawl: adapter is nil")

	// ErrUnknownSource indicates that a requested source name is not configured.
	ErrUnknownSource = errors.New("crawl: unknown source")
)
