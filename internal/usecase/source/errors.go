// Package source syncs the publisher catalogue from the sources file into
// the repository. Crawls only ever read the stored rows.
package source

import "errors"

var (
	ErrSourceNotFound = errors.New("source: not found")
	// ErrNoSources rejects a Sync of an empty catalogue, which would
	// deactivate every stored source.
	ErrNoSources = errors.New("source: nothing to sync")
)
