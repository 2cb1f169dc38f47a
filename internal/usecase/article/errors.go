// Package article provides the maintenance use cases over stored articles:
// catalogue statistics and duplicate removal.
package article

import "errors"

// ErrNilRepository indicates that the service was built without a repository.
var ErrNilRepository = errors.New("article repository is nil")
