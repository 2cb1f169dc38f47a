// Package classify runs the accident classification ensemble over stored
// articles: pending articles in fixed-size batches, or every article when the
// vocabulary or thresholds change.
package classify

import "errors"

// Sentinel errors for classify use case operations.
var (
	// ErrInvalidBatchSize indicates a negative batch size option.
	ErrInvalidBatchSize = errors.New("classify: batch size must be positive")

	// ErrNilClassifier indicates that the service was built without a classifier.
	ErrNilClassifier = errors.New("classify: classifier is nil")
)
