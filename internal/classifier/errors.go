package classifier

import "errors"

var (
	// ErrInvalidConfig indicates a malformed vocabulary or exclusion set.
	ErrInvalidConfig = errors.New("invalid classifier config")

	// ErrInvalidThreshold indicates a threshold below 1 or an unknown key.
	ErrInvalidThreshold = errors.New("invalid threshold")
)
