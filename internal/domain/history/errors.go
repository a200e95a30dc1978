package history

import "errors"

// Sentinel errors for historical aggregation.
var (
	// ErrAggregationUnavailable means the round history or the social graph
	// could not be read in time. The contribution is 0 and must not lower
	// recorded progress.
	ErrAggregationUnavailable = errors.New("historical aggregation unavailable")
	ErrInvalidSpec            = errors.New("invalid historical spec")
)
