package engine

import (
	"time"

	"github.com/okian/birdie/pkg/logger"
)

// Default orchestrator configuration constants.
const (
	defaultConcurrency = 8
	defaultRetryLimit  = 5
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEvaluator sets the per-round predicate evaluator.
func WithEvaluator(e ConditionEvaluator) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.evaluator = e
		}
	}
}

// WithAggregator sets the historical contribution source. Without one,
// historical badges report their aggregation as unavailable.
func WithAggregator(a HistoryAggregator) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.history = a
		}
	}
}

// WithRoundRecorder persists each round before evaluation so historical
// badges see it.
func WithRoundRecorder(r RoundRecorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.rounds = r
		}
	}
}

// WithConcurrency bounds the number of (player, badge) pairs evaluated at once.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetryLimit bounds compare-and-swap retries per pair.
func WithRetryLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.retryLimit = n
		}
	}
}

// WithClock overrides the progress timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}
