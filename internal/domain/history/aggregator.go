// Package history computes contributions for badges that need a player's
// full round history joined with their friends.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

const defaultTimeout = 2 * time.Second

// RoundSource streams the completed rounds a player took part in, either as
// organizer or with results.
type RoundSource interface {
	ScanPlayerRounds(ctx context.Context, playerID string, fn func(model.NormalizedRound) error) error
}

// FriendSource returns a player's accepted friends.
type FriendSource interface {
	Friends(ctx context.Context, playerID string) ([]string, error)
}

// Counter is implemented by stores that can run the whole aggregation
// server side.
type Counter interface {
	CountFriendRounds(ctx context.Context, playerID string, cmp Comparison) (int, error)
}

// Aggregator is the historical contribution calculator.
type Aggregator struct {
	rounds  RoundSource
	friends FriendSource
	counter Counter
	timeout time.Duration
	log     logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithTimeout bounds each aggregation.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithCounter forces a server-side counter.
func WithCounter(c Counter) Option {
	return func(a *Aggregator) { a.counter = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

// NewAggregator uses rounds as a Counter when it implements one, and falls
// back to streaming otherwise.
func NewAggregator(rounds RoundSource, friends FriendSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		rounds:  rounds,
		friends: friends,
		timeout: defaultTimeout,
	}
	if c, ok := rounds.(Counter); ok {
		a.counter = c
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get().Named("history")
	}
	return a
}

// Contribution returns the number of the player's rounds that satisfy spec
// against at least one friend. Any failure, including the timeout, yields 0
// wrapped in ErrAggregationUnavailable; a partial count is never returned.
func (a *Aggregator) Contribution(ctx context.Context, playerID string, spec Spec) (int, error) {
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	if a == nil || (a.counter == nil && (a.rounds == nil || a.friends == nil)) {
		return 0, fmt.Errorf("%w: no history store", ErrAggregationUnavailable)
	}

	start := time.Now()
	defer func() { metrics.RecordAggregationLatency(float64(time.Since(start).Milliseconds())) }()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		n   int
		err error
	)
	if a.counter != nil {
		n, err = a.counter.CountFriendRounds(ctx, playerID, spec.Comparison)
	} else {
		n, err = a.stream(ctx, playerID, spec.Comparison)
	}
	if err != nil {
		a.log.Debug(ctx, "aggregation failed",
			logger.String("player_id", playerID),
			logger.String("comparison", string(spec.Comparison)),
			logger.Bool("server_side", a.counter != nil),
			logger.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrAggregationUnavailable, err)
	}
	return n, nil
}

func (a *Aggregator) stream(ctx context.Context, playerID string, cmp Comparison) (int, error) {
	friendIDs, err := a.friends.Friends(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("friends: %w", err)
	}
	if len(friendIDs) == 0 {
		return 0, nil
	}
	friends := make(map[string]struct{}, len(friendIDs))
	for _, id := range friendIDs {
		friends[id] = struct{}{}
	}

	count := 0
	err = a.rounds.ScanPlayerRounds(ctx, playerID, func(r model.NormalizedRound) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if CountsRound(r, playerID, friends, cmp) {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan rounds: %w", err)
	}
	return count, ctx.Err()
}

// CountsRound reports whether round r satisfies cmp for playerID. Rounds the
// player only organised have no total and never count, and neither do rounds
// without a friend overlap.
func CountsRound(r model.NormalizedRound, playerID string, friends map[string]struct{}, cmp Comparison) bool {
	mine := r.PerPlayerResults[playerID]
	if len(mine) == 0 {
		return false
	}
	var totals []int
	for id, results := range r.PerPlayerResults {
		if id == playerID || len(results) == 0 {
			continue
		}
		if _, ok := friends[id]; ok {
			totals = append(totals, model.TotalStrokes(results))
		}
	}
	return cmp.Matches(model.TotalStrokes(mine), totals)
}
