// Package engine evaluates a completed round against the badge catalog and
// turns the results into durable progress and awards.
package engine

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/domain/badge"
	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/ledger"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/internal/domain/tier"
	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

// Catalog serves the current badge snapshot.
type Catalog interface {
	Snapshot() *badge.Snapshot
}

// ConditionEvaluator computes a per-round contribution.
type ConditionEvaluator interface {
	Evaluate(badgeID string, spec condition.Spec, in condition.Input) (int, error)
}

// HistoryAggregator computes a contribution from the player's history.
type HistoryAggregator interface {
	Contribution(ctx context.Context, playerID string, spec history.Spec) (int, error)
}

// AwardWriter is the award ledger.
type AwardWriter interface {
	InsertBatch(ctx context.Context, reqs []ledger.Request) []ledger.Result
}

// ProgressStore reads and conditionally writes BadgeProgress.
type ProgressStore interface {
	GetProgress(ctx context.Context, playerID, badgeID string) (model.BadgeProgress, error)
	CompareAndSwapProgress(ctx context.Context, next model.BadgeProgress, expectedVersion int64) (model.BadgeProgress, error)
}

// RoundRecorder stores completed rounds. SaveRound returns false for a
// round that was already stored.
type RoundRecorder interface {
	SaveRound(ctx context.Context, round model.NormalizedRound) (bool, error)
}

// Stats are cumulative orchestrator counters.
type Stats struct {
	RoundsEvaluated        int64 `json:"roundsEvaluated"`
	PairsEvaluated         int64 `json:"pairsEvaluated"`
	AwardsGranted          int64 `json:"awardsGranted"`
	PredicateFaults        int64 `json:"predicateFaults"`
	AggregationUnavailable int64 `json:"aggregationUnavailable"`
	ProgressConflicts      int64 `json:"progressConflicts"`
	ProgressFailures       int64 `json:"progressFailures"`
}

type counters struct {
	rounds, pairs, awards, faults, unavailable, conflicts, failures atomic.Int64
}

// Orchestrator is the per-round entry point. The failure unit is a single
// (player, badge) pair: no pair's error stops any other pair.
type Orchestrator struct {
	catalog   Catalog
	progress  ProgressStore
	awards    AwardWriter
	evaluator ConditionEvaluator
	history   HistoryAggregator
	rounds    RoundRecorder

	concurrency int
	retryLimit  int
	now         func() time.Time
	log         logger.Logger

	stats counters
}

// NewOrchestrator wires an orchestrator. A condition.Evaluator in UTC is used
// unless WithEvaluator says otherwise.
func NewOrchestrator(catalog Catalog, progress ProgressStore, awards AwardWriter, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog:     catalog,
		progress:    progress,
		awards:      awards,
		concurrency: defaultConcurrency,
		retryLimit:  defaultRetryLimit,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.evaluator == nil {
		o.evaluator = condition.NewEvaluator()
	}
	if o.log == nil {
		o.log = logger.Get().Named("engine")
	}
	return o
}

type earned struct {
	playerID string
	badgeID  string
	index    int
	tier     int
}

// EvaluateRound evaluates every (player, badge) pair of round and returns the
// awards this call created. Players without new awards are absent. A round
// without player results is a no-op. The error is non-nil only when ctx ends
// first; awards already written stay valid.
func (o *Orchestrator) EvaluateRound(ctx context.Context, round model.NormalizedRound) (model.EarnedBadgesReport, error) {
	report := model.EarnedBadgesReport{}
	players := round.Players()
	if len(players) == 0 {
		return report, nil
	}

	start := time.Now()
	defer func() {
		metrics.RecordRoundEvaluated(float64(time.Since(start).Milliseconds()))
		o.stats.rounds.Add(1)
	}()

	log := o.log.With(logger.String("round_id", round.RoundID))
	if o.rounds != nil {
		saved, err := o.rounds.SaveRound(ctx, round)
		switch {
		case err != nil:
			// Historical badges run without this round; their floor keeps
			// progress from dropping.
			metrics.RecordErrorByComponent("engine", "save_round")
			log.Warn(ctx, "round not persisted", logger.Error(err))
		case !saved:
			// Accumulating pairs skip it per pair through AppliedRoundIDs.
			log.Debug(ctx, "round already stored")
		}
	}

	snap := o.catalog.Snapshot()
	defs := snap.List()
	needsOpponents := slices.ContainsFunc(defs, badge.Definition.NeedsOpponents)

	var (
		g   errgroup.Group
		mu  sync.Mutex
		out []earned
	)
	g.SetLimit(o.concurrency)

	for _, playerID := range players {
		var opponents [][]model.HoleResult
		if needsOpponents {
			opponents = round.Opponents(playerID)
		}
		for i, def := range defs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				tiers := o.evaluatePair(ctx, log, round, playerID, def, opponents)
				if len(tiers) == 0 {
					return nil
				}
				mu.Lock()
				for _, t := range tiers {
					out = append(out, earned{playerID: playerID, badgeID: def.ID, index: i, tier: t})
				}
				mu.Unlock()
				return nil
			})
		}
	}
	_ = g.Wait()

	sort.Slice(out, func(a, b int) bool {
		if out[a].index != out[b].index {
			return out[a].index < out[b].index
		}
		return out[a].tier < out[b].tier
	})
	for _, e := range out {
		report[e.playerID] = append(report[e.playerID], model.EarnedBadge{BadgeID: e.badgeID, Tier: e.tier})
	}
	o.stats.awards.Add(int64(len(out)))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("evaluate round %s: %w", round.RoundID, err)
	}
	return report, nil
}

// evaluatePair computes one contribution and applies it. It returns the tiers
// whose award records it created.
func (o *Orchestrator) evaluatePair(ctx context.Context, log logger.Logger, round model.NormalizedRound,
	playerID string, def badge.Definition, opponents [][]model.HoleResult,
) []int {
	metrics.RecordPairEvaluated()
	o.stats.pairs.Add(1)
	log = log.With(logger.String("player_id", playerID), logger.String("badge_id", def.ID))

	contribution, err := o.contribution(ctx, round, playerID, def, opponents)
	switch {
	case errors.Is(err, condition.ErrPredicateFault):
		metrics.RecordPredicateFault(def.ID)
		o.stats.faults.Add(1)
		log.Warn(ctx, "predicate fault", logger.Error(err))
		return nil
	case errors.Is(err, history.ErrAggregationUnavailable):
		metrics.RecordAggregationUnavailable()
		o.stats.unavailable.Add(1)
		log.Warn(ctx, "aggregation unavailable", logger.Error(err))
		return nil
	case err != nil:
		metrics.RecordErrorByComponent("engine", "contribution")
		log.Warn(ctx, "contribution failed", logger.Error(err))
		return nil
	}
	tiers, err := o.apply(ctx, log, round, playerID, def, contribution)
	switch {
	case errors.Is(err, ErrProgressWriteConflict):
		metrics.RecordProgressWriteFailure()
		o.stats.failures.Add(1)
		log.Warn(ctx, "progress write conflict", logger.Int("retry_limit", o.retryLimit))
	case err != nil:
		metrics.RecordProgressWriteFailure()
		o.stats.failures.Add(1)
		log.Error(ctx, "progress write failed", logger.Error(err))
	}
	return tiers
}

func (o *Orchestrator) contribution(ctx context.Context, round model.NormalizedRound,
	playerID string, def badge.Definition, opponents [][]model.HoleResult,
) (int, error) {
	if def.RequiresHistoricalData {
		if o.history == nil || def.History == nil {
			return 0, fmt.Errorf("%w: no aggregator configured", history.ErrAggregationUnavailable)
		}
		return o.history.Contribution(ctx, playerID, *def.History)
	}
	if def.Condition == nil {
		return 0, &condition.PredicateFault{BadgeID: def.ID, Cause: condition.ErrInvalidSpec}
	}
	in := condition.Input{Results: round.PerPlayerResults[playerID], Layout: round.Layout}
	if def.NeedsOpponents() {
		in.Opponents = opponents
	}
	return o.evaluator.Evaluate(def.ID, *def.Condition, in)
}

// apply runs the read, advance, award, compare-and-swap cycle until the swap
// lands or the retry limit is spent. Awards are written before the swap so a
// tracked tier always has its record; a failed award write is untracked and
// re-emitted by a later evaluation.
func (o *Orchestrator) apply(ctx context.Context, log logger.Logger, round model.NormalizedRound,
	playerID string, def badge.Definition, contribution int,
) ([]int, error) {
	rule := def.Rule()
	var created []int

	for attempt := 0; attempt <= o.retryLimit; attempt++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		prev, err := o.progress.GetProgress(ctx, playerID, def.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			prev = model.NewBadgeProgress(playerID, def.ID)
		case err != nil:
			return created, fmt.Errorf("read progress: %w", err)
		}

		tr := tier.Advance(prev, rule, contribution, round.RoundID)
		if !tr.Changed {
			return created, nil
		}

		if len(tr.Emitted) > 0 {
			reqs := make([]ledger.Request, len(tr.Emitted))
			for i, t := range tr.Emitted {
				reqs[i] = ledger.Request{
					PlayerID: playerID,
					BadgeID:  def.ID,
					Tier:     t,
					CourseID: round.CourseID,
					RoundID:  round.RoundID,
				}
			}
			for _, res := range o.awards.InsertBatch(ctx, reqs) {
				switch {
				case res.Err != nil:
					tr.Untrack(res.Request.Tier)
					log.Warn(ctx, "award write failed, tier left untracked",
						logger.Int("tier", res.Request.Tier), logger.Error(res.Err))
				case res.Outcome == ledger.OutcomeInserted:
					created = append(created, res.Request.Tier)
				}
			}
		}

		tr.Next.UpdatedAt = o.now().UTC()
		_, err = o.progress.CompareAndSwapProgress(ctx, tr.Next, prev.Version)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, repository.ErrProgressConflict) {
			return created, fmt.Errorf("write progress: %w", err)
		}
		metrics.RecordProgressConflict()
		o.stats.conflicts.Add(1)
	}
	return created, fmt.Errorf("%w: %s/%s", ErrProgressWriteConflict, playerID, def.ID)
}

// Stats returns a copy of the cumulative counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		RoundsEvaluated:        o.stats.rounds.Load(),
		PairsEvaluated:         o.stats.pairs.Load(),
		AwardsGranted:          o.stats.awards.Load(),
		PredicateFaults:        o.stats.faults.Load(),
		AggregationUnavailable: o.stats.unavailable.Load(),
		ProgressConflicts:      o.stats.conflicts.Load(),
		ProgressFailures:       o.stats.failures.Load(),
	}
}
