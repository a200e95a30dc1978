// Package tier implements the monotonic per player x badge progress state
// machine.
package tier

import (
	"fmt"
	"slices"

	"github.com/okian/birdie/internal/domain/model"
)

// Kind distinguishes single-award badges from tiered ones.
type Kind string

// Badge kinds.
const (
	KindUnique Kind = "unique"
	KindTiered Kind = "tiered"
)

// UniqueTier is the sentinel tier recorded for unique badges.
const UniqueTier = 0

// Rule is the part of a badge definition the tracker needs.
type Rule struct {
	Kind       Kind
	Thresholds []int
	Accumulate bool
	// Historical rules floor progress at the best value seen so a degraded
	// aggregation can never lower it.
	Historical bool
}

// Validate checks thresholds against the kind.
func (r Rule) Validate() error {
	switch r.Kind {
	case KindUnique:
		if len(r.Thresholds) != 0 {
			return fmt.Errorf("%w: unique badges take no thresholds", ErrInvalidRule)
		}
	case KindTiered:
		if len(r.Thresholds) == 0 {
			return fmt.Errorf("%w: tiered badges need thresholds", ErrInvalidRule)
		}
		for i, t := range r.Thresholds {
			if t <= 0 {
				return fmt.Errorf("%w: threshold %d is not positive", ErrInvalidRule, t)
			}
			if i > 0 && t <= r.Thresholds[i-1] {
				return fmt.Errorf("%w: thresholds must be strictly increasing", ErrInvalidRule)
			}
		}
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidRule, r.Kind)
	}
	if r.Historical && r.Accumulate {
		return fmt.Errorf("%w: historical badges cannot accumulate", ErrInvalidRule)
	}
	return nil
}

// For returns the highest tier reached by value, or model.UnearnedTier.
func (r Rule) For(value int) int {
	if r.Kind == KindUnique {
		if value > 0 {
			return UniqueTier
		}
		return model.UnearnedTier
	}
	tier := model.UnearnedTier
	for i, t := range r.Thresholds {
		if value >= t {
			tier = i
		}
	}
	return tier
}

// Transition is the outcome of applying one contribution.
type Transition struct {
	Next    model.BadgeProgress
	Emitted []int
	Changed bool
}

// Advance applies contribution from roundID to prev. It never lowers the
// tier. Every tier up to the new tier that is not yet tracked is emitted and
// tracked in the same update.
func Advance(prev model.BadgeProgress, rule Rule, contribution int, roundID string) Transition {
	next := prev.Clone()
	contribution = max(contribution, 0)

	switch {
	case rule.Historical:
		next.TotalProgress = max(prev.TotalProgress, contribution)
	case rule.Accumulate:
		// A round is added once per pair. It is recorded in the same update
		// that adds it, so a write that never landed is applied on retry.
		if roundID == "" || !prev.Applied(roundID) {
			next.TotalProgress = prev.TotalProgress + contribution
			if roundID != "" && contribution > 0 {
				next.AppliedRoundIDs = append(next.AppliedRoundIDs, roundID)
			}
		}
	default:
		next.TotalProgress = contribution
	}

	next.CurrentTier = max(prev.CurrentTier, rule.For(next.TotalProgress))

	var emitted []int
	for t := 0; t <= next.CurrentTier; t++ {
		if !next.Tracks(t) {
			emitted = append(emitted, t)
			next.TrackedThresholds = append(next.TrackedThresholds, t)
		}
	}
	slices.Sort(next.TrackedThresholds)
	if roundID != "" {
		next.LastUpdatedRoundID = roundID
	}

	return Transition{
		Next:    next,
		Emitted: emitted,
		Changed: len(emitted) > 0 ||
			next.TotalProgress != prev.TotalProgress ||
			next.CurrentTier != prev.CurrentTier ||
			next.LastUpdatedRoundID != prev.LastUpdatedRoundID,
	}
}

// Untrack removes tier from the transition's tracked set and emissions so a
// later evaluation re-emits it. Used when the award write failed.
func (t *Transition) Untrack(tier int) {
	t.Next.TrackedThresholds = slices.DeleteFunc(t.Next.TrackedThresholds, func(v int) bool { return v == tier })
	t.Emitted = slices.DeleteFunc(t.Emitted, func(v int) bool { return v == tier })
}
