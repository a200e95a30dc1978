// Package badge defines badge definitions and the validated registry that
// serves them to the evaluation engine.
package badge

import (
	"fmt"
	"strings"

	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/tier"
)

// Definition is one catalog entry.
type Definition struct {
	ID                     string          `json:"id" koanf:"id"`
	Name                   string          `json:"name" koanf:"name"`
	Description            string          `json:"description,omitempty" koanf:"description"`
	Kind                   tier.Kind       `json:"kind" koanf:"kind"`
	TierThresholds         []int           `json:"tierThresholds,omitempty" koanf:"tier_thresholds"`
	AccumulateAcrossRounds bool            `json:"accumulateAcrossRounds" koanf:"accumulate_across_rounds"`
	RequiresHistoricalData bool            `json:"requiresHistoricalData" koanf:"requires_historical_data"`
	Condition              *condition.Spec `json:"condition,omitempty" koanf:"condition"`
	History                *history.Spec   `json:"history,omitempty" koanf:"history"`
}

// Rule returns the tier rule for the definition.
func (d Definition) Rule() tier.Rule {
	return tier.Rule{
		Kind:       d.Kind,
		Thresholds: d.TierThresholds,
		Accumulate: d.AccumulateAcrossRounds,
		Historical: d.RequiresHistoricalData,
	}
}

// NeedsOpponents reports whether the per-round predicate reads the other
// players' results.
func (d Definition) NeedsOpponents() bool {
	return d.Condition != nil && d.Condition.NeedsOpponents()
}

// Validate rejects definitions that must never reach evaluation.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidDefinition)
	}
	if err := d.Rule().Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, d.ID, err)
	}

	if d.RequiresHistoricalData {
		if d.History == nil {
			return fmt.Errorf("%w: %s: historical badge without history spec", ErrInvalidDefinition, d.ID)
		}
		if d.Condition != nil {
			return fmt.Errorf("%w: %s: historical badge with a per-round condition", ErrInvalidDefinition, d.ID)
		}
		if err := d.History.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, d.ID, err)
		}
		return nil
	}

	if d.Condition == nil {
		return fmt.Errorf("%w: %s: missing condition", ErrInvalidDefinition, d.ID)
	}
	if d.History != nil {
		return fmt.Errorf("%w: %s: history spec on a per-round badge", ErrInvalidDefinition, d.ID)
	}
	if err := d.Condition.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidDefinition, d.ID, err)
	}
	return nil
}

// ValidateAll validates each definition and rejects duplicate ids.
func ValidateAll(defs []Definition) error {
	if len(defs) == 0 {
		return ErrEmptyCatalog
	}
	seen := make(map[string]struct{}, len(defs))
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return err
		}
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
