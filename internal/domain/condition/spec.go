// Package condition holds the declarative badge predicates and the evaluator
// that turns one player's round into a numeric contribution.
package condition

import (
	"fmt"
	"strings"
	"time"
)

// Kind tags a predicate variant.
type Kind string

// Predicate variants.
const (
	KindScoreClassCount    Kind = "score_class_count"
	KindConsecutiveRun     Kind = "consecutive_run"
	KindAdjacentPair       Kind = "adjacent_pair"
	KindAlternating        Kind = "alternating"
	KindRelativeComparison Kind = "relative_comparison"
	KindTimeWindow         Kind = "time_window"
	KindDuration           Kind = "duration"
	KindRoundTotal         Kind = "round_total"
	KindCleanRound         Kind = "clean_round"
	KindComposite          Kind = "composite"
)

// Outcomes for relative comparisons.
const (
	OutcomeWon  = "won"
	OutcomeLost = "lost"
	OutcomeTied = "tied"
)

// Composite modes.
const (
	ModeAll = "all"
	ModeAny = "any"
)

// Comparators for round totals.
const (
	CmpLT  = "lt"
	CmpLTE = "lte"
	CmpEQ  = "eq"
	CmpGTE = "gte"
	CmpGT  = "gt"
)

// Spec is a tagged predicate. Only the fields relevant to Type are read.
type Spec struct {
	Type Kind `json:"type" koanf:"type"`

	// score classes
	Class    Class `json:"class,omitempty" koanf:"class"`
	ParDelta int   `json:"par_delta,omitempty" koanf:"par_delta"`
	First    Class `json:"first,omitempty" koanf:"first"`
	Second   Class `json:"second,omitempty" koanf:"second"`

	// per-hole filters
	PuttZone string `json:"putt_zone,omitempty" koanf:"putt_zone"`
	Flag     string `json:"flag,omitempty" koanf:"flag"`

	// streaks
	GroupSize int `json:"group_size,omitempty" koanf:"group_size"`
	MinLength int `json:"min_length,omitempty" koanf:"min_length"`

	// opponents
	Outcome        string `json:"outcome,omitempty" koanf:"outcome"`
	DeficitAtLeast int    `json:"deficit_at_least,omitempty" koanf:"deficit_at_least"`

	// time
	StartHour  int    `json:"start_hour,omitempty" koanf:"start_hour"`
	EndHour    int    `json:"end_hour,omitempty" koanf:"end_hour"`
	Location   string `json:"location,omitempty" koanf:"location"`
	MaxMinutes int    `json:"max_minutes,omitempty" koanf:"max_minutes"`

	// totals
	Comparator string `json:"comparator,omitempty" koanf:"comparator"`
	Value      int    `json:"value,omitempty" koanf:"value"`
	MinHoles   int    `json:"min_holes,omitempty" koanf:"min_holes"`

	// composite
	Mode     string `json:"mode,omitempty" koanf:"mode"`
	Children []Spec `json:"children,omitempty" koanf:"children"`
}

// NeedsOpponents reports whether evaluating s reads other players' results.
func (s Spec) NeedsOpponents() bool {
	if s.Type == KindRelativeComparison {
		return true
	}
	for _, c := range s.Children {
		if c.NeedsOpponents() {
			return true
		}
	}
	return false
}

// Validate checks the spec is well formed.
func (s Spec) Validate() error {
	switch s.Type {
	case KindScoreClassCount:
		if s.Class == "" && s.PuttZone == "" && s.Flag == "" {
			return fmt.Errorf("%w: %s needs a class, putt_zone or flag", ErrInvalidSpec, s.Type)
		}
		if s.Class != "" {
			return s.Class.validate()
		}
	case KindConsecutiveRun:
		if s.GroupSize < 0 || s.MinLength < 0 {
			return fmt.Errorf("%w: negative group_size or min_length", ErrInvalidSpec)
		}
		return s.Class.validate()
	case KindAdjacentPair, KindAlternating:
		if err := s.First.validate(); err != nil {
			return err
		}
		if s.MinLength < 0 {
			return fmt.Errorf("%w: negative min_length", ErrInvalidSpec)
		}
		return s.Second.validate()
	case KindRelativeComparison:
		switch s.Outcome {
		case OutcomeWon, OutcomeLost, OutcomeTied:
		default:
			return fmt.Errorf("%w: outcome %q", ErrInvalidSpec, s.Outcome)
		}
		if s.DeficitAtLeast < 0 {
			return fmt.Errorf("%w: negative deficit_at_least", ErrInvalidSpec)
		}
	case KindTimeWindow:
		if !validHour(s.StartHour) || !validHour(s.EndHour) || s.StartHour == s.EndHour {
			return fmt.Errorf("%w: window %d-%d", ErrInvalidSpec, s.StartHour, s.EndHour)
		}
		if s.Location != "" {
			if _, err := time.LoadLocation(s.Location); err != nil {
				return fmt.Errorf("%w: location %q: %v", ErrInvalidSpec, s.Location, err)
			}
		}
	case KindDuration:
		if s.MaxMinutes <= 0 {
			return fmt.Errorf("%w: max_minutes must be positive", ErrInvalidSpec)
		}
	case KindRoundTotal:
		switch s.Comparator {
		case CmpLT, CmpLTE, CmpEQ, CmpGTE, CmpGT:
		default:
			return fmt.Errorf("%w: comparator %q", ErrInvalidSpec, s.Comparator)
		}
	case KindCleanRound:
	case KindComposite:
		if s.Mode != ModeAll && s.Mode != ModeAny {
			return fmt.Errorf("%w: mode %q", ErrInvalidSpec, s.Mode)
		}
		if len(s.Children) == 0 {
			return fmt.Errorf("%w: composite without children", ErrInvalidSpec)
		}
		for i, c := range s.Children {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("child %d: %w", i, err)
			}
		}
	case "":
		return fmt.Errorf("%w: missing type", ErrInvalidSpec)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
	}
	if s.MinHoles < 0 {
		return fmt.Errorf("%w: negative min_holes", ErrInvalidSpec)
	}
	return nil
}

func validHour(h int) bool { return h >= 0 && h <= 23 }

func normalizeZone(z string) string { return strings.ToLower(strings.TrimSpace(z)) }
