package condition

import (
	"errors"
	"fmt"
)

// Sentinel errors for predicate evaluation.
var (
	ErrPredicateFault  = errors.New("predicate fault")
	ErrUnknownType     = errors.New("unknown predicate type")
	ErrUnknownClass    = errors.New("unknown score class")
	ErrInvalidSpec     = errors.New("invalid predicate spec")
	ErrMissingHoleData = errors.New("missing hole data")
)

// PredicateFault reports that one badge's predicate could not be evaluated.
// The contribution for that badge is 0; other badges are unaffected.
type PredicateFault struct {
	BadgeID string
	Kind    Kind
	Cause   error
}

func (f *PredicateFault) Error() string {
	return fmt.Sprintf("predicate fault: badge %q (%s): %v", f.BadgeID, f.Kind, f.Cause)
}

// Unwrap exposes the underlying cause.
func (f *PredicateFault) Unwrap() error { return f.Cause }

// Is matches ErrPredicateFault.
func (f *PredicateFault) Is(target error) bool { return target == ErrPredicateFault }

func fault(badgeID string, kind Kind, cause error) *PredicateFault {
	return &PredicateFault{BadgeID: badgeID, Kind: kind, Cause: cause}
}
