package condition

import "fmt"

// Class is a score classification relative to a hole's par.
type Class string

// Score classes.
const (
	ClassAce         Class = "ace"
	ClassEagle       Class = "eagle"
	ClassBirdie      Class = "birdie"
	ClassPar         Class = "par"
	ClassBogey       Class = "bogey"
	ClassDoubleBogey Class = "double_bogey"
	ClassUnderPar    Class = "under_par"
	ClassOverPar     Class = "over_par"
	ClassParDelta    Class = "par_delta"
)

func (c Class) validate() error {
	switch c {
	case ClassAce, ClassEagle, ClassBirdie, ClassPar, ClassBogey,
		ClassDoubleBogey, ClassUnderPar, ClassOverPar, ClassParDelta:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownClass, c)
}

// Matches reports whether strokes on a hole of the given par fall in c.
// parDelta is only read by ClassParDelta.
func (c Class) Matches(strokes, par, parDelta int) (bool, error) {
	switch c {
	case ClassAce:
		return strokes == 1, nil
	case ClassEagle:
		return strokes == par-2, nil
	case ClassBirdie:
		return strokes == par-1, nil
	case ClassPar:
		return strokes == par, nil
	case ClassBogey:
		return strokes == par+1, nil
	case ClassDoubleBogey:
		return strokes == par+2, nil
	case ClassUnderPar:
		return strokes < par, nil
	case ClassOverPar:
		return strokes > par, nil
	case ClassParDelta:
		return strokes == par+parDelta, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnknownClass, c)
}
