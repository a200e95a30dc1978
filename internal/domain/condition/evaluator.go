package condition

import (
	"fmt"
	"sort"
	"time"

	"github.com/okian/birdie/internal/domain/model"
)

// Input is everything a predicate may read for one player.
type Input struct {
	Results   []model.HoleResult
	Layout    []model.Hole
	Opponents [][]model.HoleResult
}

// Evaluator interprets predicate specs. It holds no per-call state and is
// safe for concurrent use.
type Evaluator struct {
	location   *time.Location
	strategies map[Kind]func(Spec) OpponentPredicate
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLocation sets the zone time-window predicates use when the spec does
// not name one.
func WithLocation(loc *time.Location) Option {
	return func(e *Evaluator) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithOpponentStrategy registers the strategy for a predicate kind that
// needs opponent results.
func WithOpponentStrategy(kind Kind, build func(Spec) OpponentPredicate) Option {
	return func(e *Evaluator) {
		if build != nil {
			e.strategies[kind] = build
		}
	}
}

// NewEvaluator returns an evaluator with the relative-comparison strategy
// registered.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		location: time.UTC,
		strategies: map[Kind]func(Spec) OpponentPredicate{
			KindRelativeComparison: func(s Spec) OpponentPredicate { return RelativeComparison{Outcome: s.Outcome, DeficitAtLeast: s.DeficitAtLeast} },
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the non-negative contribution of spec for one player. On
// any fault it returns 0 and a *PredicateFault; a panic inside a predicate
// is reported the same way.
func (e *Evaluator) Evaluate(badgeID string, spec Spec, in Input) (contribution int, err error) {
	defer func() {
		if r := recover(); r != nil {
			contribution = 0
			err = fault(badgeID, spec.Type, fmt.Errorf("panic: %v", r))
		}
	}()

	sc, err := newScorecard(in)
	if err != nil {
		return 0, fault(badgeID, spec.Type, err)
	}
	n, err := e.eval(spec, sc, in.Opponents)
	if err != nil {
		return 0, fault(badgeID, spec.Type, err)
	}
	return max(n, 0), nil
}

func (e *Evaluator) eval(s Spec, sc *scorecard, opponents [][]model.HoleResult) (int, error) {
	switch s.Type {
	case KindScoreClassCount:
		return scoreClassCount(s, sc)
	case KindConsecutiveRun:
		return consecutiveRun(s, sc)
	case KindAdjacentPair:
		return adjacentPair(s, sc)
	case KindAlternating:
		return alternating(s, sc)
	case KindTimeWindow:
		return e.timeWindow(s, sc)
	case KindDuration:
		return duration(s, sc)
	case KindRoundTotal:
		return roundTotal(s, sc)
	case KindCleanRound:
		return cleanRound(s, sc), nil
	case KindComposite:
		return e.composite(s, sc, opponents)
	}
	if build, ok := e.strategies[s.Type]; ok {
		return build(s).EvaluateWithOpponents(sc.results, sc.layout, opponents)
	}
	if s.Type == "" {
		return 0, fmt.Errorf("%w: missing type", ErrInvalidSpec)
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, s.Type)
}

// scorecard is the player's results sorted by hole number, joined with par
// and layout position.
type scorecard struct {
	results []model.HoleResult
	layout  []model.Hole
	par     map[int]int
	index   map[int]int
	byHole  map[int]model.HoleResult
}

func newScorecard(in Input) (*scorecard, error) {
	if len(in.Layout) == 0 && len(in.Results) > 0 {
		return nil, fmt.Errorf("%w: empty layout", ErrMissingHoleData)
	}
	layout := append([]model.Hole(nil), in.Layout...)
	sort.Slice(layout, func(i, j int) bool { return layout[i].Number < layout[j].Number })

	sc := &scorecard{
		layout: layout,
		par:    make(map[int]int, len(layout)),
		index:  make(map[int]int, len(layout)),
		byHole: make(map[int]model.HoleResult, len(in.Results)),
	}
	for i, h := range layout {
		sc.par[h.Number] = h.Par
		sc.index[h.Number] = i
	}

	sc.results = make([]model.HoleResult, 0, len(in.Results))
	for _, r := range in.Results {
		if _, dup := sc.byHole[r.HoleNumber]; dup {
			continue
		}
		sc.byHole[r.HoleNumber] = r
		sc.results = append(sc.results, r)
	}
	sort.SliceStable(sc.results, func(i, j int) bool { return sc.results[i].HoleNumber < sc.results[j].HoleNumber })
	return sc, nil
}

// classify reports whether r falls in class. Holes without a layout entry
// never match.
func (sc *scorecard) classify(r model.HoleResult, class Class, parDelta int) (bool, error) {
	par, ok := sc.par[r.HoleNumber]
	if !ok {
		return false, nil
	}
	return class.Matches(r.Strokes, par, parDelta)
}

// follows reports whether cur is the layout hole right after prev.
func (sc *scorecard) follows(prev, cur model.HoleResult) bool {
	pi, ok1 := sc.index[prev.HoleNumber]
	ci, ok2 := sc.index[cur.HoleNumber]
	return ok1 && ok2 && ci == pi+1
}

func (sc *scorecard) played() int {
	n := 0
	for _, r := range sc.results {
		if _, ok := sc.par[r.HoleNumber]; ok {
			n++
		}
	}
	return n
}

func (sc *scorecard) timeBounds() (earliest, latest time.Time, ok bool) {
	for _, r := range sc.results {
		if r.Timestamp.IsZero() {
			continue
		}
		if !ok || r.Timestamp.Before(earliest) {
			earliest = r.Timestamp
		}
		if !ok || r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
		ok = true
	}
	return earliest, latest, ok
}

func scoreClassCount(s Spec, sc *scorecard) (int, error) {
	n := 0
	zone := normalizeZone(s.PuttZone)
	for _, r := range sc.results {
		if _, ok := sc.par[r.HoleNumber]; !ok {
			continue
		}
		if s.Class != "" {
			ok, err := sc.classify(r, s.Class, s.ParDelta)
			if err != nil {
				return 0, err
			}
			if !ok {
				continue
			}
		}
		if zone != "" && normalizeZone(r.PuttZone) != zone {
			continue
		}
		if s.Flag != "" && !r.HasFlag(s.Flag) {
			continue
		}
		n++
	}
	return n, nil
}

// consecutiveRun counts non-overlapping groups when GroupSize is set,
// otherwise returns the longest run (0 if shorter than MinLength).
func consecutiveRun(s Spec, sc *scorecard) (int, error) {
	run, longest, groups := 0, 0, 0
	var prev model.HoleResult
	for _, r := range sc.results {
		ok, err := sc.classify(r, s.Class, s.ParDelta)
		if err != nil {
			return 0, err
		}
		if !ok {
			run = 0
			prev = r
			continue
		}
		if run > 0 && !sc.follows(prev, r) {
			run = 0
		}
		run++
		prev = r
		longest = max(longest, run)
		if s.GroupSize > 0 && run == s.GroupSize {
			groups++
			run = 0
		}
	}
	if s.GroupSize > 0 {
		return groups, nil
	}
	if longest < s.MinLength {
		return 0, nil
	}
	return longest, nil
}

// adjacentPair counts holes K in Second whose hole K-1 result is in First.
func adjacentPair(s Spec, sc *scorecard) (int, error) {
	n := 0
	for _, r := range sc.results {
		ok, err := sc.classify(r, s.Second, s.ParDelta)
		if err != nil {
			return 0, err
		}
		if !ok {
			continue
		}
		before, exists := sc.byHole[r.HoleNumber-1]
		if !exists {
			continue
		}
		ok, err = sc.classify(before, s.First, s.ParDelta)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// alternating returns the longest run of holes alternating between First and
// Second (0 if shorter than MinLength).
func alternating(s Spec, sc *scorecard) (int, error) {
	const none, first, second = 0, 1, 2
	run, longest, last := 0, 0, none
	var prev model.HoleResult
	for i, r := range sc.results {
		isFirst, err := sc.classify(r, s.First, s.ParDelta)
		if err != nil {
			return 0, err
		}
		isSecond, err := sc.classify(r, s.Second, s.ParDelta)
		if err != nil {
			return 0, err
		}
		contiguous := i > 0 && sc.follows(prev, r)
		prev = r

		switch {
		case contiguous && last == first && isSecond:
			run, last = run+1, second
		case contiguous && last == second && isFirst:
			run, last = run+1, first
		case isFirst:
			run, last = 1, first
		case isSecond:
			run, last = 1, second
		default:
			run, last = 0, none
		}
		longest = max(longest, run)
	}
	if longest < max(s.MinLength, 2) {
		return 0, nil
	}
	return longest, nil
}

// timeWindow anchors on the earliest timestamp of the round.
func (e *Evaluator) timeWindow(s Spec, sc *scorecard) (int, error) {
	earliest, _, ok := sc.timeBounds()
	if !ok {
		return 0, fmt.Errorf("%w: no timestamps", ErrMissingHoleData)
	}
	loc := e.location
	if s.Location != "" {
		l, err := time.LoadLocation(s.Location)
		if err != nil {
			return 0, fmt.Errorf("%w: location %q: %v", ErrInvalidSpec, s.Location, err)
		}
		loc = l
	}
	h := earliest.In(loc).Hour()
	var in bool
	if s.StartHour < s.EndHour {
		in = h >= s.StartHour && h < s.EndHour
	} else {
		in = h >= s.StartHour || h < s.EndHour
	}
	return boolToInt(in), nil
}

// duration compares latest-earliest against an inclusive bound.
func duration(s Spec, sc *scorecard) (int, error) {
	earliest, latest, ok := sc.timeBounds()
	if !ok {
		return 0, fmt.Errorf("%w: no timestamps", ErrMissingHoleData)
	}
	if sc.played() < s.MinHoles {
		return 0, nil
	}
	return boolToInt(latest.Sub(earliest) <= time.Duration(s.MaxMinutes)*time.Minute), nil
}

func roundTotal(s Spec, sc *scorecard) (int, error) {
	played := sc.played()
	if played == 0 || played < s.MinHoles {
		return 0, nil
	}
	diff := 0
	for _, r := range sc.results {
		if par, ok := sc.par[r.HoleNumber]; ok {
			diff += r.Strokes - par
		}
	}
	ok, err := compare(s.Comparator, diff, s.Value)
	if err != nil {
		return 0, err
	}
	return boolToInt(ok), nil
}

func cleanRound(s Spec, sc *scorecard) int {
	played := sc.played()
	if played == 0 || played < s.MinHoles {
		return 0
	}
	for _, r := range sc.results {
		if r.OBCount > 0 {
			return 0
		}
	}
	return 1
}

func (e *Evaluator) composite(s Spec, sc *scorecard, opponents [][]model.HoleResult) (int, error) {
	if len(s.Children) == 0 {
		return 0, fmt.Errorf("%w: composite without children", ErrInvalidSpec)
	}
	var acc int
	for i, child := range s.Children {
		v, err := e.eval(child, sc, opponents)
		if err != nil {
			return 0, fmt.Errorf("child %d: %w", i, err)
		}
		switch {
		case i == 0:
			acc = v
		case s.Mode == ModeAny:
			acc = max(acc, v)
		case s.Mode == ModeAll:
			acc = min(acc, v)
		default:
			return 0, fmt.Errorf("%w: mode %q", ErrInvalidSpec, s.Mode)
		}
	}
	return acc, nil
}

func compare(cmp string, a, b int) (bool, error) {
	switch cmp {
	case CmpLT:
		return a < b, nil
	case CmpLTE:
		return a <= b, nil
	case CmpEQ:
		return a == b, nil
	case CmpGTE:
		return a >= b, nil
	case CmpGT:
		return a > b, nil
	}
	return false, fmt.Errorf("%w: comparator %q", ErrInvalidSpec, cmp)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
