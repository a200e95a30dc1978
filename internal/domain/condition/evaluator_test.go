package condition_test

import (
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

var base = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

func layout(n, par int) []model.Hole {
	holes := make([]model.Hole, n)
	for i := range holes {
		holes[i] = model.Hole{Number: i + 1, Par: par}
	}
	return holes
}

// card builds results for holes 1..len(strokes), a minute apart.
func card(strokes ...int) []model.HoleResult {
	out := make([]model.HoleResult, len(strokes))
	for i, s := range strokes {
		out[i] = model.HoleResult{HoleNumber: i + 1, Strokes: s, Timestamp: base.Add(time.Duration(i) * time.Minute)}
	}
	return out
}

func eval(spec condition.Spec, in condition.Input) (int, error) {
	return condition.NewEvaluator().Evaluate("badge", spec, in)
}

func TestScoreClasses(t *testing.T) {
	Convey("Given holes scored against their par", t, func() {
		cases := []struct {
			class   condition.Class
			strokes int
			par     int
			want    bool
		}{
			{condition.ClassAce, 1, 3, true},
			{condition.ClassAce, 1, 4, true},
			{condition.ClassEagle, 2, 4, true},
			{condition.ClassEagle, 2, 3, false},
			{condition.ClassBirdie, 2, 3, true},
			{condition.ClassBirdie, 3, 4, true},
			{condition.ClassPar, 5, 5, true},
			{condition.ClassBogey, 4, 3, true},
			{condition.ClassDoubleBogey, 5, 3, true},
			{condition.ClassUnderPar, 2, 3, true},
			{condition.ClassOverPar, 3, 3, false},
		}
		for _, c := range cases {
			got, err := c.class.Matches(c.strokes, c.par, 0)
			So(err, ShouldBeNil)
			So(got, ShouldEqual, c.want)
		}

		Convey("Then par_delta uses the configured offset", func() {
			got, err := condition.ClassParDelta.Matches(6, 3, 3)
			So(err, ShouldBeNil)
			So(got, ShouldBeTrue)
		})

		Convey("Then unknown classes are errors", func() {
			_, err := condition.Class("albatross").Matches(1, 5, 0)
			So(errors.Is(err, condition.ErrUnknownClass), ShouldBeTrue)
		})
	})
}

func TestStreaks(t *testing.T) {
	Convey("Given a consecutive birdie predicate", t, func() {
		spec := condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassBirdie}

		Convey("When a maximal run of three birdies is the longest", func() {
			n, err := eval(spec, condition.Input{Results: card(2, 2, 2, 3, 2, 2), Layout: layout(6, 3)})

			Convey("Then the contribution equals the run length", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When results arrive out of order", func() {
			results := card(2, 2, 2, 2)
			results[0], results[3] = results[3], results[0]
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(4, 3)})

			Convey("Then they are sorted by hole before counting", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When a hole is missing from the results", func() {
			results := card(2, 2, 2, 2, 2)
			results = append(results[:2], results[3:]...)
			n, _ := eval(spec, condition.Input{Results: results, Layout: layout(5, 3)})

			Convey("Then the gap breaks the streak", func() {
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When the run is shorter than min_length", func() {
			spec.MinLength = 4
			n, _ := eval(spec, condition.Input{Results: card(2, 2, 2, 3), Layout: layout(4, 3)})

			Convey("Then the contribution is zero", func() {
				So(n, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a turkey predicate (three birdies in a row, non-overlapping)", t, func() {
		spec := condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassBirdie, GroupSize: 3}

		Convey("When six consecutive birdies are scored", func() {
			n, err := eval(spec, condition.Input{Results: card(2, 2, 2, 2, 2, 2), Layout: layout(6, 3)})

			Convey("Then exactly two groups are counted", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 2)
			})
		})

		Convey("When five birdies are scored", func() {
			n, _ := eval(spec, condition.Input{Results: card(2, 2, 2, 2, 2), Layout: layout(5, 3)})

			Convey("Then only one full group counts", func() {
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a par interrupts the streak", func() {
			n, _ := eval(spec, condition.Input{Results: card(2, 2, 3, 2, 2, 2), Layout: layout(6, 3)})

			Convey("Then the counter restarts after the break", func() {
				So(n, ShouldEqual, 1)
			})
		})
	})

	Convey("Given an alternating birdie/bogey predicate", t, func() {
		spec := condition.Spec{Type: condition.KindAlternating, First: condition.ClassBirdie, Second: condition.ClassBogey, MinLength: 4}

		Convey("When four holes alternate", func() {
			n, err := eval(spec, condition.Input{Results: card(3, 2, 4, 2, 4, 3), Layout: layout(6, 3)})

			Convey("Then the longest alternation is returned", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When the alternation is too short", func() {
			n, _ := eval(spec, condition.Input{Results: card(2, 4, 2, 2), Layout: layout(4, 3)})

			Convey("Then the contribution is zero", func() {
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestAdjacentPair(t *testing.T) {
	Convey("Given an ace-after-bogey predicate", t, func() {
		spec := condition.Spec{Type: condition.KindAdjacentPair, First: condition.ClassBogey, Second: condition.ClassAce}

		Convey("When the bogey on hole K-1 arrives after the ace", func() {
			results := []model.HoleResult{
				{HoleNumber: 5, Strokes: 1},
				{HoleNumber: 1, Strokes: 3},
				{HoleNumber: 4, Strokes: 4},
			}
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(6, 3)})

			Convey("Then the pair is found by hole number", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When no result exists for hole K-1", func() {
			results := []model.HoleResult{
				{HoleNumber: 3, Strokes: 4},
				{HoleNumber: 5, Strokes: 1},
			}
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(6, 3)})

			Convey("Then the previous array element is not used", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})
}

func TestRelativeComparison(t *testing.T) {
	Convey("Given a comeback predicate (won after trailing by 3)", t, func() {
		spec := condition.Spec{Type: condition.KindRelativeComparison, Outcome: condition.OutcomeWon, DeficitAtLeast: 3}
		opponents := [][]model.HoleResult{card(3, 3, 5), card(4, 4, 4)}

		Convey("When the player trailed early and won", func() {
			n, err := eval(spec, condition.Input{Results: card(6, 2, 2), Layout: layout(3, 3), Opponents: opponents})

			Convey("Then the predicate holds", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When the deficit was met but the player lost", func() {
			n, err := eval(spec, condition.Input{Results: card(6, 3, 3), Layout: layout(3, 3), Opponents: opponents})

			Convey("Then the predicate does not hold", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the player never trailed by enough", func() {
			spec.DeficitAtLeast = 4
			n, _ := eval(spec, condition.Input{Results: card(6, 2, 2), Layout: layout(3, 3), Opponents: opponents})

			Convey("Then the predicate does not hold", func() {
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the round has no opponents", func() {
			n, err := eval(spec, condition.Input{Results: card(2, 2, 2), Layout: layout(3, 3)})

			Convey("Then the contribution is zero without a fault", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})
	})

	Convey("Given win, loss and tie predicates against the minimum opponent total", t, func() {
		opponents := [][]model.HoleResult{card(3, 3, 3), card(5, 5, 5)}
		outcome := func(o string, strokes ...int) int {
			n, err := eval(condition.Spec{Type: condition.KindRelativeComparison, Outcome: o},
				condition.Input{Results: card(strokes...), Layout: layout(3, 3), Opponents: opponents})
			So(err, ShouldBeNil)
			return n
		}
		So(outcome(condition.OutcomeWon, 3, 3, 2), ShouldEqual, 1)
		So(outcome(condition.OutcomeLost, 4, 4, 4), ShouldEqual, 1)
		So(outcome(condition.OutcomeWon, 4, 4, 4), ShouldEqual, 0)
		So(outcome(condition.OutcomeTied, 3, 3, 3), ShouldEqual, 1)
	})
}

func TestTimePredicates(t *testing.T) {
	Convey("Given a night-round window from 21:00 to 04:00", t, func() {
		spec := condition.Spec{Type: condition.KindTimeWindow, StartHour: 21, EndHour: 4}
		at := func(h, m int) time.Time { return time.Date(2026, 6, 1, h, m, 0, 0, time.UTC) }

		Convey("When results are out of chronological order", func() {
			results := []model.HoleResult{
				{HoleNumber: 1, Strokes: 3, Timestamp: at(22, 30)},
				{HoleNumber: 2, Strokes: 3, Timestamp: at(20, 50)},
				{HoleNumber: 3, Strokes: 3, Timestamp: at(23, 10)},
			}
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(3, 3)})

			Convey("Then the earliest timestamp anchors the round", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})
		})

		Convey("When the round starts after midnight", func() {
			results := []model.HoleResult{{HoleNumber: 1, Strokes: 3, Timestamp: at(1, 15)}}
			n, _ := eval(spec, condition.Input{Results: results, Layout: layout(1, 3)})

			Convey("Then the window wraps", func() {
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a location shifts the hour", func() {
			spec.Location = "America/New_York"
			results := []model.HoleResult{{HoleNumber: 1, Strokes: 3, Timestamp: at(6, 0)}}
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(1, 3)})

			Convey("Then the local hour is used", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When there are no timestamps", func() {
			n, err := eval(spec, condition.Input{Results: []model.HoleResult{{HoleNumber: 1, Strokes: 3}}, Layout: layout(1, 3)})

			Convey("Then it is a predicate fault", func() {
				So(n, ShouldEqual, 0)
				So(errors.Is(err, condition.ErrPredicateFault), ShouldBeTrue)
				So(errors.Is(err, condition.ErrMissingHoleData), ShouldBeTrue)
			})
		})
	})

	Convey("Given a speed round predicate of 120 minutes", t, func() {
		spec := condition.Spec{Type: condition.KindDuration, MaxMinutes: 120, MinHoles: 2}
		results := []model.HoleResult{
			{HoleNumber: 2, Strokes: 3, Timestamp: base.Add(2 * time.Hour)},
			{HoleNumber: 1, Strokes: 3, Timestamp: base},
		}

		Convey("Then the upper bound is inclusive", func() {
			n, err := eval(spec, condition.Input{Results: results, Layout: layout(2, 3)})
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			spec.MaxMinutes = 119
			n, _ = eval(spec, condition.Input{Results: results, Layout: layout(2, 3)})
			So(n, ShouldEqual, 0)
		})

		Convey("Then too few holes never qualify", func() {
			spec.MinHoles = 3
			n, _ := eval(spec, condition.Input{Results: results, Layout: layout(2, 3)})
			So(n, ShouldEqual, 0)
		})
	})
}

func TestRoundPredicates(t *testing.T) {
	Convey("Given round level predicates", t, func() {
		in := condition.Input{Results: card(2, 3, 3, 4), Layout: layout(4, 3)}

		Convey("Then round_total compares strokes minus par", func() {
			n, _ := eval(condition.Spec{Type: condition.KindRoundTotal, Comparator: condition.CmpLTE, Value: 0}, in)
			So(n, ShouldEqual, 1)
			n, _ = eval(condition.Spec{Type: condition.KindRoundTotal, Comparator: condition.CmpLT, Value: 0}, in)
			So(n, ShouldEqual, 0)
			n, _ = eval(condition.Spec{Type: condition.KindRoundTotal, Comparator: condition.CmpEQ, Value: 0, MinHoles: 18}, in)
			So(n, ShouldEqual, 0)
		})

		Convey("Then clean_round requires no OB", func() {
			n, _ := eval(condition.Spec{Type: condition.KindCleanRound, MinHoles: 4}, in)
			So(n, ShouldEqual, 1)

			dirty := card(2, 3, 3, 4)
			dirty[2].OBCount = 1
			n, _ = eval(condition.Spec{Type: condition.KindCleanRound}, condition.Input{Results: dirty, Layout: layout(4, 3)})
			So(n, ShouldEqual, 0)
		})

		Convey("Then score_class_count applies every filter", func() {
			results := card(2, 2, 2, 3)
			results[0].PuttZone = "C1X"
			results[1].PuttZone = "c1x"
			results[1].Flags = []string{"tree"}
			spec := condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBirdie, PuttZone: "c1x"}
			n, _ := eval(spec, condition.Input{Results: results, Layout: layout(4, 3)})
			So(n, ShouldEqual, 2)

			spec.Flag = "tree"
			n, _ = eval(spec, condition.Input{Results: results, Layout: layout(4, 3)})
			So(n, ShouldEqual, 1)
		})

		Convey("Then composites take the minimum or maximum of their children", func() {
			birdies := condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBirdie}
			bogeys := condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBogey}
			all := condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAll, Children: []condition.Spec{birdies, bogeys}}
			anyOf := condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAny, Children: []condition.Spec{birdies, bogeys}}

			results := card(2, 2, 4, 3)
			n, _ := eval(all, condition.Input{Results: results, Layout: layout(4, 3)})
			So(n, ShouldEqual, 1)
			n, _ = eval(anyOf, condition.Input{Results: results, Layout: layout(4, 3)})
			So(n, ShouldEqual, 2)
		})
	})
}

func TestPredicateFaults(t *testing.T) {
	Convey("Given malformed predicates", t, func() {
		in := condition.Input{Results: card(3, 3), Layout: layout(2, 3)}

		Convey("When the type is unknown", func() {
			n, err := condition.NewEvaluator().Evaluate("mystery", condition.Spec{Type: "lua"}, in)

			Convey("Then a PredicateFault with context is returned", func() {
				So(n, ShouldEqual, 0)
				var pf *condition.PredicateFault
				So(errors.As(err, &pf), ShouldBeTrue)
				So(pf.BadgeID, ShouldEqual, "mystery")
				So(errors.Is(err, condition.ErrUnknownType), ShouldBeTrue)
			})
		})

		Convey("When the class is unknown", func() {
			_, err := eval(condition.Spec{Type: condition.KindScoreClassCount, Class: "condor"}, in)
			So(errors.Is(err, condition.ErrPredicateFault), ShouldBeTrue)
		})

		Convey("When the layout is missing", func() {
			_, err := eval(condition.Spec{Type: condition.KindCleanRound}, condition.Input{Results: card(3)})
			So(errors.Is(err, condition.ErrMissingHoleData), ShouldBeTrue)
		})

		Convey("When an opponent strategy panics", func() {
			e := condition.NewEvaluator(condition.WithOpponentStrategy("explode", func(condition.Spec) condition.OpponentPredicate {
				return panicking{}
			}))
			n, err := e.Evaluate("boom", condition.Spec{Type: "explode"}, in)

			Convey("Then the panic becomes a fault", func() {
				So(n, ShouldEqual, 0)
				So(errors.Is(err, condition.ErrPredicateFault), ShouldBeTrue)
			})
		})
	})
}

func TestSpecValidate(t *testing.T) {
	Convey("Given predicate specs", t, func() {
		So(condition.Spec{Type: condition.KindConsecutiveRun, Class: condition.ClassBirdie, GroupSize: 3}.Validate(), ShouldBeNil)
		So(condition.Spec{Type: condition.KindTimeWindow, StartHour: 21, EndHour: 4}.Validate(), ShouldBeNil)

		So(condition.Spec{}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindTimeWindow, StartHour: 5, EndHour: 5}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindTimeWindow, StartHour: 5, EndHour: 6, Location: "Mars/Base"}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindDuration}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindRoundTotal, Comparator: "~"}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindRelativeComparison, Outcome: "drew"}.Validate(), ShouldNotBeNil)
		So(condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAll}.Validate(), ShouldNotBeNil)
		So(errors.Is(condition.Spec{Type: "lua"}.Validate(), condition.ErrUnknownType), ShouldBeTrue)

		Convey("Then nested composites are validated", func() {
			bad := condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAny, Children: []condition.Spec{{Type: condition.KindAdjacentPair, First: "x", Second: condition.ClassAce}}}
			So(errors.Is(bad.Validate(), condition.ErrUnknownClass), ShouldBeTrue)
		})

		Convey("Then opponent needs are detected through composites", func() {
			rel := condition.Spec{Type: condition.KindRelativeComparison, Outcome: condition.OutcomeWon}
			comp := condition.Spec{Type: condition.KindComposite, Mode: condition.ModeAll, Children: []condition.Spec{{Type: condition.KindCleanRound}, rel}}
			So(comp.NeedsOpponents(), ShouldBeTrue)
			So(condition.Spec{Type: condition.KindCleanRound}.NeedsOpponents(), ShouldBeFalse)
		})
	})
}

type panicking struct{}

func (panicking) EvaluateWithOpponents([]model.HoleResult, []model.Hole, [][]model.HoleResult) (int, error) {
	panic("kaboom")
}
