package badge_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/okian/birdie/internal/domain/badge"
	"github.com/okian/birdie/internal/domain/condition"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/internal/domain/tier"
	"github.com/okian/birdie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

const catalogYAML = `
badges:
  - id: turkey
    name: Turkey
    kind: tiered
    tier_thresholds: [1, 3, 10]
    accumulate_across_rounds: true
    condition:
      type: consecutive_run
      class: birdie
      group_size: 3
  - id: balanced
    name: Balanced
    kind: unique
    condition:
      type: composite
      mode: all
      children:
        - type: clean_round
          min_holes: 9
        - type: round_total
          comparator: lte
          value: 0
  - id: rivalry
    name: Rivalry
    kind: tiered
    tier_thresholds: [1, 5]
    requires_historical_data: true
    history:
      comparison: lost_to_friend
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "badges.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestDefinitionValidate(t *testing.T) {
	Convey("Given badge definitions", t, func() {
		valid := badge.Definition{
			ID: "birdie_hunter", Kind: tier.KindTiered, TierThresholds: []int{2, 4},
			Condition: &condition.Spec{Type: condition.KindScoreClassCount, Class: condition.ClassBirdie},
		}
		So(valid.Validate(), ShouldBeNil)

		Convey("Then thresholds must be strictly increasing", func() {
			bad := valid
			bad.TierThresholds = []int{4, 2}
			So(errors.Is(bad.Validate(), badge.ErrInvalidDefinition), ShouldBeTrue)
			So(errors.Is(bad.Validate(), tier.ErrInvalidRule), ShouldBeTrue)
		})

		Convey("Then unique badges must not carry thresholds", func() {
			bad := valid
			bad.Kind = tier.KindUnique
			So(bad.Validate(), ShouldNotBeNil)
		})

		Convey("Then a predicate is required", func() {
			bad := valid
			bad.Condition = nil
			So(errors.Is(bad.Validate(), badge.ErrInvalidDefinition), ShouldBeTrue)
		})

		Convey("Then historical badges need a history spec and cannot accumulate", func() {
			hist := badge.Definition{ID: "h", Kind: tier.KindUnique, RequiresHistoricalData: true}
			So(hist.Validate(), ShouldNotBeNil)

			hist.History = &history.Spec{Comparison: history.TiedFriend}
			So(hist.Validate(), ShouldBeNil)

			hist.AccumulateAcrossRounds = true
			So(hist.Validate(), ShouldNotBeNil)
		})

		Convey("Then duplicate ids are rejected", func() {
			err := badge.ValidateAll([]badge.Definition{valid, valid})
			So(errors.Is(err, badge.ErrDuplicateID), ShouldBeTrue)
			So(errors.Is(badge.ValidateAll(nil), badge.ErrEmptyCatalog), ShouldBeTrue)
		})

		Convey("Then the built-in catalog is valid", func() {
			So(badge.ValidateAll(badge.DefaultCatalog()), ShouldBeNil)
		})
	})
}

func TestLoadCatalogFile(t *testing.T) {
	Convey("Given a YAML catalog", t, func() {
		path := writeCatalog(t, catalogYAML)

		Convey("When it is loaded", func() {
			defs, err := badge.LoadCatalogFile(path)

			Convey("Then every definition is decoded", func() {
				So(err, ShouldBeNil)
				So(len(defs), ShouldEqual, 3)
				So(badge.ValidateAll(defs), ShouldBeNil)

				So(defs[0].Kind, ShouldEqual, tier.KindTiered)
				So(defs[0].TierThresholds, ShouldResemble, []int{1, 3, 10})
				So(defs[0].AccumulateAcrossRounds, ShouldBeTrue)
				So(defs[0].Condition.GroupSize, ShouldEqual, 3)

				So(defs[1].Condition.Mode, ShouldEqual, condition.ModeAll)
				So(len(defs[1].Condition.Children), ShouldEqual, 2)
				So(defs[1].Condition.Children[1].Comparator, ShouldEqual, condition.CmpLTE)

				So(defs[2].RequiresHistoricalData, ShouldBeTrue)
				So(defs[2].History.Comparison, ShouldEqual, history.LostToFriend)
			})
		})

		Convey("When the file has no badges list", func() {
			_, err := badge.LoadCatalogFile(writeCatalog(t, "other: 1\n"))
			So(errors.Is(err, badge.ErrEmptyCatalog), ShouldBeTrue)
		})

		Convey("When the file does not exist", func() {
			_, err := badge.LoadCatalogFile(filepath.Join(t.TempDir(), "missing.yaml"))
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry over a reloadable source", t, func() {
		ctx := context.Background()
		var (
			mu   sync.Mutex
			defs = badge.DefaultCatalog()
			fail error
		)
		source := badge.SourceFunc(func(context.Context) ([]badge.Definition, error) {
			mu.Lock()
			defer mu.Unlock()
			return defs, fail
		})

		reg, err := badge.NewRegistry(ctx, source)
		So(err, ShouldBeNil)

		Convey("Then lookups use the catalog order", func() {
			So(reg.Snapshot().Len(), ShouldEqual, len(badge.DefaultCatalog()))
			d, err := reg.Get("turkey")
			So(err, ShouldBeNil)
			So(d.Name, ShouldEqual, "Turkey")
			So(reg.Snapshot().Index("ace"), ShouldEqual, 0)
			So(reg.Snapshot().Index("nope"), ShouldEqual, -1)

			_, err = reg.Get("nope")
			So(errors.Is(err, badge.ErrNotFound), ShouldBeTrue)
		})

		Convey("When an invalid catalog is reloaded", func() {
			before := reg.Snapshot()
			mu.Lock()
			defs = append(badge.DefaultCatalog(), badge.Definition{ID: "ace", Kind: tier.KindUnique,
				Condition: &condition.Spec{Type: condition.KindCleanRound}})
			mu.Unlock()

			err := reg.Reload(ctx)

			Convey("Then it is rejected and the old snapshot stays", func() {
				So(errors.Is(err, badge.ErrDuplicateID), ShouldBeTrue)
				So(reg.Snapshot(), ShouldPointTo, before)
			})
		})

		Convey("When the source fails", func() {
			before := reg.Snapshot()
			mu.Lock()
			fail = errors.New("disk gone")
			mu.Unlock()

			err := reg.Reload(ctx)

			Convey("Then the old snapshot stays", func() {
				So(errors.Is(err, badge.ErrLoadCatalog), ShouldBeTrue)
				So(reg.Snapshot(), ShouldPointTo, before)
			})
		})

		Convey("When a smaller valid catalog is reloaded", func() {
			mu.Lock()
			defs = badge.DefaultCatalog()[:2]
			mu.Unlock()

			So(reg.Reload(ctx), ShouldBeNil)

			Convey("Then the new snapshot is served", func() {
				So(reg.Snapshot().Len(), ShouldEqual, 2)
				_, err := reg.Get("turkey")
				So(errors.Is(err, badge.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a registry whose first load is invalid", t, func() {
		_, err := badge.NewRegistry(context.Background(), badge.SourceFunc(func(context.Context) ([]badge.Definition, error) {
			return []badge.Definition{{ID: "x"}}, nil
		}))

		Convey("Then construction fails", func() {
			So(errors.Is(err, badge.ErrInvalidDefinition), ShouldBeTrue)
		})
	})
}
