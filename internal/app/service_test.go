package service_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/birdie/internal/app"
	"github.com/okian/birdie/internal/domain/badge"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func intp(v int) *int { return &v }

// roundEvent builds a three hole, par 3 round.
func roundEvent(id string, strokes map[string][]int) model.CompletedRoundEvent {
	start := time.Date(2026, 7, 4, 14, 0, 0, 0, time.UTC)
	ev := model.CompletedRoundEvent{RoundID: id, CourseID: "maple-hill"}
	for n := 1; n <= 3; n++ {
		ev.Layout = append(ev.Layout, model.RawHole{Number: intp(n), Par: 3})
	}
	for player, scores := range strokes {
		for i, s := range scores {
			ev.Results = append(ev.Results, model.RawResult{
				PlayerID:   model.FlexID(player),
				HoleNumber: intp(i + 1),
				Strokes:    s,
				Timestamp:  start.Add(time.Duration(i) * 15 * time.Minute),
			})
		}
	}
	return ev
}

func hasAward(records []model.AwardRecord, badgeID string, tier int) bool {
	for _, r := range records {
		if r.BadgeID == badgeID && r.Tier == tier {
			return true
		}
	}
	return false
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		ctx := context.Background()

		Convey("Then operations report it is not started", func() {
			_, err := svc.SubmitRound(ctx, roundEvent("r-1", nil))
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.PlayerAwards(ctx, "p1")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.Badge("ace")
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.GetStats()["started"], ShouldEqual, false)
			So(svc.Stop(ctx), ShouldBeNil)
		})

		Convey("When it is started", func() {
			So(svc.Start(ctx), ShouldBeNil)
			defer func() { So(svc.Stop(ctx), ShouldBeNil) }()

			Convey("Then it serves the built-in catalog", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["badges"], ShouldEqual, len(svc.Badges()))
				So(len(svc.Badges()), ShouldBeGreaterThan, 0)
			})

			Convey("Then single badges are looked up by id", func() {
				def, err := svc.Badge(" ace ")
				So(err, ShouldBeNil)
				So(def.ID, ShouldEqual, "ace")
				_, err = svc.Badge("albatross_club")
				So(errors.Is(err, badge.ErrNotFound), ShouldBeTrue)
			})

			Convey("Then starting again is a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceRounds(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer func() { So(svc.Stop(ctx), ShouldBeNil) }()

		Convey("When a round with an ace is submitted", func() {
			round, err := svc.SubmitRound(ctx, roundEvent("r-1", map[string][]int{"p1": {1, 3, 3}, "p2": {3, 3, 4}}))
			So(err, ShouldBeNil)
			So(round.Players(), ShouldResemble, []string{"p1", "p2"})

			Convey("Then the same round id is rejected", func() {
				_, err := svc.SubmitRound(ctx, roundEvent("r-1", nil))
				So(errors.Is(err, service.ErrDuplicateRound), ShouldBeTrue)
			})

			Convey("Then a worker evaluates it in the background", func() {
				deadline := time.Now().Add(5 * time.Second)
				var awards []model.AwardRecord
				for time.Now().Before(deadline) {
					awards, err = svc.PlayerAwards(ctx, "p1")
					So(err, ShouldBeNil)
					if hasAward(awards, "ace", 0) {
						break
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(hasAward(awards, "ace", 0), ShouldBeTrue)
			})
		})

		Convey("When a round without an id is submitted", func() {
			_, err := svc.SubmitRound(ctx, roundEvent("  ", map[string][]int{"p1": {3, 3, 3}}))

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, service.ErrInvalidRound), ShouldBeTrue)
			})
		})

		Convey("When friends play rounds evaluated synchronously", func() {
			So(svc.AddFriendship(ctx, "p1", "p2"), ShouldBeNil)
			report, err := svc.EvaluateRound(ctx, roundEvent("r-10", map[string][]int{"p1": {2, 3, 3}, "p2": {3, 3, 3}}))
			So(err, ShouldBeNil)

			Convey("Then the loser earns the historical rivalry badge", func() {
				So(report["p2"], ShouldContain, model.EarnedBadge{BadgeID: "friendly_rivalry", Tier: 0})
				progress, err := svc.PlayerProgress(ctx, "p2")
				So(err, ShouldBeNil)
				So(len(progress), ShouldBeGreaterThan, 0)
			})

			Convey("Then evaluating it again awards nothing new", func() {
				again, err := svc.EvaluateRound(ctx, roundEvent("r-10", map[string][]int{"p1": {2, 3, 3}, "p2": {3, 3, 3}}))
				So(err, ShouldBeNil)
				So(again.Count(), ShouldEqual, 0)
			})

			Convey("Then the async path ignores the already evaluated round", func() {
				_, err := svc.SubmitRound(ctx, roundEvent("r-10", nil))
				So(errors.Is(err, service.ErrDuplicateRound), ShouldBeTrue)
			})
		})

		Convey("When a player id is blank", func() {
			_, err := svc.PlayerProgress(ctx, " ")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, service.ErrInvalidPlayer), ShouldBeTrue)
			})
		})
	})
}

const catalogYAML = `
badges:
  - id: ace
    name: Ace
    kind: unique
    condition:
      type: score_class_count
      class: ace
`

func TestServiceCatalogAndStorage(t *testing.T) {
	Convey("Given a service with a catalog file and sqlite storage", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		catalog := filepath.Join(dir, "badges.yaml")
		So(os.WriteFile(catalog, []byte(catalogYAML), 0o600), ShouldBeNil)
		dbPath := filepath.Join(dir, "birdie.db")

		svc := service.New(service.WithCatalogPath(catalog), service.WithStorage("sqlite", dbPath))
		So(svc.Start(ctx), ShouldBeNil)

		Convey("When the catalog file is replaced with an invalid one", func() {
			So(os.WriteFile(catalog, []byte("badges:\n  - id: broken\n    kind: tiered\n"), 0o600), ShouldBeNil)
			n, err := svc.ReloadCatalog(ctx)

			Convey("Then the reload fails and the old catalog stays", func() {
				So(err, ShouldNotBeNil)
				So(n, ShouldEqual, 1)
				So(svc.Badges()[0].ID, ShouldEqual, "ace")
				So(svc.Stop(ctx), ShouldBeNil)
			})
		})

		Convey("When a round is evaluated and the service restarts", func() {
			report, err := svc.EvaluateRound(ctx, roundEvent("r-1", map[string][]int{"p1": {1, 3, 3}}))
			So(err, ShouldBeNil)
			So(report["p1"], ShouldResemble, []model.EarnedBadge{{BadgeID: "ace", Tier: 0}})
			So(svc.Stop(ctx), ShouldBeNil)

			restarted := service.New(service.WithCatalogPath(catalog), service.WithStorage("sqlite", dbPath))
			So(restarted.Start(ctx), ShouldBeNil)
			defer func() { So(restarted.Stop(ctx), ShouldBeNil) }()

			Convey("Then awards survive and are not granted twice", func() {
				awards, err := restarted.PlayerAwards(ctx, "p1")
				So(err, ShouldBeNil)
				So(len(awards), ShouldEqual, 1)
				again, err := restarted.EvaluateRound(ctx, roundEvent("r-1", map[string][]int{"p1": {1, 3, 3}}))
				So(err, ShouldBeNil)
				So(again.Count(), ShouldEqual, 0)
			})
		})
	})
}
