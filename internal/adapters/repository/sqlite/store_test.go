package sqlite_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/birdie/internal/adapters/repository"
	"github.com/okian/birdie/internal/adapters/repository/sqlite"
	"github.com/okian/birdie/internal/adapters/repository/storetest"
	"github.com/okian/birdie/internal/domain/history"
	"github.com/okian/birdie/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "birdie.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return store
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store { return openStore(t) })
}

func TestOpen(t *testing.T) {
	Convey("Given a database path", t, func() {
		path := filepath.Join(t.TempDir(), "birdie.db")

		Convey("When the store is opened twice", func() {
			first, err := sqlite.Open(context.Background(), path)
			So(err, ShouldBeNil)
			So(first.Close(), ShouldBeNil)

			second, err := sqlite.Open(context.Background(), path)

			Convey("Then migrations are applied only once", func() {
				So(err, ShouldBeNil)
				So(second.Close(), ShouldBeNil)
			})
		})

		Convey("When the path is empty", func() {
			_, err := sqlite.Open(context.Background(), "  ")

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestCountFriendRounds(t *testing.T) {
	Convey("Given rounds with friends, strangers and organizer-only participation", t, func() {
		ctx := context.Background()
		store := openStore(t)
		defer store.Close()

		at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
		rounds := []struct {
			id, organizer string
			strokes       map[string]int
		}{
			{"r1", "", map[string]int{"me": 5, "ann": 3}},
			{"r2", "", map[string]int{"me": 5, "ann": 6, "bob": 4}},
			{"r3", "", map[string]int{"me": 2, "ann": 6}},
			{"r4", "", map[string]int{"me": 4, "stranger": 1}},
			{"r5", "me", map[string]int{"ann": 1, "bob": 1}},
			{"r6", "", map[string]int{"me": 6, "bob": 6, "ann": 7}},
			{"r7", "", map[string]int{"me": 1, "zed": 9}},
		}
		for i, r := range rounds {
			ok, err := store.SaveRound(ctx, storetest.Round(r.id, r.organizer, r.strokes, at.Add(time.Duration(i)*time.Hour)))
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		}
		So(store.AddFriendship(ctx, "me", "ann", repository.FriendshipAccepted), ShouldBeNil)
		So(store.AddFriendship(ctx, "bob", "me", repository.FriendshipAccepted), ShouldBeNil)
		So(store.AddFriendship(ctx, "me", "zed", repository.FriendshipPending), ShouldBeNil)

		count := func(cmp history.Comparison) int {
			n, err := store.CountFriendRounds(ctx, "me", cmp)
			So(err, ShouldBeNil)
			return n
		}

		Convey("Then each comparison is reduced per round against the best friend", func() {
			So(count(history.LostToFriend), ShouldEqual, 2)
			So(count(history.BeatFriends), ShouldEqual, 1)
			So(count(history.TiedFriend), ShouldEqual, 1)
			So(count(history.PlayedWithFriend), ShouldEqual, 4)
		})

		Convey("Then the server-side count matches the streaming fallback", func() {
			streaming := history.NewAggregator(store, store, history.WithCounter(nil))
			serverSide := history.NewAggregator(store, store)
			for _, cmp := range []history.Comparison{history.LostToFriend, history.BeatFriends, history.TiedFriend, history.PlayedWithFriend} {
				a, err := streaming.Contribution(ctx, "me", history.Spec{Comparison: cmp})
				So(err, ShouldBeNil)
				b, err := serverSide.Contribution(ctx, "me", history.Spec{Comparison: cmp})
				So(err, ShouldBeNil)
				So(a, ShouldEqual, b)
			}
		})

		Convey("Then unknown comparisons are rejected", func() {
			_, err := store.CountFriendRounds(ctx, "me", "envy")
			So(err, ShouldNotBeNil)
		})
	})
}
