package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/birdie/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		So(d.Size(), ShouldEqual, 0)

		Convey("When a round id is recorded", func() {
			seen := d.SeenAndRecord(ctx, "round-1")

			Convey("Then the first call reports it as new", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
				So(d.Seen(ctx, "round-1"), ShouldBeTrue)
			})

			Convey("Then a second call reports it as seen", func() {
				So(d.SeenAndRecord(ctx, "round-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a recorded key is unrecorded", func() {
			d.SeenAndRecord(ctx, "p-1|ace|0")
			d.Unrecord(ctx, "p-1|ace|0")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.Seen(ctx, "p-1|ace|0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "p-1|ace|0"), ShouldBeFalse)
			})
		})

		Convey("When an unknown key is unrecorded", func() {
			d.Unrecord(ctx, "missing")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When Seen is asked about a new key", func() {
			So(d.Seen(ctx, "round-9"), ShouldBeFalse)

			Convey("Then the key is not recorded", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		for _, k := range []string{"r-1", "r-2", "r-3"} {
			So(d.SeenAndRecord(ctx, k), ShouldBeFalse)
		}

		Convey("When a fourth key arrives", func() {
			So(d.SeenAndRecord(ctx, "r-4"), ShouldBeFalse)

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Seen(ctx, "r-1"), ShouldBeFalse)
				So(d.Seen(ctx, "r-2"), ShouldBeTrue)
				So(d.Seen(ctx, "r-3"), ShouldBeTrue)
				So(d.Seen(ctx, "r-4"), ShouldBeTrue)
			})
		})

		Convey("When a middle key is unrecorded before the bound is hit", func() {
			d.Unrecord(ctx, "r-2")
			d.SeenAndRecord(ctx, "r-4")

			Convey("Then no eviction is needed", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.Seen(ctx, "r-1"), ShouldBeTrue)
				So(d.Seen(ctx, "r-2"), ShouldBeFalse)
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(-1))

		Convey("When many keys are recorded", func() {
			for i := 0; i < 1000; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("r-%d", i)), ShouldBeFalse)
			}

			Convey("Then none are evicted", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.Seen(ctx, "r-0"), ShouldBeTrue)
			})
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given a deduper shared by many goroutines", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(10_000))
		const workers = 10
		const perWorker = 100

		Convey("When every goroutine records the same keys", func() {
			var (
				wg    sync.WaitGroup
				mu    sync.Mutex
				fresh int
			)
			for w := 0; w < workers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("r-%d", j)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each key is reported new exactly once", func() {
				So(fresh, ShouldEqual, perWorker)
				So(d.Size(), ShouldEqual, perWorker)
			})
		})
	})
}
