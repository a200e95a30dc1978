package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/birdie/internal/adapters/mq/queue"
	"github.com/okian/birdie/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func job(id string) queue.Job {
	return queue.Job{Round: model.NormalizedRound{RoundID: id}}
}

func TestInMemoryQueue(t *testing.T) {
	Convey("Given a queue with capacity 2", t, func() {
		ctx := context.Background()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("When jobs are enqueued up to capacity", func() {
			So(q.Enqueue(ctx, job("r-1")), ShouldBeNil)
			So(q.Enqueue(ctx, job("r-2")), ShouldBeNil)

			Convey("Then the next enqueue reports backpressure", func() {
				So(errors.Is(q.Enqueue(ctx, job("r-3")), queue.ErrFull), ShouldBeTrue)
				So(q.Len(), ShouldEqual, 2)
				So(q.Cap(), ShouldEqual, 2)
			})

			Convey("Then jobs come out in order with an enqueue time", func() {
				dctx, cancel := context.WithCancel(ctx)
				defer cancel()
				out := q.Dequeue(dctx)
				first := <-out
				second := <-out
				So(first.Round.RoundID, ShouldEqual, "r-1")
				So(second.Round.RoundID, ShouldEqual, "r-2")
				So(first.EnqueuedAt.IsZero(), ShouldBeFalse)
			})
		})

		Convey("When the queue is closed with jobs pending", func() {
			So(q.Enqueue(ctx, job("r-1")), ShouldBeNil)
			So(q.Close(), ShouldBeNil)

			Convey("Then enqueue fails and pending jobs still drain", func() {
				So(errors.Is(q.Enqueue(ctx, job("r-2")), queue.ErrClosed), ShouldBeTrue)
				So(q.IsClosed(), ShouldBeTrue)

				var got []string
				for j := range q.Dequeue(ctx) {
					got = append(got, j.Round.RoundID)
				}
				So(got, ShouldResemble, []string{"r-1"})
				So(q.Close(), ShouldBeNil)
			})
		})

		Convey("When the context is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then enqueue fails and dequeue closes", func() {
				So(errors.Is(q.Enqueue(cancelled, job("r-1")), context.Canceled), ShouldBeTrue)
				select {
				case _, ok := <-q.Dequeue(cancelled):
					So(ok, ShouldBeFalse)
				case <-time.After(time.Second):
					So("dequeue did not close", ShouldBeEmpty)
				}
			})
		})
	})
}

func TestInMemoryQueueConcurrentAccess(t *testing.T) {
	Convey("Given producers and consumers sharing a queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(16))
		const producers, perProducer = 8, 50

		var (
			mu   sync.Mutex
			seen = make(map[string]bool)
			wg   sync.WaitGroup
		)
		for c := 0; c < 4; c++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range q.Dequeue(ctx) {
					mu.Lock()
					seen[j.Round.RoundID] = true
					mu.Unlock()
				}
			}()
		}

		var pg sync.WaitGroup
		for p := 0; p < producers; p++ {
			pg.Add(1)
			go func() {
				defer pg.Done()
				for i := 0; i < perProducer; i++ {
					for q.Enqueue(ctx, job(fmt.Sprintf("r-%d-%d", p, i))) != nil {
						time.Sleep(time.Millisecond)
					}
				}
			}()
		}
		pg.Wait()
		So(q.Close(), ShouldBeNil)
		wg.Wait()

		Convey("Then every job is delivered exactly once", func() {
			So(len(seen), ShouldEqual, producers*perProducer)
			So(q.Len(), ShouldEqual, 0)
		})
	})
}
