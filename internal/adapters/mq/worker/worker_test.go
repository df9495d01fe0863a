package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/scoreboard/internal/adapters/mq/queue"
	worker "github.com/okian/scoreboard/internal/adapters/mq/worker"
	logging "github.com/okian/scoreboard/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing.
type mockQueue struct {
	jobs chan queue.Job
	once sync.Once
}

func newMockQueue() *mockQueue {
	return &mockQueue{
		jobs: make(chan queue.Job, 128),
	}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Job {
	return mq.jobs
}

func (mq *mockQueue) Close() error {
	mq.once.Do(func() { close(mq.jobs) })
	return nil
}

func (mq *mockQueue) add(contestID string) {
	mq.jobs <- queue.Job{ContestID: contestID, EnqueuedAt: time.Now()}
}

type mockWarmer struct {
	mu     sync.Mutex
	warmed map[string]int
	errors map[string]error
}

func newMockWarmer() *mockWarmer {
	return &mockWarmer{
		warmed: make(map[string]int),
		errors: make(map[string]error),
	}
}

func (mw *mockWarmer) Warm(ctx context.Context, contestID string) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if err, ok := mw.errors[contestID]; ok {
		return err
	}
	mw.warmed[contestID]++
	return nil
}

func (mw *mockWarmer) setError(contestID string, err error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.errors[contestID] = err
}

func (mw *mockWarmer) count(contestID string) int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.warmed[contestID]
}

func (mw *mockWarmer) total() int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	n := 0
	for _, c := range mw.warmed {
		n += c
	}
	return n
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a new InMemoryWorker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		warmer := newMockWarmer()

		convey.Convey("When creating a worker with options", func() {
			w := worker.NewInMemoryWorker(q, warmer,
				worker.WithName("test-worker"),
				worker.WithLogger(logging.Get()),
			)

			convey.Convey("Then it should be created successfully", func() {
				convey.So(w, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When running a worker", func() {
			w := worker.NewInMemoryWorker(q, warmer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			go w.Run(ctx)

			convey.Convey("And when a warm job arrives", func() {
				q.add("contest-1")

				convey.Convey("Then the contest is warmed", func() {
					convey.So(waitFor(func() bool { return warmer.count("contest-1") == 1 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when warming fails", func() {
				warmer.setError("contest-bad", errors.New("store down"))
				q.add("contest-bad")
				q.add("contest-2")

				convey.Convey("Then the worker keeps going", func() {
					convey.So(waitFor(func() bool { return warmer.count("contest-2") == 1 }), convey.ShouldBeTrue)
					convey.So(warmer.count("contest-bad"), convey.ShouldEqual, 0)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer shutdownCancel()

				err := w.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully", func() {
					convey.So(err, convey.ShouldBeNil)
				})
			})
		})

		convey.Convey("When the worker never started", func() {
			w := worker.NewInMemoryWorker(q, warmer)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer shutdownCancel()

			err := w.Shutdown(shutdownCtx)

			convey.Convey("Then shutdown reports the timeout", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a new WorkerPool", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		warmer := newMockWarmer()

		convey.Convey("When creating a worker pool with default count", func() {
			pool := worker.NewPool(0, q, warmer)

			convey.Convey("Then it has at least one worker", func() {
				convey.So(pool.Size(), convey.ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		convey.Convey("When starting a worker pool", func() {
			pool := worker.NewPool(2, q, warmer)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			pool.Start(ctx)

			convey.Convey("And when processing multiple jobs", func() {
				for _, id := range []string{"c1", "c2", "c3"} {
					q.add(id)
				}

				convey.Convey("Then all jobs are processed and counted", func() {
					convey.So(waitFor(func() bool { return warmer.total() == 3 }), convey.ShouldBeTrue)
					convey.So(waitFor(func() bool { return pool.Processed() == 3 }), convey.ShouldBeTrue)
				})
			})

			convey.Convey("And when shutting down", func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
				defer shutdownCancel()

				err := pool.Shutdown(shutdownCtx)

				convey.Convey("Then it should shutdown gracefully and close the queue", func() {
					convey.So(err, convey.ShouldBeNil)
					_, open := <-q.jobs
					convey.So(open, convey.ShouldBeFalse)
				})
			})

			convey.Convey("And when shut down twice", func() {
				convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)

				convey.Convey("Then the second shutdown does not panic", func() {
					convey.So(func() { _ = pool.Shutdown(context.Background()) }, convey.ShouldNotPanic)
				})
			})
		})
	})
}

func TestWorkerConcurrency(t *testing.T) {
	convey.Convey("Given a worker pool with multiple workers", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		warmer := newMockWarmer()

		pool := worker.NewPool(4, q, warmer)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pool.Start(ctx)

		convey.Convey("When many producers enqueue jobs", func() {
			const jobCount = 100
			var wg sync.WaitGroup

			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(producer int) {
					defer wg.Done()
					for j := 0; j < jobCount/5; j++ {
						q.add(fmt.Sprintf("contest-%d-%d", producer, j))
					}
				}(i)
			}
			wg.Wait()

			convey.Convey("Then every job is warmed exactly once", func() {
				convey.So(waitFor(func() bool { return warmer.total() == jobCount }), convey.ShouldBeTrue)
				convey.So(warmer.count("contest-0-0"), convey.ShouldEqual, 1)
			})
		})
	})
}
