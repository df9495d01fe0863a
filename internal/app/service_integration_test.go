package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreboard/internal/adapters/repository"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a started service with cache warming", t, func() {
		e := newEnv(
			service.WithWarmup(true),
			service.WithWorkerCount(2),
			service.WithQueueSize(16),
		)
		defer e.svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(e.svc.Start(ctx), ShouldBeNil)

		Convey("Then it reports the running workers", func() {
			stats := e.svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workerCount"], ShouldEqual, 2)
			So(stats["queueSize"], ShouldEqual, 16)
		})

		Convey("When a contest is invalidated", func() {
			_, err := e.store.AddRun(ctx, graded(0, "c1", "p2", "u1", 40, model.VerdictAccepted, 100))
			So(err, ShouldBeNil)
			So(e.svc.Invalidate(ctx, "c1"), ShouldBeNil)

			Convey("Then a worker refills the contestant view", func() {
				var snap *types.Snapshot
				So(waitFor(func() bool {
					var ok bool
					snap, ok = e.cache.Get(ctx, "c1", model.ContestantView)
					return ok
				}), ShouldBeTrue)

				alice, _ := snap.Row("alice")
				So(alice.Total.Points, ShouldEqual, 200.0)
				So(waitFor(func() bool { return e.svc.GetStats()["pendingWarms"] == int64(0) }), ShouldBeTrue)
			})

			Convey("Then the admin view is left for the next reader", func() {
				So(waitFor(func() bool {
					_, ok := e.cache.Get(ctx, "c1", model.ContestantView)
					return ok
				}), ShouldBeTrue)
				_, ok := e.cache.Get(ctx, "c1", model.AdminView)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When a contest is invalidated in a burst", func() {
			for i := 0; i < 20; i++ {
				So(e.svc.Invalidate(ctx, "c2"), ShouldBeNil)
			}

			Convey("Then the contest is warmed and nothing stays pending", func() {
				So(waitFor(func() bool {
					_, ok := e.cache.Get(ctx, "c2", model.ContestantView)
					return ok
				}), ShouldBeTrue)
				So(waitFor(func() bool { return e.svc.GetStats()["pendingWarms"] == int64(0) }), ShouldBeTrue)
			})
		})

		Convey("When the service is stopped", func() {
			e.svc.Stop()

			Convey("Then the warm workers are gone", func() {
				stats := e.svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats, ShouldNotContainKey, "queueLength")
			})
		})
	})
}

func TestServiceConcurrentStandings(t *testing.T) {
	Convey("Given many concurrent readers of a cold cache", t, func() {
		store, err := repository.NewMemoryStoreFromFixture(testFixture())
		So(err, ShouldBeNil)
		counting := &countingStore{MemoryStore: store}
		e := newEnv()
		svc := service.New(counting,
			service.WithCache(e.cache, "memory"),
			service.WithClock(e.clock.Now),
			service.WithWarmup(false),
		)

		const readers = 32
		results := make([]*types.Snapshot, readers)
		errs := make([]error, readers)
		var wg sync.WaitGroup
		for i := 0; i < readers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Standings(context.Background(), service.StandingsRequest{ContestID: "c1"})
			}(i)
		}
		wg.Wait()

		Convey("Then every reader gets the same ranking", func() {
			for i := 0; i < readers; i++ {
				So(errs[i], ShouldBeNil)
				So(usernames(results[i]), ShouldResemble, []string{"bob", "alice", "carol"})
			}
		})

		Convey("Then the contest is loaded at most once per reader", func() {
			So(counting.contestLoads.Load(), ShouldBeLessThanOrEqualTo, int64(readers))
			So(counting.contestLoads.Load(), ShouldBeGreaterThan, int64(0))
		})
	})
}

func TestServiceStaleWrite(t *testing.T) {
	Convey("Given a contest invalidated while its snapshot is computed", t, func() {
		ctx := context.Background()
		store, err := repository.NewMemoryStoreFromFixture(testFixture())
		So(err, ShouldBeNil)
		e := newEnv()

		hooked := &hookStore{MemoryStore: store}
		svc := service.New(hooked,
			service.WithCache(e.cache, "memory"),
			service.WithClock(e.clock.Now),
			service.WithWarmup(false),
		)
		var once sync.Once
		hooked.onListProblems = func() {
			once.Do(func() { _ = svc.Invalidate(ctx, "c1") })
		}

		snap, err := svc.Standings(ctx, service.StandingsRequest{ContestID: "c1"})

		Convey("Then the caller gets the snapshot but it is not cached", func() {
			So(err, ShouldBeNil)
			So(snap.Ranking, ShouldHaveLength, 3)
			_, ok := e.cache.Get(ctx, "c1", model.ContestantView)
			So(ok, ShouldBeFalse)
		})

		Convey("Then the next reader caches a fresh snapshot", func() {
			_, err := svc.Standings(ctx, service.StandingsRequest{ContestID: "c1"})
			So(err, ShouldBeNil)
			_, ok := e.cache.Get(ctx, "c1", model.ContestantView)
			So(ok, ShouldBeTrue)
		})
	})
}

func TestServiceAbandonedStandings(t *testing.T) {
	Convey("Given a reader that gives up while others wait on its computation", t, func() {
		store, err := repository.NewMemoryStoreFromFixture(testFixture())
		So(err, ShouldBeNil)
		blocking := newBlockingStore(store)
		e := newEnv()
		svc := service.New(blocking,
			service.WithCache(e.cache, "memory"),
			service.WithClock(e.clock.Now),
			service.WithWarmup(false),
		)

		type result struct {
			snap *types.Snapshot
			err  error
		}
		firstCtx, cancelFirst := context.WithCancel(context.Background())
		defer cancelFirst()
		first := make(chan result, 1)
		go func() {
			snap, err := svc.Standings(firstCtx, service.StandingsRequest{ContestID: "c1"})
			first <- result{snap, err}
		}()
		<-blocking.entered

		second := make(chan result, 1)
		go func() {
			snap, err := svc.Standings(context.Background(), service.StandingsRequest{ContestID: "c1"})
			second <- result{snap, err}
		}()
		time.Sleep(50 * time.Millisecond)

		cancelFirst()
		abandoned := <-first
		close(blocking.release)
		waited := <-second

		Convey("Then only the reader that gave up sees its cancellation", func() {
			So(errors.Is(abandoned.err, context.Canceled), ShouldBeTrue)
			So(abandoned.snap, ShouldBeNil)
		})

		Convey("Then the waiting reader gets the shared snapshot", func() {
			So(waited.err, ShouldBeNil)
			So(usernames(waited.snap), ShouldResemble, []string{"bob", "alice", "carol"})
			So(blocking.loads.Load(), ShouldEqual, int64(1))
		})

		Convey("Then the finished computation fills the cache", func() {
			So(waitFor(func() bool {
				_, ok := e.cache.Get(context.Background(), "c1", model.ContestantView)
				return ok
			}), ShouldBeTrue)
		})
	})
}

// blockingStore holds Contest until released and, like a database driver,
// fails when the caller's context ends first.
type blockingStore struct {
	*repository.MemoryStore
	loads   atomic.Int64
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newBlockingStore(s *repository.MemoryStore) *blockingStore {
	return &blockingStore{
		MemoryStore: s,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *blockingStore) Contest(ctx context.Context, contestID string) (*model.Contest, error) {
	s.loads.Add(1)
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, fmt.Errorf("contest: %w: %w", model.ErrDataAccess, ctx.Err())
	}
	return s.MemoryStore.Contest(ctx, contestID)
}

// countingStore counts contest loads.
type countingStore struct {
	*repository.MemoryStore
	contestLoads atomic.Int64
}

func (s *countingStore) Contest(ctx context.Context, contestID string) (*model.Contest, error) {
	s.contestLoads.Add(1)
	return s.MemoryStore.Contest(ctx, contestID)
}

// hookStore runs a callback in the middle of a computation.
type hookStore struct {
	*repository.MemoryStore
	onListProblems func()
}

func (s *hookStore) ListProblems(ctx context.Context, contestID string) ([]model.Problem, error) {
	if s.onListProblems != nil {
		s.onListProblems()
	}
	return s.MemoryStore.ListProblems(ctx, contestID)
}
