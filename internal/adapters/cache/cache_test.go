package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
)

func init() {
	_ = logger.Init()
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, ...string) error {
	return errors.New("connection refused")
}

func (failingStore) Close() error { return nil }

func sampleSnapshot(contestID string) *types.Snapshot {
	return &types.Snapshot{
		ContestID:    contestID,
		ProblemCount: 1,
		Ranking: []types.StandingsRow{
			{
				Username: "alice",
				Name:     "Alice",
				Problems: map[string]types.ScoreEntry{"A": {Points: 100, Penalty: 15}},
				Total:    types.Total{Points: 100, Penalty: 15},
				Place:    1,
			},
		},
	}
}

func TestKey(t *testing.T) {
	convey.Convey("Given contest keys", t, func() {
		convey.So(Key("42", model.ContestantView), convey.ShouldEqual, "scoreboard:contestant:42")
		convey.So(Key("42", model.AdminView), convey.ShouldEqual, "scoreboard:admin:42")
	})
}

func TestMemoryStore(t *testing.T) {
	convey.Convey("Given a memory store with a controllable clock", t, func() {
		ctx := context.Background()
		clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
		s := NewMemoryStore(WithClock(clock.Now))

		convey.Convey("When a value is set with a ttl", func() {
			convey.So(s.Set(ctx, "k", []byte("v"), time.Second), convey.ShouldBeNil)

			convey.Convey("Then it is readable until it expires", func() {
				v, err := s.Get(ctx, "k")
				convey.So(err, convey.ShouldBeNil)
				convey.So(string(v), convey.ShouldEqual, "v")

				clock.Advance(time.Second)
				_, err = s.Get(ctx, "k")
				convey.So(errors.Is(err, ErrCacheMiss), convey.ShouldBeTrue)
				convey.So(s.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When a value is set with a zero ttl", func() {
			convey.So(s.Set(ctx, "k", []byte("v"), 0), convey.ShouldBeNil)
			clock.Advance(365 * 24 * time.Hour)

			convey.Convey("Then it never expires", func() {
				_, err := s.Get(ctx, "k")
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When keys are deleted", func() {
			_ = s.Set(ctx, "a", []byte("1"), 0)
			_ = s.Set(ctx, "b", []byte("2"), 0)
			convey.So(s.Delete(ctx, "a", "b", "missing"), convey.ShouldBeNil)

			convey.Convey("Then they are gone", func() {
				convey.So(s.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the store is closed", func() {
			_ = s.Close()
			_, err := s.Get(ctx, "k")

			convey.Convey("Then operations fail", func() {
				convey.So(errors.Is(err, ErrCacheClosed), convey.ShouldBeTrue)
				convey.So(s.Set(ctx, "k", nil, 0), convey.ShouldNotBeNil)
			})
		})
	})
}

func TestScoreboardCache(t *testing.T) {
	convey.Convey("Given a scoreboard cache over a memory store", t, func() {
		ctx := context.Background()
		c := NewScoreboardCache(NewMemoryStore())

		convey.Convey("When nothing is cached", func() {
			_, ok := c.Get(ctx, "c1", model.ContestantView)

			convey.Convey("Then it is a miss", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When a snapshot is set for one view", func() {
			c.Set(ctx, "c1", model.ContestantView, sampleSnapshot("c1"), 0)

			convey.Convey("Then that view hits and the other misses", func() {
				snap, ok := c.Get(ctx, "c1", model.ContestantView)
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(snap, convey.ShouldResemble, sampleSnapshot("c1"))

				_, ok = c.Get(ctx, "c1", model.AdminView)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the contest is invalidated", func() {
			c.Set(ctx, "c1", model.ContestantView, sampleSnapshot("c1"), 0)
			c.Set(ctx, "c1", model.AdminView, sampleSnapshot("c1"), 0)
			c.Set(ctx, "c2", model.AdminView, sampleSnapshot("c2"), 0)
			convey.So(c.Invalidate(ctx, "c1"), convey.ShouldBeNil)

			convey.Convey("Then both of its views are dropped and other contests kept", func() {
				_, ok := c.Get(ctx, "c1", model.ContestantView)
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = c.Get(ctx, "c1", model.AdminView)
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = c.Get(ctx, "c2", model.AdminView)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a snapshot computed before an invalidation is written", func() {
			gen := c.Generation("c1")
			_ = c.Invalidate(ctx, "c1")
			written := c.SetIfCurrent(ctx, gen, "c1", model.ContestantView, sampleSnapshot("c1"), 0)

			convey.Convey("Then the stale snapshot is skipped", func() {
				convey.So(written, convey.ShouldBeFalse)
				_, ok := c.Get(ctx, "c1", model.ContestantView)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the generation is current", func() {
			gen := c.Generation("c1")
			written := c.SetIfCurrent(ctx, gen, "c1", model.ContestantView, sampleSnapshot("c1"), 0)

			convey.Convey("Then the snapshot is written", func() {
				convey.So(written, convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a scoreboard cache over a failing store", t, func() {
		ctx := context.Background()
		c := NewScoreboardCache(failingStore{})

		convey.Convey("Then get errors are misses and set errors are swallowed", func() {
			_, ok := c.Get(ctx, "c1", model.AdminView)
			convey.So(ok, convey.ShouldBeFalse)
			convey.So(func() { c.Set(ctx, "c1", model.AdminView, sampleSnapshot("c1"), 0) }, convey.ShouldNotPanic)
			convey.So(c.Invalidate(ctx, "c1"), convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given a store holding garbage under a snapshot key", t, func() {
		ctx := context.Background()
		store := NewMemoryStore()
		_ = store.Set(ctx, Key("c1", model.AdminView), []byte("{not json"), 0)
		c := NewScoreboardCache(store)

		convey.Convey("Then the entry is treated as a miss", func() {
			_, ok := c.Get(ctx, "c1", model.AdminView)
			convey.So(ok, convey.ShouldBeFalse)
		})
	})
}

// Runs against a real Redis only when SCOREBOARD_TEST_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("SCOREBOARD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SCOREBOARD_TEST_REDIS_ADDR not set")
	}

	convey.Convey("Given a Redis store", t, func() {
		ctx := context.Background()
		cfg := DefaultRedisConfig()
		cfg.Addr = addr
		s, err := NewRedisStore(ctx, cfg)
		convey.So(err, convey.ShouldBeNil)
		defer func() { _ = s.Close() }()

		c := NewScoreboardCache(s)
		_ = c.Invalidate(ctx, "redis-test")

		convey.Convey("Then snapshots round trip and invalidate", func() {
			c.Set(ctx, "redis-test", model.AdminView, sampleSnapshot("redis-test"), time.Minute)
			snap, ok := c.Get(ctx, "redis-test", model.AdminView)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(snap.Ranking[0].Username, convey.ShouldEqual, "alice")

			convey.So(c.Invalidate(ctx, "redis-test"), convey.ShouldBeNil)
			_, ok = c.Get(ctx, "redis-test", model.AdminView)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then a missing key is a cache miss", func() {
			_, err := s.Get(ctx, "scoreboard:none:missing")
			convey.So(errors.Is(err, ErrCacheMiss), convey.ShouldBeTrue)
		})
	})
}
