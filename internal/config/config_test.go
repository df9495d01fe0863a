package config_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.CacheBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.AggregationConcurrency, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.WarmupEnabled, convey.ShouldBeTrue)
			convey.So(cfg.WarmQueueSize, convey.ShouldEqual, 1_024)
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000)
		})

		convey.Convey("Then grader detail fetches are unthrottled", func() {
			convey.So(cfg.GraderRateLimit, convey.ShouldEqual, 0.0)
			convey.So(cfg.GraderBurst, convey.ShouldEqual, 0)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(config.Validate(cfg), convey.ShouldBeNil)
		})

		convey.Convey("Then durations are derived from milliseconds", func() {
			convey.So(cfg.ContestantCacheTTL(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.AdminCacheTTL(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.GraderTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.ComputeTimeout(), convey.ShouldEqual, 30*time.Second)
			convey.So(cfg.RedisAddr(), convey.ShouldEqual, "localhost:6379")
		})
	})
}
