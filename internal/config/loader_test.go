package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/scoreboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.ContestantCacheTTLMS, convey.ShouldEqual, 10_000)
				convey.So(cfg.AdminCacheTTLMS, convey.ShouldEqual, 2_000)
				convey.So(cfg.WarmWorkerCount, convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCOREBOARD_ADDR", ":8080")
			_ = os.Setenv("SCOREBOARD_QUEUE_SIZE", "64")
			_ = os.Setenv("SCOREBOARD_WORKER_COUNT", "8")
			_ = os.Setenv("SCOREBOARD_CONTESTANT_CACHE_TTL_MS", "500")
			_ = os.Setenv("SCOREBOARD_WARMUP_ENABLED", "false")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WarmQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WarmWorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.ContestantCacheTTLMS, convey.ShouldEqual, 500)
				convey.So(cfg.WarmupEnabled, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
store: postgres
database_url: "postgres://scoreboard@localhost:5432/scoreboard"
cache_backend: redis
redis_host: cache.internal
redis_port: 6380
grader_url: "http://grader.internal:8000"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCOREBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Store, convey.ShouldEqual, config.BackendPostgres)
				convey.So(cfg.DatabaseURL, convey.ShouldStartWith, "postgres://")
				convey.So(cfg.RedisAddr(), convey.ShouldEqual, "cache.internal:6380")
				convey.So(cfg.GraderURL, convey.ShouldEqual, "http://grader.internal:8000")
				convey.So(cfg.AdminCacheTTLMS, convey.ShouldEqual, 2_000) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCOREBOARD_CONFIG", tmpFile)
			_ = os.Setenv("SCOREBOARD_ADDR", ":8080")
			_ = os.Setenv("SCOREBOARD_WORKER_COUNT", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")      // Overridden by env
				convey.So(cfg.WarmQueueSize, convey.ShouldEqual, 300) // From file
				convey.So(cfg.WarmWorkerCount, convey.ShouldEqual, 6) // Overridden by env
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCOREBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SCOREBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SCOREBOARD_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SCOREBOARD_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation rules", t, func() {
		ctx := context.Background()

		convey.Convey("When postgres is selected without a database url", func() {
			_ = os.Setenv("SCOREBOARD_STORE", "postgres")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the missing field is reported", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "DatabaseURL")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When an unknown cache backend is selected", func() {
			_ = os.Setenv("SCOREBOARD_CACHE_BACKEND", "memcached")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation fails on oneof", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "CacheBackend failed oneof")
			})
		})

		convey.Convey("When the grader url is not a url", func() {
			cfg := config.New()
			cfg.GraderURL = "not a url"

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(config.Validate(cfg), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When cache ttl is negative", func() {
			cfg := config.New()
			cfg.AdminCacheTTLMS = -1

			convey.Convey("Then validation fails", func() {
				convey.So(config.Validate(cfg), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When aggregation concurrency is zero", func() {
			cfg := config.New()
			cfg.AggregationConcurrency = 0

			convey.Convey("Then validation fails", func() {
				convey.So(config.Validate(cfg), convey.ShouldNotBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SCOREBOARD_CONFIG",
		"SCOREBOARD_ADDR",
		"SCOREBOARD_STORE",
		"SCOREBOARD_CACHE_BACKEND",
		"SCOREBOARD_QUEUE_SIZE",
		"SCOREBOARD_WORKER_COUNT",
		"SCOREBOARD_CONTESTANT_CACHE_TTL_MS",
		"SCOREBOARD_WARMUP_ENABLED",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "scoreboard-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
