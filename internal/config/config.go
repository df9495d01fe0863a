// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config with defaults; Load layers file and env on top.
// - Struct tags carry both the koanf key and validator rules.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// Backend names.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr" validate:"required"`

	// Store selects the run store: memory (fixture backed) or postgres.
	Store string `koanf:"store" validate:"oneof=memory postgres"`
	// FixturePath is a YAML fixture loaded into the memory store.
	FixturePath string `koanf:"fixture_path"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL      string `koanf:"database_url" validate:"required_if=Store postgres"`
	DatabaseMaxConns int    `koanf:"database_max_conns" validate:"gte=0"`
	// DatabaseMigrate creates the schema on startup.
	DatabaseMigrate bool `koanf:"database_migrate"`

	// CacheBackend selects where snapshots are cached: memory or redis.
	CacheBackend  string `koanf:"cache_backend" validate:"oneof=memory redis"`
	RedisHost     string `koanf:"redis_host" validate:"required_if=CacheBackend redis"`
	RedisPort     int    `koanf:"redis_port" validate:"gte=1,lte=65535"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0,lte=15"`

	// ContestantCacheTTLMS and AdminCacheTTLMS bound snapshot freshness while
	// a contest runs. Finished contests are cached until invalidated.
	ContestantCacheTTLMS int `koanf:"contestant_cache_ttl_ms" validate:"gte=0"`
	AdminCacheTTLMS      int `koanf:"admin_cache_ttl_ms" validate:"gte=0"`

	// AggregationConcurrency caps participants aggregated in parallel.
	AggregationConcurrency int `koanf:"aggregation_concurrency" validate:"gte=1"`
	// ComputeTimeoutMS bounds one shared standings computation.
	ComputeTimeoutMS int `koanf:"compute_timeout_ms" validate:"gte=0"`

	// WarmupEnabled recomputes the contestant view after each invalidation.
	WarmupEnabled bool `koanf:"warmup_enabled"`
	// WarmQueueSize bounds pending warm jobs.
	WarmQueueSize int `koanf:"queue_size" validate:"gte=0"`
	// WarmWorkerCount sets the number of warm workers.
	WarmWorkerCount int `koanf:"worker_count" validate:"gte=0"`
	// DedupeSize bounds the set of contests with a pending warm job.
	DedupeSize int `koanf:"dedupe_size"`

	// GraderURL is the base URL of the judging detail API. Empty disables
	// run detail enrichment. GraderRateLimit caps detail requests per
	// second; zero leaves them unthrottled.
	GraderURL       string  `koanf:"grader_url" validate:"omitempty,url"`
	GraderRateLimit float64 `koanf:"grader_rate_limit" validate:"gte=0"`
	GraderBurst     int     `koanf:"grader_burst" validate:"gte=0"`
	GraderTimeoutMS int     `koanf:"grader_timeout_ms" validate:"gte=0"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		Store:                  BackendMemory,
		DatabaseMaxConns:       10,
		CacheBackend:           BackendMemory,
		RedisHost:              "localhost",
		RedisPort:              6379,
		ContestantCacheTTLMS:   10_000,
		AdminCacheTTLMS:        2_000,
		AggregationConcurrency: runtime.NumCPU(),
		ComputeTimeoutMS:       30_000,
		WarmupEnabled:          true,
		WarmQueueSize:          1_024,
		WarmWorkerCount:        2,
		DedupeSize:             10_000,
		GraderTimeoutMS:        5_000,
	}
}

// ContestantCacheTTL returns the contestant snapshot TTL.
func (c *Config) ContestantCacheTTL() time.Duration {
	return time.Duration(c.ContestantCacheTTLMS) * time.Millisecond
}

// AdminCacheTTL returns the admin snapshot TTL.
func (c *Config) AdminCacheTTL() time.Duration {
	return time.Duration(c.AdminCacheTTLMS) * time.Millisecond
}

// ComputeTimeout returns the bound of a shared standings computation.
func (c *Config) ComputeTimeout() time.Duration {
	return time.Duration(c.ComputeTimeoutMS) * time.Millisecond
}

// GraderTimeout returns the HTTP timeout for grader calls.
func (c *Config) GraderTimeout() time.Duration {
	return time.Duration(c.GraderTimeoutMS) * time.Millisecond
}

// RedisAddr returns the Redis address in host:port form.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
