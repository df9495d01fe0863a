package service

import (
	"time"

	"github.com/okian/scoreboard/internal/adapters/cache"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithCache sets the snapshot cache and the backend name reported by stats.
func WithCache(c *cache.ScoreboardCache, backend string) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
			s.cacheBackend = backend
		}
	}
}

// WithDetailFetcher enables run detail enrichment.
func WithDetailFetcher(d scoring.DetailFetcher) Option {
	return func(s *Service) {
		s.details = d
	}
}

// WithCacheTTL sets the snapshot TTL of each view while a contest is
// running. Zero keeps snapshots until the contest is invalidated.
func WithCacheTTL(contestant, admin time.Duration) Option {
	return func(s *Service) {
		if contestant >= 0 {
			s.contestantTTL = contestant
		}
		if admin >= 0 {
			s.adminTTL = admin
		}
	}
}

// WithConcurrency bounds how many participant rows are aggregated at once.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithWarmup enables or disables recomputing the contestant view after an
// invalidation.
func WithWarmup(enabled bool) Option {
	return func(s *Service) {
		s.warmup = enabled
	}
}

// WithWorkerCount sets the number of warm workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the warm queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds how many pending warm jobs are tracked.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithComputeTimeout bounds a shared standings computation, which no longer
// follows any single caller's context.
func WithComputeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.computeTimeout = d
		}
	}
}

// WithClock overrides the clock used for visibility and cache TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
