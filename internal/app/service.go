// Package service provides the scoreboard engine behind the HTTP API: it
// computes, caches, and warms contest standings and replays score events.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/okian/scoreboard/internal/adapters/cache"
	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	"github.com/okian/scoreboard/internal/adapters/mq/worker"
	"github.com/okian/scoreboard/internal/adapters/repository"
	"github.com/okian/scoreboard/internal/domain/dedupe"
	"github.com/okian/scoreboard/internal/domain/scoring"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const tracerName = "github.com/okian/scoreboard/internal/app"

// Service implements the API dependencies for the scoreboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	cache      *cache.ScoreboardCache
	details    scoring.DetailFetcher
	aggregator *scoring.Aggregator
	flight     singleflight.Group

	// Cache warming
	deduper    dedupe.Deduper
	warmQueue  *queue.InMemoryQueue
	workerPool *worker.Pool

	// Configuration
	contestantTTL  time.Duration
	adminTTL       time.Duration
	computeTimeout time.Duration
	concurrency    int
	warmup         bool
	workerCount    int
	queueSize      int
	dedupeSize     int
	cacheBackend   string
	now            func() time.Time

	// State
	started bool

	logger logger.Logger
	tracer trace.Tracer
}

// New constructs a Service over store. Without WithCache snapshots are kept
// in process memory.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		contestantTTL:  10 * time.Second,
		adminTTL:       2 * time.Second,
		computeTimeout: 30 * time.Second,
		concurrency:    runtime.NumCPU(),
		warmup:         true,
		workerCount:    2,
		queueSize:      1024,
		dedupeSize:     10_000,
		cacheBackend:   "memory",
		now:            time.Now,
		logger:         logger.Get().Named("service"),
		tracer:         otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cache == nil {
		s.cache = cache.NewScoreboardCache(cache.NewMemoryStore(), cache.WithLogger(s.logger))
	}
	s.aggregator = scoring.NewAggregator(store,
		scoring.WithDetailFetcher(s.details),
		scoring.WithLogger(s.logger.Named("aggregator")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))

	return s
}

// Start launches the cache warming workers. It is a no-op when warming is
// disabled or the service is already running.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.warmup {
		s.warmQueue = queue.NewInMemoryQueue(
			queue.WithCapacity(s.queueSize),
			queue.WithBufferSize(s.queueSize),
		)
		s.workerPool = worker.NewPool(s.workerCount, s.warmQueue, s)
		s.workerPool.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Bool("warmup", s.warmup),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("concurrency", s.concurrency),
		logger.String("cache", s.cacheBackend),
	)
	return nil
}

// Stop drains the warm workers and closes the cache and the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoreboard service...")

	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown failed", logger.Error(err))
		}
		s.workerPool = nil
		s.warmQueue = nil
	}

	if err := s.cache.Close(); err != nil {
		s.logger.Warn(ctx, "cache close failed", logger.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn(ctx, "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":                s.started,
		"cacheBackend":           s.cacheBackend,
		"contestantCacheTTLMs":   s.contestantTTL.Milliseconds(),
		"adminCacheTTLMs":        s.adminTTL.Milliseconds(),
		"aggregationConcurrency": s.concurrency,
		"warmupEnabled":          s.warmup,
		"pendingWarms":           s.deduper.Size(),
	}

	if s.workerPool != nil {
		queueLen := s.warmQueue.Len(context.Background())
		stats["workerCount"] = s.workerPool.Size()
		stats["queueSize"] = s.warmQueue.Capacity()
		stats["queueLength"] = queueLen
		stats["warmsProcessed"] = s.workerPool.Processed()

		metrics.UpdateQueueSize(queueLen, s.warmQueue.Capacity())
	}

	return stats
}
