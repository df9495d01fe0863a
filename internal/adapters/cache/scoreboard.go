package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/types"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

const keyPrefix = "scoreboard:"

// Key returns the cache key of a contest's snapshot for view.
func Key(contestID string, view model.View) string {
	return keyPrefix + view.String() + ":" + contestID
}

// Generation identifies the invalidation epoch of a contest. A snapshot
// computed under one generation is never written once a later one exists.
type Generation uint64

// ScoreboardCache keeps contestant and admin snapshots per contest.
type ScoreboardCache struct {
	store Store

	// mu orders writes against invalidations: Set holds it shared across the
	// generation check and the write, Invalidate holds it exclusively.
	mu   sync.RWMutex
	gens map[string]Generation

	logger logger.Logger
}

// NewScoreboardCache creates a cache over store.
func NewScoreboardCache(store Store, opts ...Option) *ScoreboardCache {
	c := &ScoreboardCache{
		store:  store,
		gens:   make(map[string]Generation),
		logger: logger.Get().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generation returns the contest's current generation. Capture it before
// computing a snapshot and pass it to SetIfCurrent.
func (c *ScoreboardCache) Generation(contestID string) Generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gens[contestID]
}

// Get returns the cached snapshot. Store and decode failures count as misses.
func (c *ScoreboardCache) Get(ctx context.Context, contestID string, view model.View) (*types.Snapshot, bool) {
	data, err := c.store.Get(ctx, Key(contestID, view))
	if errors.Is(err, ErrCacheMiss) {
		metrics.RecordCacheLookup(view.String(), metrics.CacheMiss)
		return nil, false
	}
	if err != nil {
		metrics.RecordCacheLookup(view.String(), metrics.CacheGetError)
		c.logger.Warn(ctx, "cache get failed",
			logger.String("contest", contestID),
			logger.String("view", view.String()),
			logger.Error(err),
		)
		return nil, false
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		metrics.RecordCacheLookup(view.String(), metrics.CacheGetError)
		c.logger.Warn(ctx, "cached snapshot undecodable",
			logger.String("contest", contestID),
			logger.Error(err),
		)
		return nil, false
	}
	metrics.RecordCacheLookup(view.String(), metrics.CacheHit)
	return &snap, true
}

// Set stores snap under the contest's current generation.
func (c *ScoreboardCache) Set(ctx context.Context, contestID string, view model.View, snap *types.Snapshot, ttl time.Duration) {
	c.SetIfCurrent(ctx, c.Generation(contestID), contestID, view, snap, ttl)
}

// SetIfCurrent stores snap unless the contest was invalidated after gen was
// captured. Write failures are logged and swallowed. Returns whether the
// snapshot was written.
func (c *ScoreboardCache) SetIfCurrent(ctx context.Context, gen Generation, contestID string, view model.View, snap *types.Snapshot, ttl time.Duration) bool {
	data, err := json.Marshal(snap)
	if err != nil {
		metrics.RecordCacheSetError(view.String())
		c.logger.Error(ctx, "snapshot encode failed", logger.String("contest", contestID), logger.Error(err))
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gens[contestID] != gen {
		metrics.RecordCacheStaleSkip()
		c.logger.Debug(ctx, "stale snapshot skipped",
			logger.String("contest", contestID),
			logger.String("view", view.String()),
		)
		return false
	}

	if err := c.store.Set(ctx, Key(contestID, view), data, ttl); err != nil {
		metrics.RecordCacheSetError(view.String())
		c.logger.Warn(ctx, "cache set failed",
			logger.String("contest", contestID),
			logger.String("view", view.String()),
			logger.Error(err),
		)
		return false
	}
	metrics.RecordCacheSet(view.String())
	return true
}

// Invalidate drops both views of the contest and advances its generation.
func (c *ScoreboardCache) Invalidate(ctx context.Context, contestID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gens[contestID]++
	metrics.RecordCacheInvalidation()

	err := c.store.Delete(ctx, Key(contestID, model.ContestantView), Key(contestID, model.AdminView))
	if err != nil {
		c.logger.Warn(ctx, "cache invalidate failed", logger.String("contest", contestID), logger.Error(err))
	}
	return err
}

// Close closes the underlying store.
func (c *ScoreboardCache) Close() error {
	return c.store.Close()
}
