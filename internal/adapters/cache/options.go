package cache

import (
	"time"

	"github.com/okian/scoreboard/pkg/logger"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Option configures a ScoreboardCache.
type Option func(*ScoreboardCache)

// WithLogger sets the cache logger.
func WithLogger(l logger.Logger) Option {
	return func(c *ScoreboardCache) {
		if l != nil {
			c.logger = l
		}
	}
}
