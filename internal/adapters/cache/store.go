// Package cache stores computed scoreboard snapshots.
//
// Snapshots are cached per contest and view. Lookups that fail for any reason
// are treated as misses so callers always fall back to recomputing.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned when the requested key is not cached.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheClosed is returned by a store after Close.
	ErrCacheClosed = errors.New("cache: store closed")
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	// Get returns ErrCacheMiss when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl keeps the value until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes keys; missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
