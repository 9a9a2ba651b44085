// Package cache fronts expensive list reads with a Redis key-value cache and
// owns the pattern-based bulk eviction issued after writes. The cache is a
// disposable derivative of the store: losing an entry costs freshness, never
// correctness.
package cache

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// DefaultTTL matches the listing-read expiry used across the handlers.
	DefaultTTL = 30 * time.Minute

	// DefaultOpTimeout keeps cache calls from stalling request handling.
	DefaultOpTimeout = 500 * time.Millisecond

	// scanChunk bounds how many keys a single SCAN iteration inspects, so
	// invalidation never loads the whole key-space at once.
	scanChunk = 100
)

// Cache wraps a Redis client with the get/set/invalidate protocol used by the
// read and write paths.
type Cache struct {
	client  rueidis.Client
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Cache. A non-positive timeout falls back to DefaultOpTimeout.
func New(client rueidis.Client, timeout time.Duration, logger *zap.Logger) *Cache {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &Cache{
		client:  client,
		timeout: timeout,
		logger:  logger.Named("cache"),
	}
}

// Key builds the deterministic cache key for a read operation from its
// resource class and full parameter set. url.Values encodes in sorted key
// order, so equivalent parameter sets always reduce to the same key.
func Key(resource string, params url.Values) string {
	if len(params) == 0 {
		return resource
	}
	return resource + ":" + params.Encode()
}

// Get returns the cached value for key. Any backend failure degrades to a
// miss: a read must never fail because the cache is down.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", false
		}
		c.logger.Warn("cache get failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

// Set stores value under key. A non-positive ttl stores without expiry.
// Failures surface to the caller; populating the cache is best-effort for
// reads but the caller decides.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = c.client.B().Set().Key(key).Value(value).Ex(ttl).Build()
	} else {
		cmd = c.client.B().Set().Key(key).Value(value).Build()
	}
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}

// Invalidate deletes every currently-stored key matching pattern (Redis glob,
// e.g. "posts:*"). It walks the key-space with cursor-based SCAN in bounded
// chunks until the cursor signals completion; keys inserted during the walk
// may survive, which is acceptable. Calling it again with no intervening
// writes is a no-op.
func (c *Cache) Invalidate(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		entry, err := c.scan(ctx, cursor, pattern)
		if err != nil {
			return fmt.Errorf("cache scan %q: %w", pattern, err)
		}

		if len(entry.Elements) > 0 {
			if err := c.del(ctx, entry.Elements); err != nil {
				return fmt.Errorf("cache invalidate %q: %w", pattern, err)
			}
		}

		cursor = entry.Cursor
		if cursor == 0 {
			return nil
		}
	}
}

func (c *Cache) scan(ctx context.Context, cursor uint64, pattern string) (rueidis.ScanEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := c.client.B().Scan().Cursor(cursor).Match(pattern).Count(scanChunk).Build()
	return c.client.Do(ctx, cmd).AsScanEntry()
}

func (c *Cache) del(ctx context.Context, keys []string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).Error()
}
