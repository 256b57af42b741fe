package cache

import (
	"context"
	"errors"
	"time"

	"github.com/boringbin/courtcache/internal/store"
)

// Sweep removes the entries under prefix that are expired or cannot be decoded,
// releasing their resources like ClearAll. It returns the number of entries
// removed, which is 0 when the removal itself fails.
func (c *Cache[T]) Sweep(ctx context.Context, prefix string) int {
	keys, ok := c.matchingKeys(ctx, prefix)
	if !ok {
		return 0
	}

	var stale []string
	for _, key := range keys {
		raw, err := c.store.GetItem(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			continue // Removed concurrently
		}
		if err != nil {
			c.logger.ErrorContext(ctx, "failed to read cache entry", "key", key, "error", err)
			continue
		}

		entry, err := Decode[T](raw)
		if err != nil {
			stale = append(stale, key)
			continue
		}
		if !c.expired(entry) {
			continue
		}
		if c.release != nil {
			c.releaseValue(ctx, key, entry.Value)
		}
		stale = append(stale, key)
	}

	if len(stale) == 0 {
		return 0
	}
	if err := c.store.MultiRemove(ctx, stale); err != nil {
		c.logger.ErrorContext(ctx, "failed to remove stale cache entries", "prefix", prefix, "error", err)
		return 0
	}
	return len(stale)
}

// RunJanitor sweeps prefix every interval until ctx is done.
// It returns immediately when interval is not positive.
func (c *Cache[T]) RunJanitor(ctx context.Context, prefix string, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := c.clock.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(ctx, prefix); removed > 0 {
				c.logger.InfoContext(ctx, "swept stale cache entries", "prefix", prefix, "count", removed)
			}
		}
	}
}
