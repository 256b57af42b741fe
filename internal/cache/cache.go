// Package cache implements a best-effort expiring cache over a durable store.
//
// Entries are checked for freshness lazily on read; nothing is evicted in the
// background unless a janitor is started explicitly. Failures of the store or
// of the stored data never reach the caller: a read degrades to a miss and a
// write is dropped, with the failure logged.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/boringbin/courtcache/internal/store"
)

const (
	// APIWindow is the freshness window for remote API responses.
	APIWindow = 5 * time.Minute
	// ImageWindow is the freshness window for downloaded images.
	ImageWindow = 7 * 24 * time.Hour
)

// ErrInvalidWindow is returned by New when the freshness window is not positive.
var ErrInvalidWindow = errors.New("freshness window must be positive")

// ReleaseFunc releases the local resource held by a cached value.
type ReleaseFunc[T any] func(ctx context.Context, value T) error

// Options are the options for New.
type Options[T any] struct {
	// Window is how long an entry stays fresh. Required.
	Window time.Duration
	// Clock supplies the current time for writes and freshness checks.
	// If nil, defaults to the wall clock.
	Clock clock.Clock
	// Logger receives cache failures. If nil, they are discarded.
	Logger *slog.Logger
	// Release is called for values that hold a local resource when their entry
	// is cleared, swept or replaced. May be nil.
	Release ReleaseFunc[T]
	// IsHandle reports whether a value holds a local resource.
	// If nil while Release is set, every value is released.
	IsHandle func(value T) bool
}

// Cache is an expiring cache of values of type T.
// It is safe for concurrent use; concurrent writes to one key are last-write-wins.
type Cache[T any] struct {
	store    store.Store
	window   time.Duration
	clock    clock.Clock
	logger   *slog.Logger
	release  ReleaseFunc[T]
	isHandle func(T) bool
}

// New creates a new Cache on top of s.
func New[T any](s store.Store, opts Options[T]) (*Cache[T], error) {
	if opts.Window <= 0 {
		return nil, ErrInvalidWindow
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	// Use provided logger or create a no-op logger
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	isHandle := opts.IsHandle
	if isHandle == nil {
		isHandle = func(T) bool { return true }
	}

	return &Cache[T]{
		store:    s,
		window:   opts.Window,
		clock:    clk,
		logger:   logger,
		release:  opts.Release,
		isHandle: isHandle,
	}, nil
}

// Window returns the freshness window of the cache.
func (c *Cache[T]) Window() time.Duration {
	return c.window
}

// Get returns the value stored under key if it is present and fresh.
//
// Missing, stale and unreadable entries all report false. Stale entries are
// left in the store; the next Set overwrites them.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	entry, ok := c.read(ctx, key)
	if !ok {
		return zero, false
	}
	if c.expired(entry) {
		c.logger.DebugContext(ctx, "cache entry expired", "key", key, "stored_at", entry.StoredAt)
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under key with the current time, replacing any prior entry.
// Failures are logged and dropped.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) {
	_ = c.TrySet(ctx, key, value)
}

// TrySet is Set for callers that must know whether the entry was written.
//
// The handle held by the replaced entry is released only after the new entry
// is stored, so a failed write leaves the prior entry usable. Failures are
// logged and returned.
func (c *Cache[T]) TrySet(ctx context.Context, key string, value T) error {
	raw, err := Encode(Entry[T]{Value: value, StoredAt: c.now()})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode cache entry", "key", key, "error", err)
		return err
	}

	var (
		prior    Entry[T]
		hasPrior bool
	)
	if c.release != nil {
		prior, hasPrior = c.read(ctx, key)
	}

	if setErr := c.store.SetItem(ctx, key, raw); setErr != nil {
		c.logger.ErrorContext(ctx, "failed to write cache entry", "key", key, "error", setErr)
		return setErr
	}

	if hasPrior && !sameValue(prior.Value, value) {
		c.releaseValue(ctx, key, prior.Value)
	}
	return nil
}

// ClearAll removes every entry whose key starts with prefix.
//
// When a Release hook is configured, each matching entry that holds a local
// resource is released first; a failure on one entry is logged and the rest
// are still processed. The removal is a single MultiRemove and is skipped
// when nothing matches. ClearAll never fails.
func (c *Cache[T]) ClearAll(ctx context.Context, prefix string) {
	keys, ok := c.matchingKeys(ctx, prefix)
	if !ok {
		return
	}
	if len(keys) == 0 {
		c.logger.DebugContext(ctx, "no cache entries to clear", "prefix", prefix)
		return
	}

	if c.release != nil {
		for _, key := range keys {
			if entry, readOK := c.read(ctx, key); readOK {
				c.releaseValue(ctx, key, entry.Value)
			}
		}
	}

	if err := c.store.MultiRemove(ctx, keys); err != nil {
		c.logger.ErrorContext(ctx, "failed to remove cache entries", "prefix", prefix, "count", len(keys), "error", err)
		return
	}
	c.logger.DebugContext(ctx, "cleared cache entries", "prefix", prefix, "count", len(keys))
}

// now returns the current time in Unix milliseconds.
func (c *Cache[T]) now() int64 {
	return c.clock.Now().UnixMilli()
}

// expired reports whether entry is outside the freshness window.
func (c *Cache[T]) expired(entry Entry[T]) bool {
	return c.now()-entry.StoredAt >= c.window.Milliseconds()
}

// read loads and decodes the entry under key, logging any failure.
func (c *Cache[T]) read(ctx context.Context, key string) (Entry[T], bool) {
	raw, err := c.store.GetItem(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return Entry[T]{}, false
	}
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to read cache entry", "key", key, "error", err)
		return Entry[T]{}, false
	}

	entry, err := Decode[T](raw)
	if err != nil {
		c.logger.WarnContext(ctx, "ignoring corrupt cache entry", "key", key, "error", err)
		return Entry[T]{}, false
	}
	return entry, true
}

// matchingKeys lists the store keys starting with prefix.
func (c *Cache[T]) matchingKeys(ctx context.Context, prefix string) ([]string, bool) {
	all, err := c.store.GetAllKeys(ctx)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to list cache keys", "prefix", prefix, "error", err)
		return nil, false
	}

	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, true
}

// releaseValue calls the Release hook for handle values, logging failures.
func (c *Cache[T]) releaseValue(ctx context.Context, key string, value T) {
	if !c.isHandle(value) {
		return
	}
	if err := c.release(ctx, value); err != nil {
		c.logger.WarnContext(ctx, "failed to release cached resource", "key", key, "error", err)
	}
}

// sameValue compares two values by their JSON encoding.
func sameValue[T any](a, b T) bool {
	ea, errA := json.Marshal(a)
	eb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}
