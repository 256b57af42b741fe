// Package provider fetches data from remote services, reading through an expiring cache.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/boringbin/courtcache/internal/cache"
)

var (
	// ErrNotFound is returned when the remote service has no such resource.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidResponse is returned when the API response is invalid.
	ErrInvalidResponse = errors.New("invalid API response")
	// ErrHTTPStatus is returned when the remote service answers with a non-2xx status.
	ErrHTTPStatus = errors.New("unexpected HTTP status")
)

// FetchFunc retrieves a value from the remote service.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// GetOptions are the options for getting a value through the cache.
type GetOptions[T any] struct {
	// Key is the cache key for the value.
	Key string
	// Fetch retrieves the value on a cache miss. Required.
	Fetch FetchFunc[T]
	// Cache is the cache to read through. If nil, every call fetches.
	Cache *cache.Cache[T]
	// SkipCache bypasses the cache entirely: no lookup and no write-back.
	SkipCache bool
	// Logger receives fetch failures. If nil, they are discarded.
	Logger *slog.Logger
}

// Get returns the cached value for opts.Key if it is fresh, and otherwise
// fetches it, stores it in the cache and returns it.
//
// Only fetch failures are returned; the cache itself never fails a call.
// Failures are not retried.
func Get[T any](ctx context.Context, opts GetOptions[T]) (T, error) {
	useCache := opts.Cache != nil && !opts.SkipCache

	// If we have a cache, try to get the value from it
	if useCache {
		if value, ok := opts.Cache.Get(ctx, opts.Key); ok {
			return value, nil
		}
	}

	// If we don't have a cache, or the value is not in the cache, get it from the service
	value, err := opts.Fetch(ctx)
	if err != nil {
		logger := opts.Logger
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		logger.ErrorContext(ctx, "failed to fetch remote value", "key", opts.Key, "error", err)

		var zero T
		return zero, fmt.Errorf("failed to fetch %s: %w", opts.Key, err)
	}

	if useCache {
		opts.Cache.Set(ctx, opts.Key, value)
	}

	return value, nil
}
