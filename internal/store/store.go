// Package store provides the durable key-value backends the cache is layered on.
//
// A Store only persists strings. Freshness, encoding and handle lifecycles are
// the concern of the cache package.
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by GetItem when a key has no value.
	// Check it with errors.Is().
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store is the interface that each durable key-value backend must implement.
type Store interface {
	// GetItem returns the value stored under key.
	// Returns ErrNotFound if the key does not exist.
	// Returns ErrClosed if the store has been closed.
	GetItem(ctx context.Context, key string) (string, error)

	// SetItem stores value under key, replacing any previous value.
	// Returns ErrClosed if the store has been closed.
	SetItem(ctx context.Context, key string, value string) error

	// GetAllKeys returns every key currently held by the store, in no particular order.
	// Returns ErrClosed if the store has been closed.
	GetAllKeys(ctx context.Context) ([]string, error)

	// MultiRemove deletes all of keys.
	// Keys that do not exist are ignored.
	// Returns ErrClosed if the store has been closed.
	MultiRemove(ctx context.Context, keys []string) error

	// Close releases any associated resources.
	// This method is idempotent - calling Close multiple times is safe.
	// After Close is called, all other operations will return ErrClosed.
	Close() error
}
