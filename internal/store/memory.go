package store

import (
	"context"
	"sync"
)

// MemoryStore is a Store that keeps items in an in-memory map.
// Nothing survives the process; it backs the CLI and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]string),
	}
}

// GetItem retrieves a value from the store.
// Returns ErrNotFound if the key is not present.
func (s *MemoryStore) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}

	value, ok := s.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// SetItem stores a value, overwriting any previous one.
func (s *MemoryStore) SetItem(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.items[key] = value
	return nil
}

// GetAllKeys returns all keys in the store.
func (s *MemoryStore) GetAllKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	return keys, nil
}

// MultiRemove deletes keys. Missing keys are ignored (matches map delete behavior).
func (s *MemoryStore) MultiRemove(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for _, k := range keys {
		delete(s.items, k)
	}
	return nil
}

// Close closes the store and releases the map.
// This method is idempotent - calling Close multiple times is safe.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed, idempotent
	}

	s.closed = true
	s.items = nil
	return nil
}
