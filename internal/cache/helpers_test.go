package cache_test

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/boringbin/courtcache/internal/store"
)

// epoch is the fixed start time used by the mock clocks in these tests.
var epoch = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

// newMockClock returns a mock clock set to epoch.
func newMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(epoch)
	return clk
}

// faultyStore wraps a MemoryStore and can be told to fail individual operations.
type faultyStore struct {
	*store.MemoryStore

	mu               sync.Mutex
	getErr           error
	setErr           error
	listErr          error
	removeErr        error
	multiRemoveCalls int
	removed          []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{MemoryStore: store.NewMemoryStore()}
}

func (s *faultyStore) GetItem(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.MemoryStore.GetItem(ctx, key)
}

func (s *faultyStore) SetItem(ctx context.Context, key, value string) error {
	s.mu.Lock()
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.SetItem(ctx, key, value)
}

func (s *faultyStore) GetAllKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	err := s.listErr
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return s.MemoryStore.GetAllKeys(ctx)
}

func (s *faultyStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.Lock()
	s.multiRemoveCalls++
	s.removed = append(s.removed, keys...)
	err := s.removeErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.MultiRemove(ctx, keys)
}

func (s *faultyStore) removeCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.multiRemoveCalls
}

// has reports whether key is physically present in the underlying store.
func (s *faultyStore) has(key string) bool {
	_, err := s.MemoryStore.GetItem(context.Background(), key)
	return err == nil
}
