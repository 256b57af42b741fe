package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	// scanBatchSize is the COUNT hint passed to SCAN while listing keys.
	scanBatchSize = 500
)

// RedisStore is a Store backed by a Redis server.
//
// Every key is stored under Namespace so several applications can share one
// database; GetAllKeys only reports keys inside the namespace, with the
// namespace stripped.
type RedisStore struct {
	client    *redis.Client
	namespace string
	mu        sync.RWMutex
	closed    bool
}

var _ Store = (*RedisStore)(nil)

// RedisOptions are the options for NewRedisStore.
type RedisOptions struct {
	// URL is the redis:// connection URL.
	URL string
	// Namespace is prepended to every key. May be empty.
	Namespace string
}

// NewRedisStore connects to Redis and verifies the connection with PING.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	options, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(options)
	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	return NewRedisStoreFromClient(client, opts.Namespace), nil
}

// NewRedisStoreFromClient wraps an existing client. The store takes ownership
// of the client and closes it on Close.
func NewRedisStoreFromClient(client *redis.Client, namespace string) *RedisStore {
	return &RedisStore{
		client:    client,
		namespace: namespace,
	}
}

// GetItem retrieves a value from Redis.
// Returns ErrNotFound if the key is not present.
func (s *RedisStore) GetItem(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}

	value, err := s.client.Get(ctx, s.namespace+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetItem stores a value without a Redis-side expiry; freshness is decided by the cache.
func (s *RedisStore) SetItem(ctx context.Context, key string, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return s.client.Set(ctx, s.namespace+key, value, 0).Err()
}

// GetAllKeys lists the namespace with SCAN so large databases are not blocked.
func (s *RedisStore) GetAllKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var keys []string
	iter := s.client.Scan(ctx, 0, escapeGlob(s.namespace)+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), s.namespace))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// MultiRemove deletes keys with a single DEL.
func (s *RedisStore) MultiRemove(ctx context.Context, keys []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	namespaced := make([]string, len(keys))
	for i, k := range keys {
		namespaced[i] = s.namespace + k
	}
	return s.client.Del(ctx, namespaced...).Err()
}

// Close closes the Redis client.
// This method is idempotent - calling Close multiple times is safe.
func (s *RedisStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.client.Close()
}

// escapeGlob escapes the characters SCAN MATCH treats specially.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
