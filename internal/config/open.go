package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/boringbin/courtcache/internal/store"
)

const (
	// dbFileMode is the file mode for the bbolt database file.
	dbFileMode = 0o600
	// dbDirMode is the file mode for a created database directory.
	dbDirMode = 0o750
)

// Open opens the configured store. The caller owns the result and must Close it.
func (c StoreConfig) Open(ctx context.Context) (store.Store, error) {
	switch c.Backend {
	case BackendMemory:
		return store.NewMemoryStore(), nil
	case BackendRedis:
		s, err := store.NewRedisStore(ctx, store.RedisOptions{
			URL:       c.RedisURL,
			Namespace: c.RedisNamespace,
		})
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return s, nil
	case BackendBbolt:
		if err := os.MkdirAll(filepath.Dir(c.Path), dbDirMode); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err := bbolt.Open(c.Path, dbFileMode, nil)
		if err != nil {
			return nil, fmt.Errorf("open bbolt database %s: %w", c.Path, err)
		}
		s, err := store.NewBboltStore(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize bbolt store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown store.backend %q", ErrInvalid, c.Backend)
	}
}
