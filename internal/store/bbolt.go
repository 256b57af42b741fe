package store

import (
	"context"
	"errors"
	"sync"

	"go.etcd.io/bbolt"
)

const (
	// bucketName is the name of the bbolt bucket holding every item.
	bucketName = "courtcache"
)

// errBucketNotFound is returned when the bucket vanished from under an open store.
var errBucketNotFound = errors.New("bucket not found")

// BboltStore is a Store backed by bbolt (embedded key-value store).
type BboltStore struct {
	db     *bbolt.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*BboltStore)(nil)

// NewBboltStore creates a new BboltStore on an open database.
// The store takes ownership of db and closes it on Close.
func NewBboltStore(db *bbolt.DB) (*BboltStore, error) {
	// Create bucket if it doesn't exist
	err := db.Update(func(tx *bbolt.Tx) error {
		_, createErr := tx.CreateBucketIfNotExists([]byte(bucketName))
		return createErr
	})
	if err != nil {
		return nil, err
	}

	return &BboltStore{
		db: db,
	}, nil
}

// GetItem retrieves a value from the store.
// Returns ErrNotFound if the key is not present.
func (s *BboltStore) GetItem(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrClosed
	}

	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketNotFound
		}
		data := b.Get([]byte(key))
		if data == nil {
			return ErrNotFound
		}
		// data is only valid for the life of the transaction
		value = string(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetItem stores a value, overwriting any previous one.
func (s *BboltStore) SetItem(_ context.Context, key string, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketNotFound
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// GetAllKeys returns all keys in the bucket in byte-sorted order.
func (s *BboltStore) GetAllKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return errBucketNotFound
		}
		return b.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// MultiRemove deletes keys in a single write transaction.
// Deleting a non-existent key is not an error.
func (s *BboltStore) MultiRemove(_ context.Context, keys []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrClosed
	}
	if len(keys) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b == nil {
			return nil // Nothing to delete
		}
		for _, key := range keys {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the store and the underlying database.
// This method is idempotent - calling Close multiple times is safe.
func (s *BboltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil // Already closed, idempotent
	}

	s.closed = true
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
