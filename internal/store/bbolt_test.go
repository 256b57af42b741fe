package store_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"go.etcd.io/bbolt"

	"github.com/boringbin/courtcache/internal/store"
)

// TestBboltStore_Interface tests that BboltStore implements the Store interface.
func TestBboltStore_Interface(t *testing.T) {
	t.Parallel()

	db := createTempBboltDB(t)
	s, err := store.NewBboltStore(db)
	if err != nil {
		t.Fatalf("NewBboltStore() error = %v", err)
	}
	defer func() {
		if closeErr := s.Close(); closeErr != nil {
			t.Errorf("Close() error = %v", closeErr)
		}
	}()

	var _ store.Store = s
}

// TestBboltStore_Contract runs the shared Store contract against BboltStore.
func TestBboltStore_Contract(t *testing.T) {
	t.Parallel()

	db := createTempBboltDB(t)
	s, err := store.NewBboltStore(db)
	if err != nil {
		t.Fatalf("NewBboltStore() error = %v", err)
	}

	runStoreContract(t, s)
}

// TestBboltStore_EmptyKey tests that bbolt rejects an empty key.
func TestBboltStore_EmptyKey(t *testing.T) {
	t.Parallel()

	db := createTempBboltDB(t)
	s, err := store.NewBboltStore(db)
	if err != nil {
		t.Fatalf("NewBboltStore() error = %v", err)
	}
	defer s.Close()

	// Set with empty key should fail (bbolt requirement)
	if setErr := s.SetItem(context.Background(), "", "some-value"); setErr == nil {
		t.Error("SetItem() with empty key error = nil, want error")
	}
}

// TestBboltStore_Persistence tests that items survive reopening the database.
func TestBboltStore_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test-persist.db")

	// First store instance
	db1, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open() error = %v", err)
	}
	s1, err := store.NewBboltStore(db1)
	if err != nil {
		t.Fatalf("NewBboltStore() error = %v", err)
	}
	if setErr := s1.SetItem(ctx, "image_cache_a", `{"value":"a","timestamp":1}`); setErr != nil {
		t.Fatalf("SetItem() error = %v", setErr)
	}
	if setErr := s1.SetItem(ctx, "/getUserLeagues", `{"value":{},"timestamp":1}`); setErr != nil {
		t.Fatalf("SetItem() error = %v", setErr)
	}
	if closeErr := s1.Close(); closeErr != nil {
		t.Fatalf("Close() error = %v", closeErr)
	}

	// Second store instance with same file
	db2, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open() second time error = %v", err)
	}
	s2, err := store.NewBboltStore(db2)
	if err != nil {
		t.Fatalf("NewBboltStore() second time error = %v", err)
	}
	defer s2.Close()

	got, err := s2.GetItem(ctx, "image_cache_a")
	if err != nil {
		t.Fatalf("GetItem() from second instance error = %v", err)
	}
	if got != `{"value":"a","timestamp":1}` {
		t.Errorf("GetItem() from second instance = %v", got)
	}

	keys, err := s2.GetAllKeys(ctx)
	if err != nil {
		t.Fatalf("GetAllKeys() error = %v", err)
	}
	// bbolt iterates in byte order
	want := []string{"/getUserLeagues", "image_cache_a"}
	if !slices.Equal(keys, want) {
		t.Errorf("GetAllKeys() = %v, want %v", keys, want)
	}
}

// createTempBboltDB creates a temporary bbolt database for testing.
func createTempBboltDB(t *testing.T) *bbolt.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		t.Fatalf("bbolt.Open() error = %v", err)
	}

	// Clean up on test completion
	t.Cleanup(func() {
		if closeErr := db.Close(); closeErr != nil {
			// Only log, don't fail, as test may have already closed it
			t.Logf("Cleanup: db.Close() error = %v", closeErr)
		}
		if removeErr := os.Remove(dbPath); removeErr != nil && !os.IsNotExist(removeErr) {
			t.Logf("Cleanup: os.Remove() error = %v", removeErr)
		}
	})

	return db
}
