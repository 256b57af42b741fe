package cache_test

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boringbin/courtcache/internal/cache"
	"github.com/boringbin/courtcache/internal/store"
)

// TestNew_InvalidWindow tests that a cache cannot be built without a window.
func TestNew_InvalidWindow(t *testing.T) {
	t.Parallel()

	for _, window := range []time.Duration{0, -time.Minute} {
		_, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{Window: window})
		require.ErrorIs(t, err, cache.ErrInvalidWindow)
	}
}

// TestCache_Defaults tests that optional options fall back to working defaults.
func TestCache_Defaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{Window: cache.APIWindow})
	require.NoError(t, err)
	assert.Equal(t, cache.APIWindow, c.Window())

	c.Set(ctx, "k", "v")
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

// TestCache_RoundTrip tests that a value read back within the window is unchanged.
func TestCache_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c, err := cache.New[map[string]any](store.NewMemoryStore(), cache.Options[map[string]any]{
		Window: cache.APIWindow,
		Clock:  newMockClock(),
	})
	require.NoError(t, err)

	value := map[string]any{"leagues": []any{"a", "b"}, "count": float64(2)}
	c.Set(ctx, "/getUserLeagues", value)

	got, ok := c.Get(ctx, "/getUserLeagues")
	require.True(t, ok)
	assert.Equal(t, value, got)
}

// TestCache_GetBeforeSet tests that an unknown key is absent.
func TestCache_GetBeforeSet(t *testing.T) {
	t.Parallel()

	c, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{Window: cache.APIWindow})
	require.NoError(t, err)

	got, ok := c.Get(context.Background(), "never-set")
	assert.False(t, ok)
	assert.Empty(t, got)
}

// TestCache_ExpiryBoundary tests the edges of the freshness window.
func TestCache_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{name: "immediately", elapsed: 0, wantHit: true},
		{name: "one millisecond inside window", elapsed: cache.APIWindow - time.Millisecond, wantHit: true},
		{name: "exactly at window", elapsed: cache.APIWindow, wantHit: false},
		{name: "past window", elapsed: cache.APIWindow + time.Hour, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			clk := newMockClock()
			c, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{
				Window: cache.APIWindow,
				Clock:  clk,
			})
			require.NoError(t, err)

			c.Set(ctx, "k", "v")
			clk.Add(tt.elapsed)

			got, ok := c.Get(ctx, "k")
			assert.Equal(t, tt.wantHit, ok)
			if tt.wantHit {
				assert.Equal(t, "v", got)
			}
		})
	}
}

// TestCache_ExpiredEntryIsNotDeleted tests that expiry is lazy.
func TestCache_ExpiredEntryIsNotDeleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newMockClock()
	s := newFaultyStore()
	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute, Clock: clk})
	require.NoError(t, err)

	c.Set(ctx, "k", "v")
	clk.Add(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.True(t, s.has("k"), "stale entry should stay in the store")
	assert.Zero(t, s.removeCalls())

	// The next Set overwrites the stale entry
	c.Set(ctx, "k", "v2")
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

// TestCache_StoredAtUsesClock tests that the write time comes from the injected clock.
func TestCache_StoredAtUsesClock(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemoryStore()
	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute, Clock: newMockClock()})
	require.NoError(t, err)

	c.Set(ctx, "k", "v")

	raw, err := s.GetItem(ctx, "k")
	require.NoError(t, err)
	entry, err := cache.Decode[string](raw)
	require.NoError(t, err)
	assert.Equal(t, epoch.UnixMilli(), entry.StoredAt)
}

// TestCache_CorruptEntry tests that a malformed stored string reads as a miss.
func TestCache_CorruptEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemoryStore()
	require.NoError(t, s.SetItem(ctx, "k", "{not valid json"))

	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
	require.NoError(t, err)

	var (
		got string
		ok  bool
	)
	require.NotPanics(t, func() { got, ok = c.Get(ctx, "k") })
	assert.False(t, ok)
	assert.Empty(t, got)
}

// TestCache_LegacyExpiredImageEntry tests an eight-day-old entry written by the original app.
func TestCache_LegacyExpiredImageEntry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := store.NewMemoryStore()
	eightDaysAgo := epoch.Add(-8 * 24 * time.Hour).UnixMilli()
	require.Equal(t, int64(691_200_000), epoch.UnixMilli()-eightDaysAgo)

	key := "image_cache_https://example.com/image.jpg"
	legacy := `{"url":"blob:abc","timestamp":` + strconv.FormatInt(eightDaysAgo, 10) + `}`
	require.NoError(t, s.SetItem(ctx, key, legacy))

	c, err := cache.New[string](s, cache.Options[string]{Window: cache.ImageWindow, Clock: newMockClock()})
	require.NoError(t, err)

	_, ok := c.Get(ctx, key)
	assert.False(t, ok)
}

// TestCache_StoreFailures tests that store errors never surface to the caller.
func TestCache_StoreFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFaultyStore()
	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
	require.NoError(t, err)

	c.Set(ctx, "k", "v")

	t.Run("read failure is a miss", func(t *testing.T) {
		s.mu.Lock()
		s.getErr = errors.New("disk on fire")
		s.mu.Unlock()
		t.Cleanup(func() {
			s.mu.Lock()
			s.getErr = nil
			s.mu.Unlock()
		})

		_, ok := c.Get(ctx, "k")
		assert.False(t, ok)
	})

	t.Run("write failure is dropped", func(t *testing.T) {
		s.mu.Lock()
		s.setErr = errors.New("disk full")
		s.mu.Unlock()
		t.Cleanup(func() {
			s.mu.Lock()
			s.setErr = nil
			s.mu.Unlock()
		})

		require.NotPanics(t, func() { c.Set(ctx, "other", "v") })
		_, ok := c.Get(ctx, "other")
		assert.False(t, ok)
	})

	t.Run("closed store", func(t *testing.T) {
		closed := store.NewMemoryStore()
		require.NoError(t, closed.Close())
		cc, newErr := cache.New[string](closed, cache.Options[string]{Window: time.Minute})
		require.NoError(t, newErr)

		cc.Set(ctx, "k", "v")
		_, ok := cc.Get(ctx, "k")
		assert.False(t, ok)
		cc.ClearAll(ctx, "")
	})
}

// TestCache_ClearAll tests prefix-scoped bulk removal.
func TestCache_ClearAll(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFaultyStore()
	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
	require.NoError(t, err)

	c.Set(ctx, "image_cache_a", "a")
	c.Set(ctx, "image_cache_b", "b")
	c.Set(ctx, "/getUserLeagues", "leagues")

	c.ClearAll(ctx, "image_cache_")

	assert.Equal(t, 1, s.removeCalls())
	assert.ElementsMatch(t, []string{"image_cache_a", "image_cache_b"}, s.removed)
	assert.False(t, s.has("image_cache_a"))
	assert.False(t, s.has("image_cache_b"))
	assert.True(t, s.has("/getUserLeagues"))
}

// TestCache_ClearAll_NoMatches tests that nothing is removed when no key matches.
func TestCache_ClearAll_NoMatches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFaultyStore()
	c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
	require.NoError(t, err)

	c.ClearAll(ctx, "image_cache_")
	assert.Zero(t, s.removeCalls())

	c.Set(ctx, "/getUserLeagues", "leagues")
	c.ClearAll(ctx, "image_cache_")
	assert.Zero(t, s.removeCalls())
}

// TestCache_ClearAll_Failures tests that listing and removal errors are swallowed.
func TestCache_ClearAll_Failures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("list failure", func(t *testing.T) {
		t.Parallel()

		s := newFaultyStore()
		s.listErr = errors.New("cannot list")
		c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
		require.NoError(t, err)

		require.NotPanics(t, func() { c.ClearAll(ctx, "") })
		assert.Zero(t, s.removeCalls())
	})

	t.Run("remove failure", func(t *testing.T) {
		t.Parallel()

		s := newFaultyStore()
		s.removeErr = errors.New("cannot remove")
		c, err := cache.New[string](s, cache.Options[string]{Window: time.Minute})
		require.NoError(t, err)

		c.Set(ctx, "image_cache_a", "a")
		require.NotPanics(t, func() { c.ClearAll(ctx, "image_cache_") })
		assert.Equal(t, 1, s.removeCalls())
	})
}

// releaseRecorder records released handles and fails for selected ones.
type releaseRecorder struct {
	mu       sync.Mutex
	released []string
	failFor  map[string]bool
}

func (r *releaseRecorder) release(_ context.Context, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released = append(r.released, handle)
	if r.failFor[handle] {
		return errors.New("release failed")
	}
	return nil
}

func (r *releaseRecorder) handles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.released...)
}

func isBlob(v string) bool { return strings.HasPrefix(v, "blob:") }

// TestCache_ClearAll_ReleasesHandles tests handle release during bulk removal.
func TestCache_ClearAll_ReleasesHandles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFaultyStore()
	rec := &releaseRecorder{failFor: map[string]bool{"blob:1": true}}
	c, err := cache.New[string](s, cache.Options[string]{
		Window:   time.Minute,
		Release:  rec.release,
		IsHandle: isBlob,
	})
	require.NoError(t, err)

	c.Set(ctx, "image_cache_1", "blob:1")
	c.Set(ctx, "image_cache_2", "blob:2")
	c.Set(ctx, "image_cache_3", "https://example.com/remote.png")
	require.NoError(t, s.MemoryStore.SetItem(ctx, "image_cache_4", "corrupt"))

	c.ClearAll(ctx, "image_cache_")

	assert.ElementsMatch(t, []string{"blob:1", "blob:2"}, rec.handles())
	assert.ElementsMatch(t,
		[]string{"image_cache_1", "image_cache_2", "image_cache_3", "image_cache_4"},
		s.removed)
	assert.Equal(t, 1, s.removeCalls())
}

// TestCache_ClearAll_ReleasesStaleHandles tests that expired entries still release their handle.
func TestCache_ClearAll_ReleasesStaleHandles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clk := newMockClock()
	rec := &releaseRecorder{}
	c, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{
		Window:   time.Minute,
		Clock:    clk,
		Release:  rec.release,
		IsHandle: isBlob,
	})
	require.NoError(t, err)

	c.Set(ctx, "image_cache_1", "blob:1")
	clk.Add(time.Hour)
	c.ClearAll(ctx, "image_cache_")

	assert.Equal(t, []string{"blob:1"}, rec.handles())
}

// TestCache_Set_ReleasesReplacedHandle tests that overwriting an entry frees its old handle.
func TestCache_Set_ReleasesReplacedHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	rec := &releaseRecorder{}
	c, err := cache.New[string](store.NewMemoryStore(), cache.Options[string]{
		Window:   time.Minute,
		Release:  rec.release,
		IsHandle: isBlob,
	})
	require.NoError(t, err)

	c.Set(ctx, "k", "blob:old")
	assert.Empty(t, rec.handles(), "first write has nothing to release")

	c.Set(ctx, "k", "blob:old")
	assert.Empty(t, rec.handles(), "rewriting the same handle must not release it")

	c.Set(ctx, "k", "blob:new")
	assert.Equal(t, []string{"blob:old"}, rec.handles())

	c.Set(ctx, "k", "https://example.com/a.png")
	assert.Equal(t, []string{"blob:old", "blob:new"}, rec.handles())

	c.Set(ctx, "k", "blob:newest")
	assert.Equal(t, []string{"blob:old", "blob:new"}, rec.handles(), "remote URLs are never released")
}

// TestCache_TrySet_FailedWriteKeepsPriorHandle tests that a failed write neither
// releases the stored handle nor replaces its entry.
func TestCache_TrySet_FailedWriteKeepsPriorHandle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newFaultyStore()
	rec := &releaseRecorder{}
	c, err := cache.New[string](s, cache.Options[string]{
		Window:   time.Minute,
		Release:  rec.release,
		IsHandle: isBlob,
	})
	require.NoError(t, err)

	require.NoError(t, c.TrySet(ctx, "k", "blob:old"))

	s.mu.Lock()
	s.setErr = errors.New("disk full")
	s.mu.Unlock()

	require.Error(t, c.TrySet(ctx, "k", "blob:new"))
	c.Set(ctx, "k", "blob:newer")
	assert.Empty(t, rec.handles(), "the stored handle must survive a failed write")

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "blob:old", got)

	s.mu.Lock()
	s.setErr = nil
	s.mu.Unlock()

	require.NoError(t, c.TrySet(ctx, "k", "blob:new"))
	assert.Equal(t, []string{"blob:old"}, rec.handles())
}
