package imagecache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/boringbin/courtcache/internal/imagecache"
	"github.com/boringbin/courtcache/internal/store"
)

// epoch is the fixed start time used by the mock clocks in these tests.
var epoch = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

func newMockClock() *clock.Mock {
	clk := clock.NewMock()
	clk.Set(epoch)
	return clk
}

// fakeDownloader serves "img:<url>" for every url and counts the calls.
type fakeDownloader struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	// gate, when set, blocks every download until it is closed.
	gate chan struct{}
}

func newFakeDownloader() *fakeDownloader {
	return &fakeDownloader{
		calls: make(map[string]int),
		fail:  make(map[string]error),
	}
}

func (d *fakeDownloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	d.mu.Lock()
	d.calls[url]++
	err := d.fail[url]
	gate := d.gate
	d.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}
	if err != nil {
		return nil, "", err
	}
	return []byte("img:" + url), "image/png", nil
}

func (d *fakeDownloader) count(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[url]
}

// newHandleStrategy builds a HandleStrategy on a memory store with a mock clock.
func newHandleStrategy(t *testing.T, s store.Store, d imagecache.Downloader, clk clock.Clock) *imagecache.HandleStrategy {
	t.Helper()

	strategy, err := imagecache.NewHandleStrategy(imagecache.Deps{
		Store:      s,
		Downloader: d,
		Clock:      clk,
	})
	require.NoError(t, err)
	return strategy
}

// recordingStrategy returns "src:<url>" and tracks how many calls overlap.
type recordingStrategy struct {
	mu       sync.Mutex
	seen     []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
}

func (s *recordingStrategy) GetCachedImage(context.Context, string) (string, bool) {
	return "", false
}

func (s *recordingStrategy) CacheImage(_ context.Context, url string) string {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		prev := s.maxSeen.Load()
		if n <= prev || s.maxSeen.CompareAndSwap(prev, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	s.seen = append(s.seen, url)
	s.mu.Unlock()
	return "src:" + url
}

func (s *recordingStrategy) ClearImageCache(context.Context) {}

func (s *recordingStrategy) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seen...)
}
