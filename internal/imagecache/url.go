package imagecache

import (
	"context"
	"fmt"
	"time"

	"github.com/boringbin/courtcache/internal/cache"
)

// URLStrategy caches the remote URL itself. The client is expected to keep
// the image bytes in its own HTTP cache, so nothing is downloaded here.
type URLStrategy struct {
	cache *cache.Cache[string]
}

// Compile-time interface checks.
var (
	_ ImageCacheStrategy = (*URLStrategy)(nil)
	_ Sweeper            = (*URLStrategy)(nil)
)

// NewURLStrategy creates a URLStrategy. Only Store, Window, Clock and Logger
// of deps are used.
func NewURLStrategy(deps Deps) (*URLStrategy, error) {
	deps = deps.withDefaults()

	c, err := cache.New[string](deps.Store, cache.Options[string]{
		Window: deps.Window,
		Clock:  deps.Clock,
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	return &URLStrategy{cache: c}, nil
}

// GetCachedImage returns url if it was cached within the window.
func (s *URLStrategy) GetCachedImage(ctx context.Context, url string) (string, bool) {
	return s.cache.Get(ctx, key(url))
}

// CacheImage records url and returns it.
func (s *URLStrategy) CacheImage(ctx context.Context, url string) string {
	if source, ok := s.cache.Get(ctx, key(url)); ok {
		return source
	}
	s.cache.Set(ctx, key(url), url)
	return url
}

// ClearImageCache removes every image entry.
func (s *URLStrategy) ClearImageCache(ctx context.Context) {
	s.cache.ClearAll(ctx, KeyPrefix)
}

// Sweep removes stale image entries.
func (s *URLStrategy) Sweep(ctx context.Context) int {
	return s.cache.Sweep(ctx, KeyPrefix)
}

// RunJanitor sweeps stale image entries every interval until ctx is done.
func (s *URLStrategy) RunJanitor(ctx context.Context, interval time.Duration) {
	s.cache.RunJanitor(ctx, KeyPrefix, interval)
}
