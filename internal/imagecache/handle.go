package imagecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/boringbin/courtcache/internal/cache"
)

// errNoDownloader is returned by NewHandleStrategy without a Downloader.
var errNoDownloader = errors.New("handle strategy requires a downloader")

// HandleStrategy downloads images and caches a Registry handle for each one.
type HandleStrategy struct {
	cache      *cache.Cache[string]
	registry   *Registry
	downloader Downloader
	logger     *slog.Logger
	group      singleflight.Group
}

// Compile-time interface checks.
var (
	_ ImageCacheStrategy = (*HandleStrategy)(nil)
	_ Sweeper            = (*HandleStrategy)(nil)
)

// NewHandleStrategy creates a HandleStrategy.
func NewHandleStrategy(deps Deps) (*HandleStrategy, error) {
	deps = deps.withDefaults()
	if deps.Downloader == nil {
		return nil, errNoDownloader
	}

	registry := deps.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	c, err := cache.New(deps.Store, cache.Options[string]{
		Window: deps.Window,
		Clock:  deps.Clock,
		Logger: deps.Logger,
		Release: func(_ context.Context, handle string) error {
			return registry.Release(handle)
		},
		IsHandle: IsHandle,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}

	return &HandleStrategy{
		cache:      c,
		registry:   registry,
		downloader: deps.Downloader,
		logger:     deps.Logger,
	}, nil
}

// Registry returns the registry holding the downloaded bytes.
func (s *HandleStrategy) Registry() *Registry {
	return s.registry
}

// GetCachedImage returns the cached handle for url.
//
// A handle the registry no longer holds, for example one stored before the
// process restarted, is reported as a miss.
func (s *HandleStrategy) GetCachedImage(ctx context.Context, url string) (string, bool) {
	source, ok := s.cache.Get(ctx, key(url))
	if !ok {
		return "", false
	}
	if IsHandle(source) && !s.registry.Has(source) {
		s.logger.DebugContext(ctx, "cached image handle is gone", "url", url, "handle", source)
		return "", false
	}
	return source, true
}

// CacheImage returns a handle for url, downloading the image on a miss.
// Concurrent calls for the same url share one download. Any failure returns url.
func (s *HandleStrategy) CacheImage(ctx context.Context, url string) string {
	if source, ok := s.GetCachedImage(ctx, url); ok {
		return source
	}

	v, err, _ := s.group.Do(url, func() (any, error) {
		// Another caller may have finished the download in the meantime
		if source, ok := s.GetCachedImage(ctx, url); ok {
			return source, nil
		}

		data, contentType, err := s.downloader.Download(ctx, url)
		if err != nil {
			return "", err
		}

		handle := s.registry.Create(data, contentType)
		if setErr := s.cache.TrySet(ctx, key(url), handle); setErr != nil {
			// An unstored handle has no owner to release it later
			_ = s.registry.Release(handle)
			return "", fmt.Errorf("store image entry: %w", setErr)
		}
		s.logger.DebugContext(ctx, "cached image", "url", url, "handle", handle, "bytes", len(data))
		return handle, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to cache image", "url", url, "error", err)
		return url
	}
	source, _ := v.(string)
	return source
}

// ClearImageCache removes every image entry and releases its handle.
func (s *HandleStrategy) ClearImageCache(ctx context.Context) {
	s.cache.ClearAll(ctx, KeyPrefix)
}

// Sweep removes stale image entries and releases their handles.
func (s *HandleStrategy) Sweep(ctx context.Context) int {
	return s.cache.Sweep(ctx, KeyPrefix)
}

// RunJanitor sweeps stale image entries every interval until ctx is done.
func (s *HandleStrategy) RunJanitor(ctx context.Context, interval time.Duration) {
	s.cache.RunJanitor(ctx, KeyPrefix, interval)
}
