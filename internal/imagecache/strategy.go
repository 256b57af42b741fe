// Package imagecache caches remote images for display.
//
// Two strategies share one interface. HandleStrategy downloads each image once
// and hands out an in-process handle for the bytes; URLStrategy, for clients
// that cache images themselves, only remembers that a URL was requested. The
// strategy is chosen once, when the application is composed, with New.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/boringbin/courtcache/internal/cache"
	"github.com/boringbin/courtcache/internal/store"
)

// KeyPrefix prefixes the cache key of every image entry.
const KeyPrefix = "image_cache_"

// Platform names the environment the image cache serves.
type Platform string

const (
	// PlatformWeb serves clients that display images from local handles.
	PlatformWeb Platform = "web"
	// PlatformNative serves clients that cache images by URL themselves.
	PlatformNative Platform = "native"
)

// ErrUnknownPlatform is returned by New for a platform it has no strategy for.
var ErrUnknownPlatform = errors.New("unknown image cache platform")

// ImageCacheStrategy is the image cache used by API clients and handlers.
//
//nolint:revive // The stutter matches how callers refer to it.
type ImageCacheStrategy interface {
	// GetCachedImage returns the display source for url if a fresh entry exists.
	GetCachedImage(ctx context.Context, url string) (string, bool)
	// CacheImage returns a display source for url, caching it on a miss.
	// It never fails; on any error the url itself is returned.
	CacheImage(ctx context.Context, url string) string
	// ClearImageCache removes every image entry and releases their resources.
	ClearImageCache(ctx context.Context)
}

// Sweeper is implemented by strategies whose stale entries can be removed eagerly.
type Sweeper interface {
	// Sweep removes stale image entries and returns how many were removed.
	Sweep(ctx context.Context) int
	// RunJanitor sweeps every interval until ctx is done.
	RunJanitor(ctx context.Context, interval time.Duration)
}

// Downloader fetches the bytes of a remote image.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// Deps are the collaborators of a strategy.
type Deps struct {
	// Store holds the image entries. Required.
	Store store.Store
	// Downloader fetches images. Required for PlatformWeb.
	Downloader Downloader
	// Registry holds downloaded bytes. If nil, PlatformWeb creates one.
	Registry *Registry
	// Window is the freshness window. If 0, defaults to cache.ImageWindow.
	Window time.Duration
	// Clock is passed to the underlying cache. May be nil.
	Clock clock.Clock
	// Logger is the logger to use for logging.
	//
	// If nil, a no-op logger will be used.
	Logger *slog.Logger
}

// New returns the strategy for platform.
func New(platform Platform, deps Deps) (ImageCacheStrategy, error) {
	switch platform {
	case PlatformWeb:
		return NewHandleStrategy(deps)
	case PlatformNative:
		return NewURLStrategy(deps)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}
}

// ParsePlatform converts a configuration value into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(s); p {
	case PlatformWeb, PlatformNative:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
	}
}

// key returns the cache key for url.
func key(url string) string {
	return KeyPrefix + url
}

// withDefaults fills in the optional fields of deps.
func (d Deps) withDefaults() Deps {
	if d.Window == 0 {
		d.Window = cache.ImageWindow
	}
	// Use provided logger or create a no-op logger
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}
