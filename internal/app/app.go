// Package app assembles the caches and API clients described by a Config.
//
// Both binaries build their object graph here, so the daemon and the CLI share
// one store layout and one set of cache keys.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/boringbin/courtcache/internal/cache"
	"github.com/boringbin/courtcache/internal/config"
	"github.com/boringbin/courtcache/internal/fantasy"
	"github.com/boringbin/courtcache/internal/imagecache"
	"github.com/boringbin/courtcache/internal/nba"
	"github.com/boringbin/courtcache/internal/provider"
	"github.com/boringbin/courtcache/internal/store"
)

// APIKeyPrefix is shared by every cached API response key.
const APIKeyPrefix = "/"

// App is the assembled object graph. Close releases the store.
type App struct {
	Store    store.Store
	Images   imagecache.ImageCacheStrategy
	Registry *imagecache.Registry
	Fantasy  *fantasy.Client
	NBA      *nba.Client

	api    *cache.Cache[json.RawMessage]
	logger *slog.Logger
}

// Options are the options for New.
type Options struct {
	// HTTPClient is used by every outbound request. May be nil.
	HTTPClient *http.Client
	// Clock drives every cache. If nil, defaults to the wall clock.
	Clock clock.Clock
	// Logger is the logger to use for logging.
	//
	// If nil, a no-op logger will be used.
	Logger *slog.Logger
}

// New opens the configured store and builds the image strategy and API
// clients on top of it. cfg must already be valid.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	// Use provided logger or create a no-op logger
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	platform, err := imagecache.ParsePlatform(cfg.Images.Platform)
	if err != nil {
		return nil, err
	}

	s, err := cfg.Store.Open(ctx)
	if err != nil {
		return nil, err
	}

	a, err := build(cfg, platform, s, opts, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg *config.Config, platform imagecache.Platform, s store.Store, opts Options, logger *slog.Logger) (*App, error) {
	var registry *imagecache.Registry
	if platform == imagecache.PlatformWeb {
		registry = imagecache.NewRegistry()
	}

	images, err := imagecache.New(platform, imagecache.Deps{
		Store:      s,
		Downloader: provider.NewClient(provider.ClientOptions{Client: opts.HTTPClient}),
		Registry:   registry,
		Window:     cfg.Cache.ImageWindow,
		Clock:      opts.Clock,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}

	fantasyClient, err := fantasy.New(fantasy.Options{
		BaseURL:    cfg.Fantasy.BaseURL,
		HTTPClient: opts.HTTPClient,
		Store:      s,
		Window:     cfg.Cache.APIWindow,
		Clock:      opts.Clock,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create fantasy client: %w", err)
	}
	if cfg.Fantasy.AuthToken != "" {
		fantasyClient.SetAuthToken(cfg.Fantasy.AuthToken)
	}

	nbaClient, err := nba.New(nba.Options{
		BaseURL:    cfg.NBA.BaseURL,
		HTTPClient: opts.HTTPClient,
		Store:      s,
		Window:     cfg.Cache.APIWindow,
		Clock:      opts.Clock,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create nba client: %w", err)
	}

	// Same window and store as the API clients, used only to sweep their keys
	api, err := cache.New[json.RawMessage](s, cache.Options[json.RawMessage]{
		Window: cfg.Cache.APIWindow,
		Clock:  opts.Clock,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create api cache: %w", err)
	}

	return &App{
		Store:    s,
		Images:   images,
		Registry: registry,
		Fantasy:  fantasyClient,
		NBA:      nbaClient,
		api:      api,
		logger:   logger,
	}, nil
}

// Blobs returns the handler serving image handles, or nil when the platform
// does not create handles.
func (a *App) Blobs() http.Handler {
	if a.Registry == nil {
		return nil
	}
	return a.Registry
}

// Sweep removes stale image and API entries and returns how many were removed.
func (a *App) Sweep(ctx context.Context) int {
	removed := a.api.Sweep(ctx, APIKeyPrefix)
	if sweeper, ok := a.Images.(imagecache.Sweeper); ok {
		removed += sweeper.Sweep(ctx)
	}
	return removed
}

// RunJanitor sweeps the image and API caches every interval until ctx is
// done. It returns immediately when interval is not positive.
func (a *App) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	a.logger.InfoContext(ctx, "starting cache janitor", "interval", interval)

	var g errgroup.Group
	g.Go(func() error {
		a.api.RunJanitor(ctx, APIKeyPrefix, interval)
		return nil
	})
	if sweeper, ok := a.Images.(imagecache.Sweeper); ok {
		g.Go(func() error {
			sweeper.RunJanitor(ctx, interval)
			return nil
		})
	}
	_ = g.Wait()
}

// Close closes the store.
func (a *App) Close() error {
	return a.Store.Close()
}
