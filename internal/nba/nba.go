// Package nba is a client for the NBA stats API.
package nba

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/boringbin/courtcache/internal/cache"
	"github.com/boringbin/courtcache/internal/provider"
	"github.com/boringbin/courtcache/internal/store"
)

const (
	// DefaultBaseURL is the base URL of the stats API.
	DefaultBaseURL = "https://stats.nba.com/stats"
	// headshotURLFormat is the CDN location of player headshots.
	headshotURLFormat = "https://cdn.nba.com/headshots/nba/latest/1040x760/%s.png"
	// browserUserAgent is sent because the stats API rejects unknown clients.
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	// gameLogPath is the player game log endpoint.
	gameLogPath = "/playergamelog"
)

var (
	// ErrInvalidResponse is returned when the response has no result set.
	ErrInvalidResponse = errors.New("invalid API response structure")
	// ErrInvalidFormat is returned when the result set lacks headers or rows.
	ErrInvalidFormat = errors.New("invalid data format")
)

// Options are the options for New.
type Options struct {
	// BaseURL of the API. If empty, defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient is the HTTP client to use. May be nil.
	HTTPClient *http.Client
	// Store holds cached responses. If nil, responses are cached in memory.
	Store store.Store
	// Window is the freshness window. If 0, defaults to cache.APIWindow.
	Window time.Duration
	// Clock decides the current season and date ranges and drives the cache.
	// If nil, defaults to the wall clock.
	Clock clock.Clock
	// Logger is the logger to use for logging.
	//
	// If nil, a no-op logger will be used.
	Logger *slog.Logger
}

// Client reads player statistics.
type Client struct {
	api    *provider.Client
	cache  *cache.Cache[json.RawMessage]
	clock  clock.Clock
	logger *slog.Logger
}

// New creates a new Client.
func New(opts Options) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	window := opts.Window
	if window == 0 {
		window = cache.APIWindow
	}
	s := opts.Store
	if s == nil {
		s = store.NewMemoryStore()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	// Use provided logger or create a no-op logger
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c, err := cache.New[json.RawMessage](s, cache.Options[json.RawMessage]{
		Window: window,
		Clock:  clk,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return &Client{
		api: provider.NewClient(provider.ClientOptions{
			BaseURL:   baseURL,
			Client:    opts.HTTPClient,
			UserAgent: browserUserAgent,
			Headers: map[string]string{
				"Referer": "https://www.nba.com/",
				"Origin":  "https://www.nba.com",
			},
		}),
		cache:  c,
		clock:  clk,
		logger: logger,
	}, nil
}

// HeadshotURL returns the canonical image URL of a player's headshot.
func HeadshotURL(playerID string) string {
	return fmt.Sprintf(headshotURLFormat, url.PathEscape(playerID))
}

// PlayerStats returns the regular-season game log of a player for the current
// season, limited to the recent games selected by timeRange (see DateRangeFor).
func (c *Client) PlayerStats(ctx context.Context, playerID, timeRange string) (*PlayerStats, error) {
	now := c.clock.Now()

	params := url.Values{
		"PlayerID":   {playerID},
		"Season":     {CurrentSeason(now)},
		"SeasonType": {"Regular Season"},
	}
	if r, ok := DateRangeFor(timeRange, now); ok {
		params.Set("DateFrom", r.From)
		params.Set("DateTo", r.To)
	}

	c.logger.DebugContext(ctx, "fetching player stats", "player_id", playerID, "time_range", timeRange)

	body, err := provider.Get(ctx, provider.GetOptions[json.RawMessage]{
		Key: provider.CacheKey(gameLogPath, params),
		Fetch: func(ctx context.Context) (json.RawMessage, error) {
			return c.api.GetJSON(ctx, gameLogPath, params)
		},
		Cache:  c.cache,
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player stats: %w", err)
	}

	return parseGameLog(body)
}
