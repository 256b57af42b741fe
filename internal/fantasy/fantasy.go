// Package fantasy is a client for the fantasy-league API.
//
// Read endpoints are served through a short-lived response cache. The
// waiver-wire listing is always fetched fresh.
package fantasy

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

// DefaultBaseURL is the base URL of the fantasy-league API.
const DefaultBaseURL = "https://www.fantrax.com/fxpa/req"

// ErrMissingField is returned when a response lacks the field an operation returns.
var ErrMissingField = errors.New("response is missing field")

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
	// Clock is passed to the response cache. May be nil.
	Clock clock.Clock
	// Logger is the logger to use for logging.
	//
	// If nil, a no-op logger will be used.
	Logger *slog.Logger
}

// Client reads league data on behalf of one signed-in user.
type Client struct {
	api    *provider.Client
	cache  *cache.Cache[json.RawMessage]
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

	// Use provided logger or create a no-op logger
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c, err := cache.New[json.RawMessage](s, cache.Options[json.RawMessage]{
		Window: window,
		Clock:  opts.Clock,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	return &Client{
		api:    provider.NewClient(provider.ClientOptions{BaseURL: baseURL, Client: opts.HTTPClient}),
		cache:  c,
		logger: logger,
	}, nil
}

// SetAuthToken sets the session token for this client only.
func (c *Client) SetAuthToken(token string) {
	c.api.SetAuthToken(token)
}

// UserLeagues returns the leagues of the signed-in user.
func (c *Client) UserLeagues(ctx context.Context) (json.RawMessage, error) {
	return c.fetchField(ctx, "/getUserLeagues", nil, "leagues")
}

// LeagueInfo returns the full league description.
func (c *Client) LeagueInfo(ctx context.Context, leagueID string) (json.RawMessage, error) {
	body, err := c.fetch(ctx, "/getLeagueInfo", leagueParams(leagueID), false)
	if err != nil {
		return nil, err
	}
	if isNull(body) {
		return nil, fmt.Errorf("%w: empty league info", provider.ErrInvalidResponse)
	}
	return body, nil
}

// TeamRoster returns the user's roster in a league.
func (c *Client) TeamRoster(ctx context.Context, leagueID string) (json.RawMessage, error) {
	return c.fetchField(ctx, "/getTeamRoster", leagueParams(leagueID), "roster")
}

// LeagueStandings returns the standings of a league.
func (c *Client) LeagueStandings(ctx context.Context, leagueID string) (json.RawMessage, error) {
	return c.fetchField(ctx, "/getLeagueStandings", leagueParams(leagueID), "standings")
}

// MatchupInfo returns the user's matchup for a scoring period.
func (c *Client) MatchupInfo(ctx context.Context, leagueID, scoringPeriodID string) (json.RawMessage, error) {
	params := leagueParams(leagueID)
	if scoringPeriodID != "" {
		params.Set("scoringPeriodId", scoringPeriodID)
	}
	return c.fetchField(ctx, "/getMatchupInfo", params, "matchup")
}

// LeagueActivity returns recent transactions and messages of a league.
func (c *Client) LeagueActivity(ctx context.Context, leagueID string) (json.RawMessage, error) {
	return c.fetchField(ctx, "/getLeagueActivity", leagueParams(leagueID), "activity")
}

// AvailablePlayers returns the waiver-wire players of a league. Filters are
// passed through as query parameters. The result is never cached.
func (c *Client) AvailablePlayers(ctx context.Context, leagueID string, filters url.Values) (json.RawMessage, error) {
	params := leagueParams(leagueID)
	for k, vs := range filters {
		if k == "leagueId" {
			continue
		}
		for _, v := range vs {
			params.Add(k, v)
		}
	}

	body, err := c.fetch(ctx, "/getAvailablePlayers", params, true)
	if err != nil {
		return nil, err
	}
	return field(body, "players")
}

// fetchField fetches a cached endpoint and returns one top-level field of it.
func (c *Client) fetchField(ctx context.Context, path string, params url.Values, name string) (json.RawMessage, error) {
	body, err := c.fetch(ctx, path, params, false)
	if err != nil {
		return nil, err
	}
	return field(body, name)
}

// fetch performs a GET through the response cache.
func (c *Client) fetch(ctx context.Context, path string, params url.Values, skipCache bool) (json.RawMessage, error) {
	return provider.Get(ctx, provider.GetOptions[json.RawMessage]{
		Key: provider.CacheKey(path, params),
		Fetch: func(ctx context.Context) (json.RawMessage, error) {
			return c.api.GetJSON(ctx, path, params)
		},
		Cache:     c.cache,
		SkipCache: skipCache,
		Logger:    c.logger,
	})
}

func leagueParams(leagueID string) url.Values {
	return url.Values{"leagueId": {leagueID}}
}

// field extracts a top-level field from a JSON object.
func field(body json.RawMessage, name string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrInvalidResponse, err)
	}

	v, ok := obj[name]
	if !ok || isNull(v) {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
