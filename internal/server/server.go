package server

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

	"github.com/boringbin/courtcache/internal/imagecache"
	"github.com/boringbin/courtcache/internal/nba"
	"github.com/boringbin/courtcache/internal/provider"
)

const (
	// maxRequestSize is the maximum request body size (1MiB).
	maxRequestSize = 1 << 20
	// prefetchTimeout is the maximum time allowed for a prefetch request.
	prefetchTimeout = 10 * time.Minute
)

// FantasyAPI is the fantasy-league client used by the /fantasy routes.
type FantasyAPI interface {
	UserLeagues(ctx context.Context) (json.RawMessage, error)
	LeagueInfo(ctx context.Context, leagueID string) (json.RawMessage, error)
	TeamRoster(ctx context.Context, leagueID string) (json.RawMessage, error)
	LeagueStandings(ctx context.Context, leagueID string) (json.RawMessage, error)
	LeagueActivity(ctx context.Context, leagueID string) (json.RawMessage, error)
	MatchupInfo(ctx context.Context, leagueID, scoringPeriodID string) (json.RawMessage, error)
	AvailablePlayers(ctx context.Context, leagueID string, filters url.Values) (json.RawMessage, error)
}

// StatsAPI is the NBA stats client used by the /nba routes.
type StatsAPI interface {
	PlayerStats(ctx context.Context, playerID, timeRange string) (*nba.PlayerStats, error)
}

// Options are the options for NewServer.
type Options struct {
	// Images is the image cache. Required.
	Images imagecache.ImageCacheStrategy
	// Blobs serves /blob/<id>. Only set for the web platform.
	Blobs http.Handler
	// Fantasy enables the /fantasy routes when set.
	Fantasy FantasyAPI
	// NBA enables the /nba routes when set.
	NBA StatsAPI
	// Logger is the logger to use for logging.
	//
	// If nil, a no-op logger will be used.
	Logger *slog.Logger
	// DefaultParallelism is used by prefetch requests that do not set one.
	DefaultParallelism int
	// Version is reported in the X-Courtcache-Version header of /health.
	Version string
}

// Server is the HTTP server of the courtcache daemon.
type Server struct {
	images             imagecache.ImageCacheStrategy
	blobs              http.Handler
	fantasy            FantasyAPI
	nba                StatsAPI
	logger             *slog.Logger
	defaultParallelism int
	version            string
}

// imageResponse is the response body of the image routes.
type imageResponse struct {
	// URL is the remote image URL.
	URL string `json:"url"`
	// Source is what the client should display: a handle or the URL.
	Source string `json:"source"`
}

// prefetchRequest is the request body for POST /images/prefetch.
type prefetchRequest struct {
	// URLs are the remote images to warm.
	URLs []string `json:"urls"`
	// Parallelism is the number of concurrent downloads.
	//
	// If <= 0, the server default is used.
	Parallelism int `json:"parallelism,omitempty"`
}

// prefetchResult is one entry of the prefetch response.
type prefetchResult struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Error  string `json:"error,omitempty"`
}

// prefetchResponse is the response body for POST /images/prefetch.
type prefetchResponse struct {
	Results []prefetchResult `json:"results"`
}

// playerStatsResponse is the response body for GET /nba/players/{id}/stats.
type playerStatsResponse struct {
	PlayerID string `json:"playerId"`
	Headshot string `json:"headshot"`
	*nba.PlayerStats
}

// errorResponse is the error response body.
type errorResponse struct {
	// Error is the error message.
	Error string `json:"error"`
}

// NewServer creates a new Server instance.
func NewServer(opts Options) *Server {
	// Use provided logger or create a no-op logger
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	parallelism := opts.DefaultParallelism
	if parallelism <= 0 {
		parallelism = 1
	}

	return &Server{
		images:             opts.Images,
		blobs:              opts.Blobs,
		fantasy:            opts.Fantasy,
		nba:                opts.NBA,
		logger:             logger,
		defaultParallelism: parallelism,
		version:            opts.Version,
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/images", s.handleImages)
	mux.HandleFunc("/images/cached", s.handleCachedImage)
	mux.HandleFunc("/images/prefetch", s.handlePrefetch)
	if s.blobs != nil {
		mux.Handle("/blob/{id}", s.blobs)
	}
	if s.fantasy != nil {
		mux.HandleFunc("/fantasy/leagues", s.handleUserLeagues)
		mux.HandleFunc("/fantasy/leagues/{id}/{resource}", s.handleLeague)
	}
	if s.nba != nil {
		mux.HandleFunc("/nba/players/{id}/stats", s.handlePlayerStats)
	}
	return mux
}

// handleImages handles GET /images (cache one image) and DELETE /images (clear).
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		imageURL := r.URL.Query().Get("url")
		if imageURL == "" {
			s.writeError(r.Context(), w, http.StatusBadRequest, "url query parameter is required")
			return
		}
		s.writeJSON(r.Context(), w, http.StatusOK, imageResponse{URL: imageURL, Source: s.images.CacheImage(r.Context(), imageURL)})
	case http.MethodDelete:
		s.images.ClearImageCache(r.Context())
		s.logger.InfoContext(r.Context(), "cleared image cache")
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET and DELETE methods are allowed")
	}
}

// handleCachedImage handles GET /images/cached requests.
func (s *Server) handleCachedImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	imageURL := r.URL.Query().Get("url")
	if imageURL == "" {
		s.writeError(r.Context(), w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	source, ok := s.images.GetCachedImage(r.Context(), imageURL)
	if !ok {
		s.writeError(r.Context(), w, http.StatusNotFound, "image is not cached")
		return
	}
	s.writeJSON(r.Context(), w, http.StatusOK, imageResponse{URL: imageURL, Source: source})
}

// handlePrefetch handles POST /images/prefetch requests.
func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	// Wrap request context with prefetch timeout
	ctx, cancel := context.WithTimeout(r.Context(), prefetchTimeout)
	defer cancel()

	// Only accept POST
	if r.Method != http.MethodPost {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only POST method is allowed")
		return
	}

	// Limit request body size
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	// Parse request
	var req prefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.ErrorContext(ctx, "failed to decode request", "error", err)
		s.writeError(r.Context(), w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if len(req.URLs) == 0 {
		s.writeError(r.Context(), w, http.StatusBadRequest, "urls field is required")
		return
	}

	// Determine parallelism
	parallelism := req.Parallelism
	if parallelism <= 0 {
		parallelism = s.defaultParallelism
	}

	s.logger.InfoContext(ctx, "prefetching images", "count", len(req.URLs), "parallelism", parallelism)

	results := imagecache.Prefetch(ctx, s.images, req.URLs, parallelism, s.logger)

	response := prefetchResponse{Results: make([]prefetchResult, 0, len(results))}
	for _, res := range results {
		out := prefetchResult{URL: res.URL, Source: res.Source}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		response.Results = append(response.Results, out)
	}
	s.writeJSON(r.Context(), w, http.StatusOK, response)
}

// handleUserLeagues handles GET /fantasy/leagues requests.
func (s *Server) handleUserLeagues(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	body, err := s.fantasy.UserLeagues(r.Context())
	s.writeUpstream(w, r, body, err)
}

// handleLeague handles GET /fantasy/leagues/{id}/{resource} requests.
func (s *Server) handleLeague(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	ctx := r.Context()
	leagueID := r.PathValue("id")

	var (
		body json.RawMessage
		err  error
	)
	switch resource := r.PathValue("resource"); resource {
	case "info":
		body, err = s.fantasy.LeagueInfo(ctx, leagueID)
	case "roster":
		body, err = s.fantasy.TeamRoster(ctx, leagueID)
	case "standings":
		body, err = s.fantasy.LeagueStandings(ctx, leagueID)
	case "activity":
		body, err = s.fantasy.LeagueActivity(ctx, leagueID)
	case "matchup":
		body, err = s.fantasy.MatchupInfo(ctx, leagueID, r.URL.Query().Get("period"))
	case "players":
		body, err = s.fantasy.AvailablePlayers(ctx, leagueID, r.URL.Query())
	default:
		s.writeError(r.Context(), w, http.StatusNotFound, fmt.Sprintf("unknown league resource: %s", resource))
		return
	}
	s.writeUpstream(w, r, body, err)
}

// handlePlayerStats handles GET /nba/players/{id}/stats requests.
func (s *Server) handlePlayerStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	ctx := r.Context()
	playerID := r.PathValue("id")

	stats, err := s.nba.PlayerStats(ctx, playerID, r.URL.Query().Get("range"))
	if err != nil {
		s.writeUpstream(w, r, nil, err)
		return
	}

	s.writeJSON(r.Context(), w, http.StatusOK, playerStatsResponse{
		PlayerID:    playerID,
		Headshot:    s.images.CacheImage(ctx, nba.HeadshotURL(playerID)),
		PlayerStats: stats,
	})
}

// handleHealth handles GET /health requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Only accept GET
	if r.Method != http.MethodGet {
		s.writeError(r.Context(), w, http.StatusMethodNotAllowed, "only GET method is allowed")
		return
	}

	if s.version != "" {
		w.Header().Set("X-Courtcache-Version", s.version)
	}
	s.writeJSON(r.Context(), w, http.StatusOK, "OK")
}

// writeUpstream writes a JSON body fetched from a remote API, mapping fetch
// failures to 404 or 502.
func (s *Server) writeUpstream(w http.ResponseWriter, r *http.Request, body json.RawMessage, err error) {
	if err != nil {
		s.logger.ErrorContext(r.Context(), "upstream request failed", "path", r.URL.Path, "error", err)
		if errors.Is(err, provider.ErrNotFound) {
			s.writeError(r.Context(), w, http.StatusNotFound, err.Error())
			return
		}
		s.writeError(r.Context(), w, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, writeErr := w.Write(body); writeErr != nil {
		s.logger.ErrorContext(r.Context(), "failed to write response", "error", writeErr)
	}
}

// writeJSON writes v as a JSON response.
func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(ctx, w, statusCode, errorResponse{Error: message})
}
