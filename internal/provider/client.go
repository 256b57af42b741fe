package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/boringbin/courtcache/internal/version"
)

const (
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 30 * time.Second
	// maxDownloadSize is the largest body Download accepts (10MB).
	maxDownloadSize = 10 * 1024 * 1024
)

// errBodyTooLarge is returned when a download exceeds maxDownloadSize.
var errBodyTooLarge = errors.New("response body too large")

// Client is a small HTTP client for JSON APIs and binary downloads.
//
// The bearer token is state of the instance, so two clients never share a
// session.
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	headers   map[string]string

	mu        sync.RWMutex
	authToken string
}

// ClientOptions are the options for the Client.
type ClientOptions struct {
	// BaseURL is prepended to every path passed to GetJSON.
	BaseURL string
	// Client is the HTTP client to use.
	// If nil, defaults to an HTTP client with a 30 second timeout.
	Client *http.Client
	// UserAgent overrides the default courtcache/<version> User-Agent.
	UserAgent string
	// Headers are sent with every request.
	Headers map[string]string
}

// NewClient creates a new Client.
func NewClient(opts ClientOptions) *Client {
	// Default to an HTTP client with timeout.
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("courtcache/%s", version.Get())
	}

	return &Client{
		baseURL:   opts.BaseURL,
		client:    client,
		userAgent: userAgent,
		headers:   opts.Headers,
	}
}

// SetAuthToken sets the bearer token sent with every later request.
// An empty token removes the Authorization header.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authToken = token
}

// CacheKey returns the cache key for a GET of path with params.
// Query parameters are sorted, so equal requests share a key.
func CacheKey(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// GetJSON performs a GET of path under the base URL and returns the raw JSON body.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	body, _, err := c.get(ctx, c.baseURL+CacheKey(path, params), "application/json")
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidResponse)
	}
	return json.RawMessage(body), nil
}

// Download fetches an absolute URL and returns the body and its content type.
func (c *Client) Download(ctx context.Context, rawURL string) ([]byte, string, error) {
	return c.get(ctx, rawURL, "*/*")
}

// get performs a GET request and maps non-2xx responses to errors.
func (c *Client) get(ctx context.Context, target string, accept string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	c.mu.RLock()
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	c.mu.RUnlock()

	response, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		switch response.StatusCode {
		case http.StatusNotFound:
			return nil, "", fmt.Errorf("%w: %w: HTTP 404", ErrNotFound, ErrHTTPStatus)
		case http.StatusTooManyRequests:
			return nil, "", fmt.Errorf("rate limited by API: %w: HTTP 429", ErrHTTPStatus)
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, "", fmt.Errorf("API service unavailable: %w: HTTP %d", ErrHTTPStatus, response.StatusCode)
		default:
			return nil, "", fmt.Errorf("API error: %w: HTTP %d", ErrHTTPStatus, response.StatusCode)
		}
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxDownloadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	if len(body) > maxDownloadSize {
		return nil, "", errBodyTooLarge
	}

	return body, response.Header.Get("Content-Type"), nil
}
