// Package config loads courtcache settings.
//
// Values are layered in this order, later layers winning: built-in defaults,
// a YAML file, COURTCACHE_* environment variables, and finally command-line
// flags, which the binaries apply on top of the loaded Config.
package config

import (
	"time"

	"github.com/boringbin/courtcache/internal/cache"
	"github.com/boringbin/courtcache/internal/fantasy"
	"github.com/boringbin/courtcache/internal/imagecache"
	"github.com/boringbin/courtcache/internal/nba"
)

// Store backends.
const (
	BackendBbolt  = "bbolt"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config is the complete configuration of the daemon and the CLI.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Cache   CacheConfig   `yaml:"cache"`
	Images  ImagesConfig  `yaml:"images"`
	Fantasy FantasyConfig `yaml:"fantasy"`
	NBA     NBAConfig     `yaml:"nba"`
}

// ServerConfig configures the HTTP listener of the daemon.
type ServerConfig struct {
	Port              int           `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the durable store.
type StoreConfig struct {
	// Backend is one of "bbolt", "memory" or "redis".
	Backend string `yaml:"backend"`
	// Path is the bbolt database file.
	Path string `yaml:"path"`
	// RedisURL is a redis:// URL.
	RedisURL string `yaml:"redis_url"`
	// RedisNamespace prefixes every key written to Redis.
	RedisNamespace string `yaml:"redis_namespace"`
}

// CacheConfig holds the freshness windows.
type CacheConfig struct {
	APIWindow   time.Duration `yaml:"api_window"`
	ImageWindow time.Duration `yaml:"image_window"`
	// SweepInterval enables the background sweep of stale entries when positive.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// ImagesConfig configures the image cache.
type ImagesConfig struct {
	// Platform is "web" (local handles) or "native" (URLs only).
	Platform string `yaml:"platform"`
	// Parallelism is the default number of prefetch workers.
	Parallelism int `yaml:"parallelism"`
}

// FantasyConfig configures the fantasy-league API client.
type FantasyConfig struct {
	BaseURL   string `yaml:"base_url"`
	AuthToken string `yaml:"auth_token"`
}

// NBAConfig configures the NBA stats API client.
type NBAConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Store: StoreConfig{
			Backend: BackendBbolt,
			Path:    "./data/cache.db",
		},
		Cache: CacheConfig{
			APIWindow:   cache.APIWindow,
			ImageWindow: cache.ImageWindow,
		},
		Images: ImagesConfig{
			Platform:    string(imagecache.PlatformWeb),
			Parallelism: 20,
		},
		Fantasy: FantasyConfig{
			BaseURL: fantasy.DefaultBaseURL,
		},
		NBA: NBAConfig{
			BaseURL: nba.DefaultBaseURL,
		},
	}
}
