package config

import (
	"errors"
	"fmt"

	"github.com/boringbin/courtcache/internal/imagecache"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks that cfg can be used to build the application.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, c.Server.Port)
	}

	switch c.Store.Backend {
	case BackendBbolt:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the bbolt backend", ErrInvalid)
		}
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("%w: store.redis_url is required for the redis backend", ErrInvalid)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalid, c.Store.Backend)
	}

	if c.Cache.APIWindow <= 0 {
		return fmt.Errorf("%w: cache.api_window must be positive", ErrInvalid)
	}
	if c.Cache.ImageWindow <= 0 {
		return fmt.Errorf("%w: cache.image_window must be positive", ErrInvalid)
	}
	if c.Cache.SweepInterval < 0 {
		return fmt.Errorf("%w: cache.sweep_interval must not be negative", ErrInvalid)
	}

	if _, err := imagecache.ParsePlatform(c.Images.Platform); err != nil {
		return fmt.Errorf("%w: images.platform: %w", ErrInvalid, err)
	}

	return nil
}
