package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "COURTCACHE_"

// ConfigError reports a setting that could not be read.
//
//nolint:revive // Mirrors the field/path error of the loader it is used with.
type ConfigError struct {
	// Path is the config file, if the error came from one.
	Path string
	// Field is the setting, if the error came from one value.
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Field != "":
		return fmt.Sprintf("config %s: %v", e.Field, e.Err)
	case e.Path != "":
		return fmt.Sprintf("config file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("config: %v", e.Err)
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load returns the defaults overlaid with the YAML file at path (skipped when
// path is empty) and then with the environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

// load is Load with an injectable environment lookup.
func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with the COURTCACHE_* variables that are set.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: EnvPrefix + name, Err: err}
		}
		*dst = n
		return nil
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return &ConfigError{Field: EnvPrefix + name, Err: err}
		}
		*dst = d
		return nil
	}

	str("STORE_BACKEND", &cfg.Store.Backend)
	str("STORE_PATH", &cfg.Store.Path)
	str("REDIS_URL", &cfg.Store.RedisURL)
	str("REDIS_NAMESPACE", &cfg.Store.RedisNamespace)
	str("PLATFORM", &cfg.Images.Platform)
	str("FANTASY_BASE_URL", &cfg.Fantasy.BaseURL)
	str("FANTASY_TOKEN", &cfg.Fantasy.AuthToken)
	str("NBA_BASE_URL", &cfg.NBA.BaseURL)

	for _, f := range []func() error{
		func() error { return num("PORT", &cfg.Server.Port) },
		func() error { return num("PARALLELISM", &cfg.Images.Parallelism) },
		func() error { return dur("API_WINDOW", &cfg.Cache.APIWindow) },
		func() error { return dur("IMAGE_WINDOW", &cfg.Cache.ImageWindow) },
		func() error { return dur("SWEEP_INTERVAL", &cfg.Cache.SweepInterval) },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}
