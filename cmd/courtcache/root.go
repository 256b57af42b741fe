package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/boringbin/courtcache/internal/app"
	"github.com/boringbin/courtcache/internal/config"
	"github.com/boringbin/courtcache/internal/version"
)

// errNotCached is returned by `image get` when the image has no fresh entry.
var errNotCached = errors.New("image is not cached")

// usageError marks a command line the user has to correct.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// usageArgs marks argument validation failures as usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	cachePath  string
	platform   string
	verbose    bool
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "courtcache",
		Short: "Fantasy basketball response and image cache",
		Long: `courtcache - a local cache for fantasy-league, NBA stats and image requests.

Entries expire after a fixed freshness window. Without --cache-path or a
config file selecting a durable backend the cache lives in memory and is
discarded on exit. For a long-running cache, see the 'courtcached' daemon.`,
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.cachePath, "cache-path", "", "Path to a bbolt cache database file (selects the bbolt backend)")
	flags.StringVar(&opts.platform, "platform", "", "Image cache platform: web or native (overrides config)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output (debug mode)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.AddCommand(
		newImageCmd(opts),
		newStatsCmd(opts),
		newSweepCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

// loadConfig loads the config and layers the persistent flags over it.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, &usageError{err: err}
	}

	// One-off runs default to an in-memory store
	if o.configPath == "" && os.Getenv(config.EnvPrefix+"STORE_BACKEND") == "" {
		cfg.Store.Backend = config.BackendMemory
	}
	if o.cachePath != "" {
		cfg.Store.Backend = config.BackendBbolt
		cfg.Store.Path = o.cachePath
	}
	if o.platform != "" {
		cfg.Images.Platform = o.platform
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, &usageError{err: validateErr}
	}
	return cfg, nil
}

// openApp loads the config and assembles the caches. The caller must Close it.
func (o *rootOptions) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, *config.Config, *slog.Logger, error) {
	logger := setupLogger(cmd, o.verbose)

	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open cache: %w", err)
	}
	logger.DebugContext(ctx, "opened cache", "backend", cfg.Store.Backend, "platform", cfg.Images.Platform)
	return a, cfg, logger, nil
}

// setupLogger sets up the logger based on the verbose flag.
func setupLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logLevel := slog.LevelError
	if verbose {
		// If verbose is true, set the log level to debug
		// This will log all messages, including debug messages
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))
}
