package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/boringbin/courtcache/internal/app"
	"github.com/boringbin/courtcache/internal/config"
	"github.com/boringbin/courtcache/internal/server"
	"github.com/boringbin/courtcache/internal/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file")
		port       = flag.Int("port", 0, "HTTP port to listen on (overrides config)")
		cachePath  = flag.String("cache-path", "", "Path to bbolt cache database file (overrides config)")
		verbose    = flag.Bool("v", false, "Verbose output (debug mode)")
	)

	flag.Parse()

	// Setup logger
	logger := setupLogger(*verbose)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}
	applyOverrides(cfg, *port, *cachePath)

	if validateErr := cfg.Validate(); validateErr != nil {
		logger.Error("invalid config", "error", validateErr)
		return 1
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Open the store and build the caches on top of it
	application, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		logger.Error("failed to open cache database", "backend", cfg.Store.Backend, "path", cfg.Store.Path, "error", err)
		return 1
	}
	logger.Info("opened cache database", "backend", cfg.Store.Backend, "path", cfg.Store.Path)

	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		application.RunJanitor(ctx, cfg.Cache.SweepInterval)
	}()

	// The janitor must be stopped before the store is closed, on every return path
	defer func() {
		stop()
		<-janitorDone
		if closeErr := application.Close(); closeErr != nil {
			logger.Error("failed to close cache database", "error", closeErr)
		}
	}()

	// Create server
	srv := server.NewServer(server.Options{
		Images:             application.Images,
		Blobs:              application.Blobs(),
		Fantasy:            application.Fantasy,
		NBA:                application.NBA,
		Logger:             logger,
		DefaultParallelism: cfg.Images.Parallelism,
		Version:            version.Get(),
	})

	// Create HTTP server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port, "platform", cfg.Images.Platform)
		serverErrors <- httpServer.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case serverErr := <-serverErrors:
		logger.Error("server error", "error", serverErr)
		return 1
	case sig := <-shutdown:
		logger.Info("received shutdown signal", "signal", sig.String())
		stop()

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("graceful shutdown failed", "error", shutdownErr)
			if closeErr := httpServer.Close(); closeErr != nil {
				logger.Error("forced shutdown failed", "error", closeErr)
			}
			return 1
		}

		logger.Info("server stopped gracefully")
		return 0
	}
}

// applyOverrides layers the flags and the PORT and CACHE_PATH environment
// variables over cfg. An environment variable wins over its flag.
func applyOverrides(cfg *config.Config, port int, cachePath string) {
	if port > 0 {
		cfg.Server.Port = port
	}
	if cachePath != "" {
		cfg.Store.Path = cachePath
	}

	// Get cache path from environment variable
	if cacheEnv := os.Getenv("CACHE_PATH"); cacheEnv != "" {
		cfg.Store.Path = cacheEnv
	}

	// Get port from environment variable
	if portEnv := os.Getenv("PORT"); portEnv != "" {
		if portFromEnv, err := strconv.Atoi(portEnv); err == nil {
			cfg.Server.Port = portFromEnv
		}
	}
}

// setupLogger sets up the logger based on the verbose flag.
func setupLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
}
