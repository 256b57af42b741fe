// Package main is the entry point for the courtcache CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

const (
	// exitSuccess is the exit code for success.
	exitSuccess = 0
	// exitInvalidArgs is the exit code for invalid arguments.
	exitInvalidArgs = 1
	// exitNotCached is the exit code of `image get` for an absent image.
	exitNotCached = 2
	// exitRuntimeError is the exit code for runtime error.
	exitRuntimeError = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// Cancel the context on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errNotCached) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

// exitCode maps a command error to the process exit code.
func exitCode(err error) int {
	var usageErr *usageError
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, errNotCached):
		return exitNotCached
	case errors.As(err, &usageErr):
		return exitInvalidArgs
	default:
		return exitRuntimeError
	}
}
