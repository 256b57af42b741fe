package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newSweepCmd builds `sweep`.
func newSweepCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove stale entries from a durable cache",
		Long: `Remove stale entries from a durable cache.

Stale entries are already ignored on read; sweeping reclaims their space.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "removed %d stale entries\n", a.Sweep(ctx))
			return nil
		},
	}
}
