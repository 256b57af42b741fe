package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boringbin/courtcache/internal/version"
)

// newVersionCmd builds `version`.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  usageArgs(cobra.NoArgs),
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "courtcache version %s\n", version.Get())
		},
	}
}
