package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boringbin/courtcache/internal/nba"
)

// statsOutput is what `stats` prints.
type statsOutput struct {
	PlayerID string `json:"playerId"`
	Headshot string `json:"headshot"`
	*nba.PlayerStats
}

// newStatsCmd builds `stats`.
func newStatsCmd(opts *rootOptions) *cobra.Command {
	var timeRange string

	statsCmd := &cobra.Command{
		Use:   "stats <playerID>",
		Short: "Print a player's game log and averages as JSON",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			playerID := args[0]
			stats, err := a.NBA.PlayerStats(ctx, playerID, timeRange)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if encodeErr := encoder.Encode(statsOutput{
				PlayerID:    playerID,
				Headshot:    a.Images.CacheImage(ctx, nba.HeadshotURL(playerID)),
				PlayerStats: stats,
			}); encodeErr != nil {
				return fmt.Errorf("write output: %w", encodeErr)
			}
			return nil
		},
	}
	statsCmd.Flags().StringVar(&timeRange, "range", "", "Time range: week, 2weeks or month (default full season)")

	return statsCmd
}
