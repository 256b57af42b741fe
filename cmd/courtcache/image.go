package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boringbin/courtcache/internal/imagecache"
)

// newImageCmd builds `image` and its subcommands.
func newImageCmd(opts *rootOptions) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Inspect and fill the image cache",
	}

	getCmd := &cobra.Command{
		Use:   "get <url>",
		Short: "Print the cached source of an image",
		Long:  "Print the cached source of an image. Exits with status 2 when the image is not cached.",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			source, ok := a.Images.GetCachedImage(ctx, args[0])
			if !ok {
				return errNotCached
			}
			fmt.Fprintln(cmd.OutOrStdout(), source)
			return nil
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache <url>",
		Short: "Cache an image and print its source",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, _, _, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Fprintln(cmd.OutOrStdout(), a.Images.CacheImage(ctx, args[0]))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached image",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, _, logger, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Images.ClearImageCache(ctx)
			logger.DebugContext(ctx, "cleared image cache")
			return nil
		},
	}

	var parallel int
	prefetchCmd := &cobra.Command{
		Use:   "prefetch <url>...",
		Short: "Cache several images concurrently",
		Long: `Cache several images concurrently.

Prints one tab-separated line per distinct URL: the URL, its source and, when
the image could not be cached, the error.`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cfg, logger, err := opts.openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			workers := parallel
			if workers <= 0 {
				workers = cfg.Images.Parallelism
			}

			out := cmd.OutOrStdout()
			for _, res := range imagecache.Prefetch(ctx, a.Images, args, workers, logger) {
				if res.Err != nil {
					fmt.Fprintf(out, "%s\t%s\t%v\n", res.URL, res.Source, res.Err)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\n", res.URL, res.Source)
			}
			return ctx.Err()
		},
	}
	prefetchCmd.Flags().IntVar(&parallel, "parallel", 0, "Number of concurrent downloads (default from config)")

	imageCmd.AddCommand(getCmd, cacheCmd, clearCmd, prefetchCmd)
	return imageCmd
}
