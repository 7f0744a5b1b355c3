package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"tutor-voice-server/internal/bootstrap"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or maintain the artifact cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache driver and entry count",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
			st, err := app.Cache().Stats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "driver:  %s\nentries: %d\nttl:     %s\n",
				st.Driver, st.Entries, app.Config().Cache.TTL)
			return nil
		})
	},
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired artifacts now",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
			n, err := app.Cache().Sweep(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired artifacts\n", n)
			return nil
		})
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheSweepCmd)
	rootCmd.AddCommand(cacheCmd)
}
