package main

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"tutor-voice-server/internal/bootstrap"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run the dependency probe once and print the report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, app *bootstrap.App) error {
			report := app.Probe().Check(ctx)
			out, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if report.Status != "ok" {
				return fmt.Errorf("service is %s", report.Status)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
