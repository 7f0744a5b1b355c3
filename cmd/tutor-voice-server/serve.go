package main

import (
	"github.com/spf13/cobra"

	"tutor-voice-server/internal/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	return bootstrap.Run(cmd.Context(), options())
}
