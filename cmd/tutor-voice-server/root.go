package main

import (
	"context"

	"github.com/spf13/cobra"

	"tutor-voice-server/internal/bootstrap"
)

var (
	cfgFile  string
	noDotEnv bool
)

var rootCmd = &cobra.Command{
	Use:   "tutor-voice-server",
	Short: "Voice layer for the language tutor",
	Long: `tutor-voice-server turns tutor replies into cached speech with
lip-sync cues and transcribes recorded student answers.

Without a subcommand the HTTP server is started.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noDotEnv, "no-dotenv", false, "do not load variables from .env")
}

func options() bootstrap.Options {
	return bootstrap.Options{ConfigPath: cfgFile, SkipDotEnv: noDotEnv}
}

// withApp builds the service without serving HTTP and closes it afterwards.
func withApp(ctx context.Context, fn func(context.Context, *bootstrap.App) error) error {
	app, err := bootstrap.Build(ctx, options())
	if err != nil {
		return err
	}
	defer app.Close(context.Background())
	return fn(ctx, app)
}
