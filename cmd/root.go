package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/logger"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

var (
	configPath string
	cfg        *kinobot.Config
)

var rootCmd = &cobra.Command{
	Use:           "kinobot",
	Short:         "Subscription gated movie bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := kinobot.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded

		slog.SetDefault(logger.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.AddSource))
		slog.Info("Configuration loaded",
			slog.String("type", "sys"),
			slog.String("transport", cfg.Bot.Transport),
			slog.String("storage", cfg.Bot.Storage))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to config")
}

func Execute() {
	rootCmd.Version = Version + " (" + Commit + ")"
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command failed", slog.String("type", "sys"), slog.Any("error", err))
		os.Exit(1)
	}
}
