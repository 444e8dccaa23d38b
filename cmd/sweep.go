package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire lapsed subscriptions once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), config.SweepRunTimeout)
		defer cancel()

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		n, err := restNotifier(cfg, a.receipts)
		if err != nil {
			return err
		}

		report, err := a.sweeper(n).Sweep(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		slog.Info("Sweep complete",
			slog.String("type", "sys"),
			slog.Int("checked", report.Checked),
			slog.Int("expired", report.Expired),
			slog.Int("notified", report.Notified),
			slog.Int("notify_failed", report.NotifyFailed),
			slog.Int("errors", len(report.Errors)))
		if len(report.Errors) > 0 {
			return fmt.Errorf("%d accounts could not be expired", len(report.Errors))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
