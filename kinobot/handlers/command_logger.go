package handlers

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
)

// interactionRun logs around one interaction and enforces the command timeout.
func interactionRun(kind, name string, user discord.User, attrs []any, run func() error) error {
	start := time.Now()
	base := []any{
		slog.String("type", kind),
		slog.String("name", name),
		slog.String("user_id", user.ID.String()),
		slog.String("user_name", user.Username),
	}

	slog.Info("Interaction started", append(base, attrs...)...)

	done := make(chan error, 1)
	go func() {
		done <- run()
	}()

	select {
	case err := <-done:
		duration := time.Since(start)
		finished := append(base, slog.Duration("took", duration))

		switch {
		case err != nil:
			slog.Error("Interaction failed", append(finished,
				slog.Any("error", err),
				slog.String("status", "failed"),
			)...)
		case duration > config.SlowCommandThreshold:
			slog.Warn("Interaction executed slowly", append(finished, slog.String("status", "slow"))...)
		default:
			slog.Info("Interaction completed", append(finished, slog.String("status", "success"))...)
		}
		return err

	case <-time.After(config.CommandExecutionTimeout):
		slog.Error("Interaction timed out", append(base,
			slog.String("status", "timeout"),
			slog.Duration("timeout", config.CommandExecutionTimeout),
		)...)
		return fmt.Errorf("%s timed out after %s", name, config.CommandExecutionTimeout)
	}
}

// WrapWithLogging wraps a command handler with logging functionality
func WrapWithLogging(name string, h handler.CommandHandler) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return interactionRun("cmd", name, e.User(), []any{
			slog.String("channel_id", e.ChannelID().String()),
		}, func() error { return h(e) })
	}
}

// WrapComponentWithLogging wraps a component handler with logging functionality
func WrapComponentWithLogging(name string, h handler.ComponentHandler) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		return interactionRun("cmp", name, e.User(), []any{
			slog.String("custom_id", e.Data.CustomID()),
		}, func() error { return h(e) })
	}
}

func WrapModalWithLogging(name string, h handler.ModalHandler) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		return interactionRun("cmp", name, e.User(), []any{
			slog.String("custom_id", e.Data.CustomID),
		}, func() error { return h(e) })
	}
}
