package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/discordbot"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/telegrambot"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/commands"
	"github.com/ellavondegurechaff/kinobot/kinobot/handlers"
	"github.com/ellavondegurechaff/kinobot/kinobot/scheduler"
	"github.com/ellavondegurechaff/kinobot/kinobot/telegram"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var syncCommands bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot with the configured transport",
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("Starting Kinobot",
			slog.String("type", "sys"),
			slog.String("version", Version),
			slog.String("commit", Commit))

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
		a, err := openApp(ctx, cfg)
		cancel()
		if err != nil {
			return err
		}
		defer a.close()

		var n notifier
		var stop func()
		switch cfg.Bot.Transport {
		case kinobot.TransportTelegram:
			n, stop, err = startTelegram(a)
		default:
			n, stop, err = startDiscord(a)
		}
		if err != nil {
			return err
		}
		defer stop()

		sched := scheduler.New(a.sweeper(n), slog.Default())
		if err := sched.Start(cfg.Subscription.SweepSchedule); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(ctx); err != nil {
				slog.Warn("Sweep did not stop in time", slog.String("type", "sys"), slog.Any("error", err))
			}
		}()

		slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
		s := make(chan os.Signal, 1)
		signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
		<-s
		slog.Info("Shutting down bot...", slog.String("type", "sys"))
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&syncCommands, "sync-commands", false, "Whether to sync commands to discord")
	rootCmd.AddCommand(runCmd)
}

func startDiscord(a *app) (notifier, func(), error) {
	b := kinobot.New(*cfg, Version, Commit)
	b.DB = a.db
	b.Accounts = a.accounts
	b.Catalog = a.catalog
	b.Library = a.library
	b.Receipts = a.receipts

	h := handler.New()
	h.Command("/version", commands.VersionHandler(b))
	h.Command("/start", handlers.WrapWithLogging("start", commands.StartHandler(b)))
	h.Command("/status", handlers.WrapWithLogging("status", commands.StatusHandler(b)))
	h.Command("/search", handlers.WrapWithLogging("search", commands.SearchHandler(b)))
	h.Command("/pay", handlers.WrapWithLogging("pay", commands.PayHandler(b)))
	h.Command("/pending", handlers.WrapWithLogging("pending", commands.PendingHandler(b)))
	h.Command("/review", handlers.WrapWithLogging("review", commands.ReviewHandler(b)))
	h.Component("/claim/{action}/{id}", handlers.WrapComponentWithLogging("claim", commands.ClaimComponentHandler(b)))
	h.Modal("/claim/note/{id}", handlers.WrapModalWithLogging("claim-note", commands.RejectNoteHandler(b)))

	if err := b.SetupBot(h, bot.NewListenerFunc(b.OnReady), handlers.MessageHandler(b)); err != nil {
		return nil, nil, fmt.Errorf("failed to setup bot: %w", err)
	}

	n := discordbot.NewNotifier(b.Client.Rest(), cfg.Subscription.Reviewers, a.receipts)
	workflow, err := a.workflow(n, cfg)
	if err != nil {
		return nil, nil, err
	}
	b.Workflow = workflow
	b.Sweeper = a.sweeper(n)

	if syncCommands {
		slog.Info("Syncing commands", slog.String("type", "sys"), slog.Any("guild_ids", cfg.Bot.DevGuilds))
		if err := handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.String("component", "command_sync"),
				slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := b.Client.OpenGateway(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to open gateway: %w", err)
	}

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}
	return n, stop, nil
}

func startTelegram(a *app) (notifier, func(), error) {
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	api.Debug = cfg.Telegram.Debug
	slog.Info("Authorized on telegram", slog.String("type", "sys"), slog.String("account", api.Self.UserName))

	n := telegrambot.NewNotifier(api, cfg.Subscription.Reviewers, a.receipts)
	workflow, err := a.workflow(n, cfg)
	if err != nil {
		return nil, nil, err
	}

	tb := &telegram.Bot{
		API:       api,
		Accounts:  a.accounts,
		Workflow:  workflow,
		Library:   a.library,
		Receipts:  a.receipts,
		FileURL:   api.GetFileDirectURL,
		GrantDays: cfg.Subscription.GrantDays,
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Telegram.PollTimeout
	updates := api.GetUpdatesChan(u)

	processes := utils.NewBackgroundProcessManager(context.Background())
	processes.StartProcess("telegram-updates", func(ctx context.Context) {
		tb.Run(ctx, updates)
	})

	stop := func() {
		api.StopReceivingUpdates()
		if err := processes.Shutdown(15 * time.Second); err != nil {
			slog.Warn("Telegram updates did not drain", slog.String("type", "sys"), slog.Any("error", err))
		}
	}
	return n, stop, nil
}
