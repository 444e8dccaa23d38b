package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo/rest"
	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/domain/expiry"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/database/repositories"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/discordbot"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/memory"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/telegrambot"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/database"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// notifier is what the payment workflow and the expiry sweeper need from a transport.
type notifier interface {
	payments.Notifier
	expiry.Notifier
}

// app holds storage and transport independent services.
type app struct {
	db       *database.DB
	accounts *subscription.Service
	catalog  *catalog.Service
	library  *services.Library
	receipts *services.Receipts
	payments payments.Repository
	expiries expiry.Repository
	sweep    *expiry.Sweeper
}

func openApp(ctx context.Context, cfg *kinobot.Config) (*app, error) {
	a := &app{}

	var (
		accountRepo subscription.Repository
		itemRepo    catalog.Repository
	)
	switch cfg.Bot.Storage {
	case kinobot.StorageMemory:
		store := memory.New()
		accountRepo, a.payments, a.expiries = store, store, store
		itemRepo = memory.NewCatalog()
		slog.Warn("Using in-memory storage, state is lost on exit", slog.String("type", "sys"))

	default:
		start := time.Now()
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		if err := db.InitializeSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database schema: %w", err)
		}
		slog.Info("Database connected",
			slog.String("type", "db"),
			slog.String("database", cfg.DB.Database),
			slog.Duration("took", time.Since(start)))

		a.db = db
		accounts := repositories.NewAccountRepository(db.BunDB())
		accountRepo, a.expiries = accounts, accounts
		a.payments = repositories.NewPaymentRepository(db.BunDB())
		itemRepo = repositories.NewItemRepository(db.BunDB())
	}

	cat, err := catalog.NewService(itemRepo, cfg.Subscription.CatalogCacheSize)
	if err != nil {
		a.close()
		return nil, err
	}
	a.catalog = cat
	a.accounts = subscription.NewService(accountRepo)
	a.library = services.NewLibrary(a.accounts, cat)

	var spaces *services.SpacesService
	if cfg.Spaces.Enabled() {
		spaces, err = services.NewSpacesService(cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region,
			cfg.Spaces.Bucket, cfg.Spaces.Endpoint, cfg.Spaces.ReceiptRoot)
		if err != nil {
			a.close()
			return nil, err
		}
		slog.Info("Receipt archive enabled", slog.String("type", "sys"), slog.String("bucket", spaces.GetBucket()))
	}
	a.receipts = services.NewReceipts(spaces)
	return a, nil
}

func (a *app) workflow(n payments.Notifier, cfg *kinobot.Config) (*payments.Workflow, error) {
	return payments.NewWorkflow(a.payments, payments.NewReviewers(cfg.Subscription.Reviewers...), n, cfg.Subscription.Grant())
}

// sweeper returns the process wide sweeper so that scheduled and manual runs
// share one in-flight guard.
func (a *app) sweeper(n expiry.Notifier) *expiry.Sweeper {
	if a.sweep == nil {
		a.sweep = expiry.NewSweeper(a.expiries, n, config.SweepAccountTimeout)
	}
	return a.sweep
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

// restNotifier builds a notifier for processes that do not run a bot loop.
func restNotifier(cfg *kinobot.Config, receipts *services.Receipts) (notifier, error) {
	if cfg.Bot.Transport == kinobot.TransportTelegram {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to create telegram client: %w", err)
		}
		return telegrambot.NewNotifier(api, cfg.Subscription.Reviewers, receipts), nil
	}
	client := rest.New(rest.NewClient(cfg.Bot.Token))
	return discordbot.NewNotifier(client, cfg.Subscription.Reviewers, receipts), nil
}
