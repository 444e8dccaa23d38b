package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/telegrambot"
	"github.com/ellavondegurechaff/kinobot/kinobot/commands"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentUpdates = 8

// Bot serves the Telegram long-polling transport.
type Bot struct {
	API      telegrambot.Sender
	Accounts *subscription.Service
	Workflow *payments.Workflow
	Library  *services.Library
	Receipts *services.Receipts
	// FileURL resolves a file id to a download link, usually BotAPI.GetFileDirectURL.
	FileURL   func(fileID string) (string, error)
	GrantDays int
	Now       func() time.Time
}

func (b *Bot) clock() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

// Run handles updates until ctx is cancelled or the channel closes.
func (b *Bot) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentUpdates)
	defer g.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			g.Go(func() error {
				b.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*config.CommandExecutionTimeout)
	defer cancel()

	var (
		kind   string
		userID int64
		err    error
	)
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		kind, userID = "callback", update.CallbackQuery.From.ID
		err = b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil && update.Message.Chat.IsPrivate():
		kind, userID = "message", update.Message.From.ID
		err = b.handleMessage(ctx, update.Message)
	default:
		return
	}

	attrs := []any{
		slog.String("type", "cmd"),
		slog.String("name", kind),
		slog.Int64("user_id", userID),
		slog.Duration("took", time.Since(start)),
	}
	if err != nil {
		slog.Error("Telegram update failed", append(attrs, slog.Any("error", err))...)
		return
	}
	slog.Info("Telegram update handled", attrs...)
}

func (b *Bot) reply(chatID int64, text string) error {
	_, err := b.API.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) replyErr(chatID int64, err error) error {
	msg, ok := commands.UserMessage(err)
	if !ok {
		if sendErr := b.reply(chatID, commands.GenericFailure); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
	return b.reply(chatID, "⚠️ "+msg)
}

func (b *Bot) register(ctx context.Context, from *tgbotapi.User) (*subscription.Account, error) {
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	account, _, err := b.Accounts.Register(ctx, strconv.FormatInt(from.ID, 10), name, from.UserName, b.clock())
	return account, err
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	account, err := b.register(ctx, msg.From)
	if err != nil {
		return b.replyErr(chatID, err)
	}

	if receipt, ok := b.receiptOf(msg); ok {
		return b.submitReceipt(ctx, chatID, account.ID, receipt)
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, chatID, *account, text)
	}
	return b.search(ctx, chatID, account.ID, text)
}

func (b *Bot) receiptOf(msg *tgbotapi.Message) (services.Receipt, bool) {
	var fileID string
	var r services.Receipt
	switch {
	case len(msg.Photo) > 0:
		fileID = msg.Photo[len(msg.Photo)-1].FileID
		r.Filename = "receipt.jpg"
		r.ContentType = "image/jpeg"
	case msg.Document != nil:
		fileID = msg.Document.FileID
		r.Filename = msg.Document.FileName
		r.ContentType = msg.Document.MimeType
	default:
		return r, false
	}

	r.TransportRef = services.EvidenceTelegram + fileID
	return r, true
}

func (b *Bot) submitReceipt(ctx context.Context, chatID int64, accountID string, receipt services.Receipt) error {
	// Resolving the download link is an API call; skip it for accounts that
	// already wait on a review.
	pending, err := b.Workflow.HasPending(ctx, accountID)
	if err != nil {
		return b.replyErr(chatID, err)
	}
	if pending {
		return b.replyErr(chatID, payments.ErrDuplicatePendingClaim)
	}

	if fileID, ok := services.TelegramFileID(receipt.TransportRef); ok && b.FileURL != nil {
		url, err := b.FileURL(fileID)
		if err != nil {
			slog.Warn("Failed to resolve telegram file", slog.String("type", "sys"), slog.Any("error", err))
		}
		receipt.URL = url
	}

	submission, err := b.Receipts.Submit(ctx, b.Workflow, accountID, receipt, b.clock())
	if err != nil {
		return b.replyErr(chatID, err)
	}
	if submission.DeliveryErr != nil {
		slog.Warn("Claim saved but reviewers were not notified",
			slog.String("type", "cmd"),
			slog.Int64("claim_id", submission.Claim.ID),
			slog.Any("error", submission.DeliveryErr))
	}
	return b.reply(chatID, fmt.Sprintf("🧾 Receipt received. Claim #%d is waiting for review.", submission.Claim.ID))
}

func (b *Bot) search(ctx context.Context, chatID int64, accountID, query string) error {
	item, _, err := b.Library.Search(ctx, accountID, query, b.clock())
	if err != nil {
		return b.replyErr(chatID, err)
	}
	return b.sendItem(chatID, *item)
}

func (b *Bot) sendItem(chatID int64, item catalog.Item) error {
	if item.FileRef == "" {
		return b.reply(chatID, item.Caption())
	}

	var file tgbotapi.RequestFileData = tgbotapi.FileID(item.FileRef)
	if strings.HasPrefix(item.FileRef, "https://") || strings.HasPrefix(item.FileRef, "http://") {
		file = tgbotapi.FileURL(item.FileRef)
	}
	video := tgbotapi.NewVideo(chatID, file)
	video.Caption = item.Caption()
	_, err := b.API.Send(video)
	return err
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, account subscription.Account, text string) error {
	fields := strings.Fields(text)
	cmd, _, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	args := fields[1:]

	switch cmd {
	case "start":
		return b.reply(chatID, fmt.Sprintf("🎬 Welcome! Send a movie title or code to watch it.\n\n"+
			"Access costs one payment per %d days. Send a photo of your payment receipt here "+
			"and a reviewer will confirm it.\n\n%s", b.GrantDays, statusText(account, b.clock())))
	case "status":
		return b.reply(chatID, statusText(account, b.clock()))
	case "pending":
		return b.pending(ctx, chatID, account.ID)
	case "approve", "reject":
		if len(args) == 0 {
			return b.reply(chatID, fmt.Sprintf("Usage: /%s <claim> [reason]", cmd))
		}
		claimID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return b.reply(chatID, "Invalid claim number")
		}
		_, err = b.decide(ctx, chatID, account.ID, cmd, claimID, strings.Join(args[1:], " "))
		return err
	default:
		return b.search(ctx, chatID, account.ID, strings.TrimPrefix(text, "/"))
	}
}

func statusText(account subscription.Account, now time.Time) string {
	if subscription.CanAccess(account, now) {
		return fmt.Sprintf("📅 Active until %s (%s left)",
			utils.FormatEnd(account.SubscriptionEnd), utils.FormatRemaining(account.SubscriptionEnd, now))
	}
	if account.SubscriptionEnd == nil {
		return "📅 No subscription yet."
	}
	return fmt.Sprintf("📅 Expired on %s", utils.FormatEnd(account.SubscriptionEnd))
}

func (b *Bot) pending(ctx context.Context, chatID int64, reviewerID string) error {
	claims, err := b.Workflow.Pending(ctx, reviewerID, config.PendingPerPage*4)
	if err != nil {
		return b.replyErr(chatID, err)
	}
	if len(claims) == 0 {
		return b.reply(chatID, "No claims waiting for review.")
	}
	for _, c := range claims {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Claim #%d from %s, %s\n%s",
			c.ID, c.AccountID, c.CreatedAt.UTC().Format(utils.DateLayout), c.EvidenceRef))
		msg.ReplyMarkup = telegrambot.ReviewKeyboard(c.ID)
		if _, err := b.API.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

// decide applies a reviewer decision and reports whether the claim is no
// longer pending afterwards.
func (b *Bot) decide(ctx context.Context, chatID int64, reviewerID, action string, claimID int64, note string) (bool, error) {
	var (
		d   *payments.Decision
		err error
	)
	if action == "approve" {
		d, err = b.Workflow.ApproveClaim(ctx, claimID, reviewerID, b.clock())
	} else {
		d, err = b.Workflow.RejectClaim(ctx, claimID, reviewerID, note, b.clock())
	}
	if err != nil {
		return errors.Is(err, payments.ErrClaimNotFound), b.replyErr(chatID, err)
	}
	return true, b.reply(chatID, decisionText(d))
}

func decisionText(d *payments.Decision) string {
	if d.Claim.Status == payments.ClaimApproved {
		return fmt.Sprintf("✅ Claim #%d approved. %s has access until %s.",
			d.Claim.ID, d.Account.ID, utils.FormatEnd(d.Account.SubscriptionEnd))
	}
	return fmt.Sprintf("❌ Claim #%d rejected.", d.Claim.ID)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	if _, err := b.API.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		slog.Warn("Failed to answer callback", slog.String("type", "cmd"), slog.Any("error", err))
	}

	var action, rawID string
	switch {
	case strings.HasPrefix(cq.Data, telegrambot.CallbackApprove):
		action, rawID = "approve", strings.TrimPrefix(cq.Data, telegrambot.CallbackApprove)
	case strings.HasPrefix(cq.Data, telegrambot.CallbackReject):
		action, rawID = "reject", strings.TrimPrefix(cq.Data, telegrambot.CallbackReject)
	default:
		return nil
	}
	claimID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid callback data %q: %w", cq.Data, err)
	}

	chatID := cq.Message.Chat.ID
	settled, err := b.decide(ctx, chatID, strconv.FormatInt(cq.From.ID, 10), action, claimID, "")
	if err != nil || !settled {
		return err
	}

	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := b.API.Request(edit); err != nil {
		slog.Warn("Failed to clear review buttons", slog.String("type", "cmd"), slog.Any("error", err))
	}
	return nil
}
