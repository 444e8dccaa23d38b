package telegrambot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	CallbackApprove = "approve:"
	CallbackReject  = "reject:"
)

// Sender is the part of *tgbotapi.BotAPI used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// EvidenceLinker resolves an evidence reference to a link a reviewer can open.
type EvidenceLinker interface {
	Link(ctx context.Context, ref string) (string, error)
}

// Notifier delivers payment and expiry events as private chat messages.
// Account ids are Telegram user ids, which double as private chat ids.
type Notifier struct {
	api       Sender
	reviewers []string
	evidence  EvidenceLinker
}

func NewNotifier(api Sender, reviewers []string, evidence EvidenceLinker) *Notifier {
	return &Notifier{api: api, reviewers: reviewers, evidence: evidence}
}

func ChatID(accountID string) (int64, error) {
	id, err := strconv.ParseInt(accountID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram user id %q: %w", accountID, err)
	}
	return id, nil
}

func (n *Notifier) text(accountID, text string) error {
	chatID, err := ChatID(accountID)
	if err != nil {
		return err
	}
	if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to message %s: %w", accountID, err)
	}
	return nil
}

// ReviewKeyboard holds the approve and reject buttons for a claim.
func ReviewKeyboard(claimID int64) tgbotapi.InlineKeyboardMarkup {
	id := strconv.FormatInt(claimID, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", CallbackApprove+id),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", CallbackReject+id),
		),
	)
}

// ClaimCaption describes a claim for reviewers.
func ClaimCaption(claim payments.Claim, account subscription.Account) string {
	name := strings.TrimSpace(account.DisplayName)
	if account.Username != "" {
		name += " @" + account.Username
	}
	return fmt.Sprintf("💳 Payment claim #%d\nUser: %s (%s)\nCurrent end: %s\nSubmitted: %s\n\nReject with a reason: /reject %d <reason>",
		claim.ID, strings.TrimSpace(name), account.ID,
		utils.FormatEnd(account.SubscriptionEnd),
		claim.CreatedAt.UTC().Format(utils.DateLayout),
		claim.ID)
}

func (n *Notifier) sendClaim(ctx context.Context, chatID int64, claim payments.Claim, caption string) error {
	keyboard := ReviewKeyboard(claim.ID)

	if fileID, ok := services.TelegramFileID(claim.EvidenceRef); ok {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
		photo.Caption = caption
		photo.ReplyMarkup = keyboard
		if _, err := n.api.Send(photo); err == nil {
			return nil
		}
		// Receipts sent as files are documents, not photos.
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
		doc.Caption = caption
		doc.ReplyMarkup = keyboard
		_, err := n.api.Send(doc)
		return err
	}

	link, err := n.evidence.Link(ctx, claim.EvidenceRef)
	if err != nil || link == "" {
		link = claim.EvidenceRef
	}
	msg := tgbotapi.NewMessage(chatID, caption+"\n\nReceipt: "+link)
	msg.ReplyMarkup = keyboard
	_, err = n.api.Send(msg)
	return err
}

// NotifyReviewerOfClaim sends the claim to every reviewer. It fails only when
// no reviewer could be reached.
func (n *Notifier) NotifyReviewerOfClaim(ctx context.Context, claim payments.Claim, account subscription.Account) error {
	caption := ClaimCaption(claim, account)

	var errs []error
	for _, reviewer := range n.reviewers {
		chatID, err := ChatID(reviewer)
		if err == nil {
			err = n.sendClaim(ctx, chatID, claim, caption)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("reviewer %s: %w", reviewer, err))
		}
	}
	if len(errs) == len(n.reviewers) {
		return errors.Join(append(errs, errors.New("no reviewer reachable"))...)
	}
	for _, err := range errs {
		slog.Warn("Reviewer not reachable", slog.String("type", "sys"), slog.Any("error", err))
	}
	return nil
}

func (n *Notifier) NotifyApproved(_ context.Context, accountID string, newEnd time.Time) error {
	return n.text(accountID, fmt.Sprintf("✅ Payment approved. Your subscription is active until %s.", utils.FormatEnd(&newEnd)))
}

func (n *Notifier) NotifyRejected(_ context.Context, accountID, note string) error {
	text := "❌ Your payment could not be confirmed. Send a new receipt if you think this is a mistake."
	if note != "" {
		text += "\n\nReason: " + note
	}
	return n.text(accountID, text)
}

func (n *Notifier) NotifyExpired(_ context.Context, accountID string, end time.Time) error {
	return n.text(accountID, fmt.Sprintf("⌛ Your subscription ended on %s. Send a payment receipt to renew.", utils.FormatEnd(&end)))
}
