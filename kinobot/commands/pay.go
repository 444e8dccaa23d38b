package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

var Pay = discord.SlashCommandCreate{
	Name:        "pay",
	Description: "💳 Submit a payment receipt for review",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionAttachment{
			Name:        "receipt",
			Description: "Screenshot or photo of the payment",
			Required:    true,
		},
	},
}

func PayHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		attachment := e.SlashCommandInteractionData().Attachment("receipt")
		if err := e.DeferCreateMessage(true); err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*config.CommandExecutionTimeout)
		defer cancel()

		if _, err := Register(ctx, b, e.User()); err != nil {
			return utils.EH.UpdateInteractionResponse(e, "Payment Failed", failure(err))
		}

		submission, err := SubmitReceipt(ctx, b, e.User().ID.String(), ReceiptFromAttachment(attachment))
		if err != nil {
			return utils.EH.UpdateInteractionResponse(e, "Payment Failed", failure(err))
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{SubmittedEmbed(submission)},
		})
		return err
	}
}

// ReceiptFromAttachment describes a Discord upload as a receipt.
func ReceiptFromAttachment(a discord.Attachment) services.Receipt {
	r := services.Receipt{URL: a.URL, Filename: a.Filename}
	if a.ContentType != nil {
		r.ContentType = *a.ContentType
	}
	return r
}

// SubmitReceipt stores the upload and opens a claim for it.
func SubmitReceipt(ctx context.Context, b *kinobot.Bot, accountID string, receipt services.Receipt) (*payments.Submission, error) {
	submission, err := b.Receipts.Submit(ctx, b.Workflow, accountID, receipt, b.Clock())
	if err != nil {
		return nil, err
	}
	if submission.DeliveryErr != nil {
		slog.Warn("Claim saved but reviewers were not notified",
			slog.String("type", "cmd"),
			slog.Int64("claim_id", submission.Claim.ID),
			slog.Any("error", submission.DeliveryErr))
	}
	return submission, nil
}

func SubmittedEmbed(s *payments.Submission) discord.Embed {
	return discord.Embed{
		Title:       "🧾 Receipt received",
		Description: fmt.Sprintf("Claim #%d is waiting for review. You will get a message once it is checked.", s.Claim.ID),
		Color:       config.InfoColor,
	}
}
