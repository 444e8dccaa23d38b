package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/discordbot"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

const (
	decisionApprove = "approve"
	decisionReject  = "reject"
)

var Review = discord.SlashCommandCreate{
	Name:        "review",
	Description: "Approve or reject a payment claim",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "claim",
			Description: "Claim number",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "decision",
			Description: "What to do with the claim",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Approve", Value: decisionApprove},
				{Name: "Reject", Value: decisionReject},
			},
		},
		discord.ApplicationCommandOptionString{
			Name:        "note",
			Description: "Reason shown to the user when rejecting",
			Required:    false,
		},
	},
}

func decide(ctx context.Context, b *kinobot.Bot, decision string, claimID int64, reviewerID, note string) (*payments.Decision, error) {
	if decision == decisionApprove {
		return b.Workflow.ApproveClaim(ctx, claimID, reviewerID, b.Clock())
	}
	return b.Workflow.RejectClaim(ctx, claimID, reviewerID, note, b.Clock())
}

func decisionText(d *payments.Decision) string {
	if d.Claim.Status == payments.ClaimApproved {
		return fmt.Sprintf("Claim #%d approved. <@%s> has access until %s.",
			d.Claim.ID, d.Account.ID, utils.FormatEnd(d.Account.SubscriptionEnd))
	}
	return fmt.Sprintf("Claim #%d rejected.", d.Claim.ID)
}

func ReviewHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		data := e.SlashCommandInteractionData()
		note, _ := data.OptString("note")

		ctx, cancel := commandContext()
		defer cancel()

		d, err := decide(ctx, b, data.String("decision"), int64(data.Int("claim")), e.User().ID.String(), note)
		if err != nil {
			return utils.EH.HandleError(e, failure(err))
		}
		return utils.EH.CreateSuccessEmbed(e, decisionText(d))
	}
}

// ClaimComponentHandler handles the approve and reject buttons on reviewer DMs.
// Reject opens a modal for an optional note.
func ClaimComponentHandler(b *kinobot.Bot) handler.ComponentHandler {
	return func(e *handler.ComponentEvent) error {
		claimID, err := strconv.ParseInt(e.Vars["id"], 10, 64)
		if err != nil {
			return utils.EH.CreateEphemeralError(e, "Invalid claim id")
		}
		if !b.Workflow.IsReviewer(e.User().ID.String()) {
			return utils.EH.CreateEphemeralError(e, failure(payments.ErrUnauthorized))
		}

		switch e.Vars["action"] {
		case decisionApprove:
		case decisionReject:
			return e.Modal(discord.ModalCreate{
				CustomID: fmt.Sprintf("/claim/note/%d", claimID),
				Title:    fmt.Sprintf("Reject claim #%d", claimID),
				Components: []discord.ContainerComponent{
					discord.NewActionRow(
						discord.NewParagraphTextInput("note", "Reason for the user").
							WithRequired(false).
							WithMaxLength(500),
					),
				},
			})
		default:
			return utils.EH.CreateEphemeralError(e, "Unknown action")
		}

		ctx, cancel := commandContext()
		defer cancel()

		d, err := decide(ctx, b, decisionApprove, claimID, e.User().ID.String(), "")
		if err != nil {
			return utils.EH.CreateEphemeralError(e, failure(err))
		}
		return e.UpdateMessage(decidedMessage(e.Message, d))
	}
}

func RejectNoteHandler(b *kinobot.Bot) handler.ModalHandler {
	return func(e *handler.ModalEvent) error {
		claimID, err := strconv.ParseInt(e.Vars["id"], 10, 64)
		if err != nil {
			return utils.EH.HandleError(e, "Invalid claim id")
		}

		ctx, cancel := commandContext()
		defer cancel()

		d, err := decide(ctx, b, decisionReject, claimID, e.User().ID.String(), e.Data.Text("note"))
		if err != nil {
			return utils.EH.HandleError(e, failure(err))
		}
		return e.CreateMessage(discord.MessageCreate{
			Content: "✅ " + decisionText(d),
			Flags:   discord.MessageFlagEphemeral,
		})
	}
}

// decidedMessage freezes the reviewer message once the claim is decided.
func decidedMessage(msg discord.Message, d *payments.Decision) discord.MessageUpdate {
	embeds := make([]discord.Embed, len(msg.Embeds))
	copy(embeds, msg.Embeds)
	if len(embeds) > 0 {
		embeds[0].Color = config.SuccessColor
		if d.Claim.Status == payments.ClaimRejected {
			embeds[0].Color = config.ErrorColor
		}
		embeds[0].Footer = &discord.EmbedFooter{Text: decisionText(d)}
	}
	return discord.MessageUpdate{
		Embeds:     &embeds,
		Components: &[]discord.ContainerComponent{discordbot.ClaimButtons(d.Claim.ID, true)},
	}
}
