package discordbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

// Messenger is the part of rest.Rest used to reach users in DMs.
type Messenger interface {
	CreateDMChannel(userID snowflake.ID, opts ...rest.RequestOpt) (*discord.DMChannel, error)
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// EvidenceLinker resolves an evidence reference to a link a reviewer can open.
type EvidenceLinker interface {
	Link(ctx context.Context, ref string) (string, error)
}

// Notifier delivers payment and expiry events as direct messages.
type Notifier struct {
	rest      Messenger
	reviewers []string
	evidence  EvidenceLinker
}

func NewNotifier(rest Messenger, reviewers []string, evidence EvidenceLinker) *Notifier {
	return &Notifier{rest: rest, reviewers: reviewers, evidence: evidence}
}

func (n *Notifier) send(ctx context.Context, userID string, msg discord.MessageCreate) error {
	id, err := snowflake.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid discord user id %q: %w", userID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.NotificationTimeout)
	defer cancel()

	channel, err := n.rest.CreateDMChannel(id, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open dm with %s: %w", userID, err)
	}
	if _, err = n.rest.CreateMessage(channel.ID(), msg, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to message %s: %w", userID, err)
	}
	return nil
}

// NotifyReviewerOfClaim sends the claim to every reviewer. It fails only when
// no reviewer could be reached.
func (n *Notifier) NotifyReviewerOfClaim(ctx context.Context, claim payments.Claim, account subscription.Account) error {
	link, err := n.evidence.Link(ctx, claim.EvidenceRef)
	if err != nil {
		slog.Warn("Failed to resolve evidence link",
			slog.String("type", "sys"),
			slog.Int64("claim_id", claim.ID),
			slog.Any("error", err))
	}

	msg := discord.MessageCreate{
		Embeds:     []discord.Embed{ClaimEmbed(claim, account, link)},
		Components: []discord.ContainerComponent{ClaimButtons(claim.ID, false)},
	}

	var errs []error
	for _, reviewer := range n.reviewers {
		if err := n.send(ctx, reviewer, msg); err != nil {
			errs = append(errs, err)
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

func (n *Notifier) NotifyApproved(ctx context.Context, accountID string, newEnd time.Time) error {
	return n.send(ctx, accountID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "✅ Payment approved",
			Description: fmt.Sprintf("Your subscription is active until **%s**.", utils.FormatEnd(&newEnd)),
			Color:       config.SuccessColor,
		}},
	})
}

func (n *Notifier) NotifyRejected(ctx context.Context, accountID, note string) error {
	description := "Your payment could not be confirmed. Send a new receipt if you think this is a mistake."
	if note != "" {
		description += "\n\n> " + note
	}
	return n.send(ctx, accountID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "❌ Payment rejected",
			Description: description,
			Color:       config.ErrorColor,
		}},
	})
}

func (n *Notifier) NotifyExpired(ctx context.Context, accountID string, end time.Time) error {
	return n.send(ctx, accountID, discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "⌛ Subscription expired",
			Description: fmt.Sprintf("Your access ended on %s. Send a payment receipt here to renew.", utils.FormatEnd(&end)),
			Color:       config.WarningColor,
		}},
	})
}

// ClaimEmbed renders a claim for reviewers.
func ClaimEmbed(claim payments.Claim, account subscription.Account, evidenceLink string) discord.Embed {
	name := account.DisplayName
	if account.Username != "" {
		name = fmt.Sprintf("%s (@%s)", name, account.Username)
	}

	var desc strings.Builder
	fmt.Fprintf(&desc, "**User:** %s `%s`\n", strings.TrimSpace(name), account.ID)
	fmt.Fprintf(&desc, "**Current end:** %s\n", utils.FormatEnd(account.SubscriptionEnd))
	fmt.Fprintf(&desc, "**Submitted:** <t:%d:R>\n", claim.CreatedAt.Unix())
	switch {
	case evidenceLink != "":
		fmt.Fprintf(&desc, "**Receipt:** [open](%s)", evidenceLink)
	default:
		fmt.Fprintf(&desc, "**Receipt:** `%s`", claim.EvidenceRef)
	}

	embed := discord.Embed{
		Title:       fmt.Sprintf("💳 Payment claim #%d", claim.ID),
		Description: desc.String(),
		Color:       config.InfoColor,
	}
	if evidenceLink != "" {
		embed.Image = &discord.EmbedResource{URL: evidenceLink}
	}
	return embed
}

// ClaimButtons are the reviewer actions for a claim.
func ClaimButtons(claimID int64, disabled bool) discord.ActionRowComponent {
	return discord.NewActionRow(
		discord.NewSuccessButton("Approve", fmt.Sprintf("/claim/approve/%d", claimID)).WithDisabled(disabled),
		discord.NewDangerButton("Reject", fmt.Sprintf("/claim/reject/%d", claimID)).WithDisabled(disabled),
	)
}
