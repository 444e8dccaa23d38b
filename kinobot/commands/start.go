package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

var Start = discord.SlashCommandCreate{
	Name:        "start",
	Description: "Register and see how to subscribe",
}

var Status = discord.SlashCommandCreate{
	Name:        "status",
	Description: "Show your subscription",
}

func StartHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		account, err := Register(ctx, b, e.User())
		if err != nil {
			return err
		}

		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title: "🎬 Welcome",
				Description: fmt.Sprintf("Send a title or code with /search or in a DM to get a movie.\n\n"+
					"Access costs one payment per %d days. Upload your receipt with /pay or as a DM attachment "+
					"and a reviewer will confirm it.\n\n%s",
					b.Cfg.Subscription.GrantDays, statusLine(*account, b)),
				Color: config.EmbedDefaultColor,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func StatusHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		account, err := Register(ctx, b, e.User())
		if err != nil {
			return err
		}

		color := config.WarningColor
		if subscription.CanAccess(*account, b.Clock()) {
			color = config.SuccessColor
		}
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "📅 Subscription",
				Description: statusLine(*account, b),
				Color:       color,
			}},
			Flags: discord.MessageFlagEphemeral,
		})
	}
}

func statusLine(account subscription.Account, b *kinobot.Bot) string {
	now := b.Clock()
	if subscription.CanAccess(account, now) {
		return fmt.Sprintf("**Active** until %s (%s left)",
			utils.FormatEnd(account.SubscriptionEnd), utils.FormatRemaining(account.SubscriptionEnd, now))
	}
	if account.SubscriptionEnd == nil {
		return "**No subscription yet.**"
	}
	return fmt.Sprintf("**Expired** on %s", utils.FormatEnd(account.SubscriptionEnd))
}
