package commands

import (
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

const maxPendingListed = 100

var Pending = discord.SlashCommandCreate{
	Name:        "pending",
	Description: "List payment claims waiting for review",
}

func PendingHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := commandContext()
		defer cancel()

		claims, err := b.Workflow.Pending(ctx, e.User().ID.String(), maxPendingListed)
		if err != nil {
			return utils.EH.HandleError(e, failure(err))
		}
		if len(claims) == 0 {
			return utils.EH.CreateInfoEmbed(e, "No claims waiting for review.")
		}

		totalPages := int(math.Ceil(float64(len(claims)) / float64(config.PendingPerPage)))
		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				start := page * config.PendingPerPage
				end := min(start+config.PendingPerPage, len(claims))
				embed.
					SetTitle("💳 Pending claims").
					SetDescription(pendingDescription(claims[start:end])).
					SetColor(config.InfoColor).
					SetFooter(fmt.Sprintf("Page %d/%d • Total: %d • /review to decide", page+1, totalPages, len(claims)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, true)
	}
}

func pendingDescription(claims []*payments.Claim) string {
	var b strings.Builder
	for _, c := range claims {
		fmt.Fprintf(&b, "**#%d** • <@%s> • <t:%d:R>\n`%s`\n", c.ID, c.AccountID, c.CreatedAt.Unix(), c.EvidenceRef)
	}
	return b.String()
}
