package commands

import (
	"log/slog"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/utils"
)

var Search = discord.SlashCommandCreate{
	Name:        "search",
	Description: "🔍 Find a movie by title or code",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "Title or code",
			Required:    true,
		},
	},
}

func SearchHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		query := strings.TrimSpace(e.SlashCommandInteractionData().String("query"))
		if err := e.DeferCreateMessage(true); err != nil {
			return err
		}

		ctx, cancel := commandContext()
		defer cancel()

		if _, err := Register(ctx, b, e.User()); err != nil {
			return utils.EH.UpdateInteractionResponse(e, "Search Failed", err.Error())
		}

		item, _, err := b.Library.Search(ctx, e.User().ID.String(), query, b.Clock())
		if err != nil {
			if _, ok := UserMessage(err); !ok {
				slog.Error("Search failed",
					slog.String("type", "cmd"),
					slog.String("query", query),
					slog.Any("error", err))
			}
			return utils.EH.UpdateInteractionResponse(e, "Search Failed", failure(err))
		}

		_, err = e.UpdateInteractionResponse(discord.MessageUpdate{
			Embeds: &[]discord.Embed{ItemEmbed(*item)},
		})
		return err
	}
}

// ItemEmbed shows a catalog item. Media hosted over http is linked directly.
func ItemEmbed(item catalog.Item) discord.Embed {
	embed := discord.Embed{
		Title:       "🎬 " + item.Title,
		Description: item.Caption(),
		Color:       config.EmbedDefaultColor,
	}
	if strings.HasPrefix(item.FileRef, "https://") || strings.HasPrefix(item.FileRef, "http://") {
		embed.URL = item.FileRef
	}
	return embed
}
