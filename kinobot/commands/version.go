package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/kinobot/kinobot"
)

var Version = discord.SlashCommandCreate{
	Name:        "version",
	Description: "version command",
}

func VersionHandler(b *kinobot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		if err := e.DeferCreateMessage(false); err != nil {
			return err
		}
		content := versionText(b)
		_, err := e.UpdateInteractionResponse(discord.MessageUpdate{
			Content: &content,
		})
		return err
	}
}

func versionText(b *kinobot.Bot) string {
	return fmt.Sprintf("Version: %s\nCommit: %s", b.Version, b.Commit)
}
