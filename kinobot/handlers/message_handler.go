package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/commands"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
)

// MessageHandler answers direct messages: an attachment is a payment receipt,
// anything else is a catalog query.
func MessageHandler(b *kinobot.Bot) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.DMMessageCreate) {
		if e.Message.Author.Bot {
			return
		}

		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 2*config.CommandExecutionTimeout)
		defer cancel()

		reply, kind := Respond(ctx, b, e.Message)
		if reply == nil {
			return
		}
		reply.MessageReference = &discord.MessageReference{MessageID: &e.MessageID}

		if _, err := e.Client().Rest().CreateMessage(e.ChannelID, *reply, rest.WithCtx(ctx)); err != nil {
			slog.Error("Failed to answer direct message",
				slog.String("type", "cmd"),
				slog.String("user_id", e.Message.Author.ID.String()),
				slog.Any("error", err))
			return
		}

		slog.Info("Direct message handled",
			slog.String("type", "cmd"),
			slog.String("name", kind),
			slog.String("user_id", e.Message.Author.ID.String()),
			slog.String("user_name", e.Message.Author.Username),
			slog.Duration("took", time.Since(start)))
	})
}

// Respond builds the reply to a direct message. A nil reply means the message is ignored.
func Respond(ctx context.Context, b *kinobot.Bot, msg discord.Message) (*discord.MessageCreate, string) {
	text := strings.TrimSpace(msg.Content)
	if len(msg.Attachments) == 0 && (text == "" || strings.HasPrefix(text, "/")) {
		return nil, ""
	}

	if _, err := commands.Register(ctx, b, msg.Author); err != nil {
		return failed(err), "register"
	}
	accountID := msg.Author.ID.String()

	if len(msg.Attachments) > 0 {
		submission, err := commands.SubmitReceipt(ctx, b, accountID, commands.ReceiptFromAttachment(msg.Attachments[0]))
		if err != nil {
			return failed(err), "receipt"
		}
		return &discord.MessageCreate{Embeds: []discord.Embed{commands.SubmittedEmbed(submission)}}, "receipt"
	}

	item, _, err := b.Library.Search(ctx, accountID, text, b.Clock())
	if err != nil {
		return failed(err), "search"
	}
	return &discord.MessageCreate{Embeds: []discord.Embed{commands.ItemEmbed(*item)}}, "search"
}

func failed(err error) *discord.MessageCreate {
	msg, ok := commands.UserMessage(err)
	if !ok {
		slog.Error("Direct message failed", slog.String("type", "cmd"), slog.Any("error", err))
		msg = commands.GenericFailure
	}
	return &discord.MessageCreate{Embeds: []discord.Embed{{
		Description: msg,
		Color:       config.ErrorColor,
	}}}
}
