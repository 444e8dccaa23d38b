package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/disgoorg/disgo/discord"
	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
)

var Commands = []discord.ApplicationCommandCreate{
	Start,
	Status,
	Search,
	Pay,
	Pending,
	Review,
	Version,
}

// Register creates the caller's account on first contact.
func Register(ctx context.Context, b *kinobot.Bot, user discord.User) (*subscription.Account, error) {
	account, _, err := b.Accounts.Register(ctx, user.ID.String(), user.EffectiveName(), user.Username, b.Clock())
	return account, err
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), config.CommandExecutionTimeout)
}

// UserMessage maps domain errors to text a user can act on. Unknown errors
// return false and should be logged instead of shown.
func UserMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		return "You need an active subscription. Send a payment receipt with /pay or in a DM.", true
	case errors.Is(err, catalog.ErrItemNotFound):
		return "Nothing found. Try another title or code.", true
	case errors.Is(err, payments.ErrDuplicatePendingClaim):
		return "You already have a payment under review. Please wait for a decision.", true
	case errors.Is(err, payments.ErrMissingEvidence):
		return "Attach a photo or file of your receipt.", true
	case errors.Is(err, payments.ErrUnauthorized):
		return "Only reviewers can do that.", true
	case errors.Is(err, payments.ErrClaimNotFound):
		return "Claim not found or already processed.", true
	case errors.Is(err, payments.ErrAccountNotFound):
		return "Unknown account. Use /start first.", true
	default:
		return "", false
	}
}

// GenericFailure is shown for errors that have no user facing meaning.
const GenericFailure = "Something went wrong. Please try again later."

func failure(err error) string {
	if msg, ok := UserMessage(err); ok {
		return msg
	}
	slog.Error("Request failed",
		slog.String("type", "cmd"),
		slog.Any("error", err))
	return GenericFailure
}
