package payments

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

// Notifier delivers workflow outcomes to people. Calls happen after commit.
type Notifier interface {
	NotifyReviewerOfClaim(ctx context.Context, claim Claim, account subscription.Account) error
	NotifyApproved(ctx context.Context, accountID string, newEnd time.Time) error
	NotifyRejected(ctx context.Context, accountID string, note string) error
}
