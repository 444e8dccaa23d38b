package expiry

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

type Repository interface {
	// ListLapsed returns accounts still marked active whose window ended at or before now.
	ListLapsed(ctx context.Context, now time.Time) ([]subscription.Account, error)
	// Expire demotes one account if it is still active and lapsed at now.
	// It reports whether this call made the change.
	Expire(ctx context.Context, accountID string, now time.Time) (bool, error)
}

type Notifier interface {
	NotifyExpired(ctx context.Context, accountID string, end time.Time) error
}
