package subscription

import (
	"errors"
	"time"
)

// DefaultGrant is one monthly payment worth of access.
const DefaultGrant = 30 * 24 * time.Hour

var ErrNonPositiveGrant = errors.New("grant must be positive")

// Extend returns a copy of account with the access window pushed forward by grant.
// A window that is still running is stacked on its current end; a lapsed or
// missing window restarts from now.
func Extend(account Account, now time.Time, grant time.Duration) (Account, error) {
	if grant <= 0 {
		return account, ErrNonPositiveGrant
	}

	base := now
	if account.SubscriptionEnd != nil && account.SubscriptionEnd.After(now) {
		base = *account.SubscriptionEnd
	}

	end := base.Add(grant)
	account.SubscriptionEnd = &end
	account.Status = StatusActive
	account.UpdatedAt = now
	return account, nil
}

// IsExpired reports whether the account has no usable window at now.
func IsExpired(account Account, now time.Time) bool {
	if account.Status != StatusActive || account.SubscriptionEnd == nil {
		return true
	}
	return !account.SubscriptionEnd.After(now)
}
