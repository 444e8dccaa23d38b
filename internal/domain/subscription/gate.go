package subscription

import "time"

// CanAccess is the single authority on gated features.
func CanAccess(account Account, now time.Time) bool {
	return account.Status == StatusActive &&
		account.SubscriptionEnd != nil &&
		account.SubscriptionEnd.After(now)
}
