package subscription

import "time"

type Status string

const (
	StatusExpired Status = "expired"
	StatusActive  Status = "active"
)

// Account is a chat user and their current access window.
type Account struct {
	ID              string
	Status          Status
	SubscriptionEnd *time.Time
	DisplayName     string
	Username        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EndOrZero returns the window end, or the zero time when none was ever granted.
func (a Account) EndOrZero() time.Time {
	if a.SubscriptionEnd == nil {
		return time.Time{}
	}
	return *a.SubscriptionEnd
}
