package payments

import (
	"errors"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

var (
	ErrDuplicatePendingClaim      = errors.New("a payment claim is already pending review")
	ErrUnauthorized               = errors.New("reviewer is not authorized")
	ErrClaimNotFound              = errors.New("payment claim not found or already processed")
	ErrAccountNotFound            = subscription.ErrAccountNotFound
	ErrMissingEvidence            = errors.New("payment evidence is required")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
)
