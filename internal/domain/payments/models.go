package payments

import (
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

type ClaimStatus string

const (
	ClaimPending  ClaimStatus = "pending"
	ClaimApproved ClaimStatus = "approved"
	ClaimRejected ClaimStatus = "rejected"
)

// Claim is a user's assertion that they paid, backed by a receipt.
type Claim struct {
	ID          int64
	AccountID   string
	EvidenceRef string
	Status      ClaimStatus
	CreatedAt   time.Time
	ReviewerID  string
	ReviewedAt  *time.Time
	Note        string
}

// Submission is the result of a successful SubmitClaim.
// DeliveryErr is set when the reviewer could not be told about the claim.
type Submission struct {
	Claim       Claim
	Account     subscription.Account
	DeliveryErr error
}

// Decision is the result of a successful ApproveClaim or RejectClaim.
type Decision struct {
	Claim       Claim
	Account     subscription.Account
	DeliveryErr error
}

// NewEnd is the access window end after the decision.
func (d Decision) NewEnd() time.Time {
	return d.Account.EndOrZero()
}
