package payments

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

// Repository gives transactional access to one account and its claims.
type Repository interface {
	// InAccountTx runs fn while holding the account row lock. Changes made through
	// tx are committed only when fn returns nil. Returns ErrAccountNotFound when
	// the account does not exist.
	InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx Tx) error) error
	// ClaimOwner returns the account id of a claim, or ErrClaimNotFound.
	ClaimOwner(ctx context.Context, claimID int64) (string, error)
	GetClaim(ctx context.Context, claimID int64) (*Claim, error)
	ListPending(ctx context.Context, limit int) ([]*Claim, error)
}

// Tx is scoped to the account locked by InAccountTx.
type Tx interface {
	Account(ctx context.Context) (*subscription.Account, error)
	SaveAccount(ctx context.Context, account *subscription.Account) error
	// PendingClaim returns nil without error when the account has no pending claim.
	PendingClaim(ctx context.Context) (*Claim, error)
	// InsertClaim assigns claim.ID. A second pending claim fails with ErrDuplicatePendingClaim.
	InsertClaim(ctx context.Context, claim *Claim) error
	// Claim returns ErrClaimNotFound when the claim does not belong to the locked account.
	Claim(ctx context.Context, claimID int64) (*Claim, error)
	// ResolveClaim moves a pending claim to status. It returns ErrClaimNotFound
	// when the claim is no longer pending.
	ResolveClaim(ctx context.Context, claimID int64, status ClaimStatus, reviewerID, note string, at time.Time) error
}
