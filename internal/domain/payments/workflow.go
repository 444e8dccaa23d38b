package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

// Workflow owns the payment claim state machine and the grants it produces.
type Workflow struct {
	repository Repository
	reviewers  ReviewerPolicy
	notifier   Notifier
	grant      time.Duration
}

func NewWorkflow(repository Repository, reviewers ReviewerPolicy, notifier Notifier, grant time.Duration) (*Workflow, error) {
	if grant <= 0 {
		return nil, subscription.ErrNonPositiveGrant
	}
	return &Workflow{
		repository: repository,
		reviewers:  reviewers,
		notifier:   notifier,
		grant:      grant,
	}, nil
}

func (w *Workflow) Grant() time.Duration {
	return w.grant
}

func (w *Workflow) IsReviewer(id string) bool {
	return w.reviewers.IsReviewer(id)
}

// SubmitClaim records a pending claim for the account. The reviewer is told
// about the claim only after it is committed.
func (w *Workflow) SubmitClaim(ctx context.Context, accountID, evidenceRef string, now time.Time) (*Submission, error) {
	if strings.TrimSpace(evidenceRef) == "" {
		return nil, ErrMissingEvidence
	}

	var sub Submission
	err := w.repository.InAccountTx(ctx, accountID, func(ctx context.Context, tx Tx) error {
		account, err := tx.Account(ctx)
		if err != nil {
			return err
		}

		pending, err := tx.PendingClaim(ctx)
		if err != nil {
			return err
		}
		if pending != nil {
			return ErrDuplicatePendingClaim
		}

		claim := &Claim{
			AccountID:   accountID,
			EvidenceRef: evidenceRef,
			Status:      ClaimPending,
			CreatedAt:   now,
		}
		if err := tx.InsertClaim(ctx, claim); err != nil {
			return err
		}

		sub.Claim = *claim
		sub.Account = *account
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Payment claim submitted",
		slog.String("type", "sys"),
		slog.String("component", "approval"),
		slog.String("account_id", accountID),
		slog.Int64("claim_id", sub.Claim.ID))

	if err := w.notifier.NotifyReviewerOfClaim(ctx, sub.Claim, sub.Account); err != nil {
		sub.DeliveryErr = deliveryFailed("reviewer", accountID, err)
	}
	return &sub, nil
}

// HasPending reports whether the account already has a claim under review.
// Transports call it before doing any receipt I/O; SubmitClaim still enforces
// the single pending claim under the row lock.
func (w *Workflow) HasPending(ctx context.Context, accountID string) (bool, error) {
	var pending bool
	err := w.repository.InAccountTx(ctx, accountID, func(ctx context.Context, tx Tx) error {
		claim, err := tx.PendingClaim(ctx)
		if err != nil {
			return err
		}
		pending = claim != nil
		return nil
	})
	return pending, err
}

// ApproveClaim approves a pending claim and extends the owner's window by the
// configured grant in the same transaction. Repeated approvals of one claim
// fail with ErrClaimNotFound and change nothing.
func (w *Workflow) ApproveClaim(ctx context.Context, claimID int64, reviewerID string, now time.Time) (*Decision, error) {
	decision, err := w.resolve(ctx, claimID, reviewerID, ClaimApproved, "", now)
	if err != nil {
		return nil, err
	}

	slog.Info("Payment claim approved",
		slog.String("type", "sys"),
		slog.String("component", "approval"),
		slog.String("account_id", decision.Account.ID),
		slog.Int64("claim_id", claimID),
		slog.String("reviewer_id", reviewerID),
		slog.Time("new_end", decision.NewEnd()))

	if err := w.notifier.NotifyApproved(ctx, decision.Account.ID, decision.NewEnd()); err != nil {
		decision.DeliveryErr = deliveryFailed("approved", decision.Account.ID, err)
	}
	return decision, nil
}

// RejectClaim closes a pending claim without touching the account window.
func (w *Workflow) RejectClaim(ctx context.Context, claimID int64, reviewerID, note string, now time.Time) (*Decision, error) {
	decision, err := w.resolve(ctx, claimID, reviewerID, ClaimRejected, note, now)
	if err != nil {
		return nil, err
	}

	slog.Info("Payment claim rejected",
		slog.String("type", "sys"),
		slog.String("component", "approval"),
		slog.String("account_id", decision.Account.ID),
		slog.Int64("claim_id", claimID),
		slog.String("reviewer_id", reviewerID))

	if err := w.notifier.NotifyRejected(ctx, decision.Account.ID, note); err != nil {
		decision.DeliveryErr = deliveryFailed("rejected", decision.Account.ID, err)
	}
	return decision, nil
}

// Pending lists claims awaiting review, oldest first.
func (w *Workflow) Pending(ctx context.Context, reviewerID string, limit int) ([]*Claim, error) {
	if !w.reviewers.IsReviewer(reviewerID) {
		return nil, ErrUnauthorized
	}
	return w.repository.ListPending(ctx, limit)
}

func (w *Workflow) resolve(ctx context.Context, claimID int64, reviewerID string, status ClaimStatus, note string, now time.Time) (*Decision, error) {
	if !w.reviewers.IsReviewer(reviewerID) {
		return nil, ErrUnauthorized
	}

	owner, err := w.repository.ClaimOwner(ctx, claimID)
	if err != nil {
		return nil, err
	}

	var decision Decision
	err = w.repository.InAccountTx(ctx, owner, func(ctx context.Context, tx Tx) error {
		claim, err := tx.Claim(ctx, claimID)
		if err != nil {
			return err
		}
		if claim.Status != ClaimPending {
			return fmt.Errorf("%w: claim %d is %s", ErrClaimNotFound, claimID, claim.Status)
		}

		account, err := tx.Account(ctx)
		if err != nil {
			return err
		}

		if status == ClaimApproved {
			extended, err := subscription.Extend(*account, now, w.grant)
			if err != nil {
				return err
			}
			account = &extended
		}

		if err := tx.ResolveClaim(ctx, claimID, status, reviewerID, note, now); err != nil {
			return err
		}
		if status == ClaimApproved {
			if err := tx.SaveAccount(ctx, account); err != nil {
				return err
			}
		}

		claim.Status = status
		claim.ReviewerID = reviewerID
		claim.ReviewedAt = &now
		claim.Note = note
		decision.Claim = *claim
		decision.Account = *account
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: owner of claim %d is missing", ErrClaimNotFound, claimID)
		}
		return nil, err
	}
	return &decision, nil
}

func deliveryFailed(kind, accountID string, err error) error {
	wrapped := fmt.Errorf("%w: %s notification for %s: %v", ErrNotificationDeliveryFailed, kind, accountID, err)
	slog.Warn("Notification not delivered",
		slog.String("type", "sys"),
		slog.String("component", "approval"),
		slog.String("account_id", accountID),
		slog.String("notification", kind),
		slog.Any("error", err))
	return wrapped
}
