package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
)

// Evidence reference prefixes. A reference is opaque to the payment domain;
// only transports and this service look inside.
const (
	EvidenceSpaces   = "s3:"
	EvidenceTelegram = "tg:"
)

// Receipt is an uploaded payment proof as seen by a transport.
type Receipt struct {
	URL          string
	TransportRef string
	Filename     string
	ContentType  string
}

type receiptArchive interface {
	ArchiveReceipt(ctx context.Context, accountID string, r Receipt) (string, error)
	PresignReceipt(ctx context.Context, key string, ttl time.Duration) (string, error)
	DeleteReceipt(ctx context.Context, key string) error
}

type claimSubmitter interface {
	HasPending(ctx context.Context, accountID string) (bool, error)
	SubmitClaim(ctx context.Context, accountID, evidenceRef string, now time.Time) (*payments.Submission, error)
}

// Receipts turns uploads into durable evidence references.
type Receipts struct {
	archive receiptArchive
}

// NewReceipts accepts a nil archive, in which case transport references are kept as is.
func NewReceipts(archive *SpacesService) *Receipts {
	if archive == nil {
		return &Receipts{}
	}
	return &Receipts{archive: archive}
}

// Store archives the receipt when object storage is configured and falls back
// to the transport reference when it is not or when archiving fails.
func (r *Receipts) Store(ctx context.Context, accountID string, receipt Receipt) (string, error) {
	if r.archive != nil && receipt.URL != "" {
		key, err := r.archive.ArchiveReceipt(ctx, accountID, receipt)
		if err == nil {
			return EvidenceSpaces + key, nil
		}
		slog.Warn("Receipt archive failed, keeping transport reference",
			slog.String("type", "sys"),
			slog.String("account_id", accountID),
			slog.Any("error", err))
	}

	switch {
	case receipt.TransportRef != "":
		return receipt.TransportRef, nil
	case receipt.URL != "":
		return receipt.URL, nil
	default:
		return "", fmt.Errorf("receipt from %s has no reference", accountID)
	}
}

// Submit opens a claim for the receipt. Accounts with a claim under review
// are turned away before the receipt is downloaded, and an archived copy is
// removed again when the claim is not created.
func (r *Receipts) Submit(ctx context.Context, claims claimSubmitter, accountID string, receipt Receipt, now time.Time) (*payments.Submission, error) {
	pending, err := claims.HasPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, payments.ErrDuplicatePendingClaim
	}

	ref, err := r.Store(ctx, accountID, receipt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", payments.ErrMissingEvidence, err)
	}

	submission, err := claims.SubmitClaim(ctx, accountID, ref, now)
	if err != nil {
		r.discard(context.WithoutCancel(ctx), accountID, ref)
		return nil, err
	}
	return submission, nil
}

func (r *Receipts) discard(ctx context.Context, accountID, ref string) {
	if r.archive == nil || !strings.HasPrefix(ref, EvidenceSpaces) {
		return
	}
	if err := r.archive.DeleteReceipt(ctx, strings.TrimPrefix(ref, EvidenceSpaces)); err != nil {
		slog.Warn("Failed to remove unused receipt",
			slog.String("type", "sys"),
			slog.String("account_id", accountID),
			slog.String("ref", ref),
			slog.Any("error", err))
	}
}

// Link returns a URL a reviewer can open, or "" when the reference is only
// meaningful to its transport.
func (r *Receipts) Link(ctx context.Context, ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, EvidenceSpaces):
		if r.archive == nil {
			return "", fmt.Errorf("archived receipt %s but object storage is not configured", ref)
		}
		return r.archive.PresignReceipt(ctx, strings.TrimPrefix(ref, EvidenceSpaces), 24*time.Hour)
	case strings.HasPrefix(ref, "https://"), strings.HasPrefix(ref, "http://"):
		return ref, nil
	default:
		return "", nil
	}
}

// TelegramFileID extracts the file id from a Telegram evidence reference.
func TelegramFileID(ref string) (string, bool) {
	if !strings.HasPrefix(ref, EvidenceTelegram) {
		return "", false
	}
	return strings.TrimPrefix(ref, EvidenceTelegram), true
}
