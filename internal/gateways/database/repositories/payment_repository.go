package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/logger"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

// PaymentRepository serializes all claim work for one account behind a
// SELECT ... FOR UPDATE on the account row.
type PaymentRepository struct {
	*BaseRepository
}

func NewPaymentRepository(db *bun.DB) *PaymentRepository {
	return &PaymentRepository{BaseRepository: NewBaseRepository(db)}
}

func toClaim(m *models.PaymentClaim) *payments.Claim {
	return &payments.Claim{
		ID:          m.ID,
		AccountID:   m.AccountID,
		EvidenceRef: m.EvidenceRef,
		Status:      payments.ClaimStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		ReviewerID:  m.ReviewerID,
		ReviewedAt:  m.ReviewedAt,
		Note:        m.Note,
	}
}

func (r *PaymentRepository) InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx payments.Tx) error) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		account := new(models.Account)
		err := tx.NewSelect().
			Model(account).
			Where("id = ?", accountID).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return payments.ErrAccountNotFound
		}
		if err != nil {
			return r.HandleError("lock", "account", err)
		}
		return fn(ctx, &paymentTx{tx: tx, account: account})
	})
}

func (r *PaymentRepository) ClaimOwner(ctx context.Context, claimID int64) (string, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var owner string
	err := r.db.NewSelect().
		Model((*models.PaymentClaim)(nil)).
		Column("account_id").
		Where("id = ?", claimID).
		Scan(ctx, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", payments.ErrClaimNotFound
	}
	if err != nil {
		return "", r.HandleError("owner", "payment_claim", err)
	}
	return owner, nil
}

func (r *PaymentRepository) GetClaim(ctx context.Context, claimID int64) (*payments.Claim, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	claim := new(models.PaymentClaim)
	err := r.db.NewSelect().
		Model(claim).
		Where("id = ?", claimID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payments.ErrClaimNotFound
	}
	if err != nil {
		return nil, r.HandleError("get", "payment_claim", err)
	}
	return toClaim(claim), nil
}

func (r *PaymentRepository) ListPending(ctx context.Context, limit int) ([]*payments.Claim, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.PaymentClaim
	q := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", payments.ClaimPending).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, r.HandleError("list_pending", "payment_claim", err)
	}

	claims := make([]*payments.Claim, 0, len(rows))
	for _, m := range rows {
		claims = append(claims, toClaim(m))
	}
	return claims, nil
}

type paymentTx struct {
	tx      bun.Tx
	account *models.Account
}

func (t *paymentTx) Account(_ context.Context) (*subscription.Account, error) {
	return toAccount(t.account), nil
}

func (t *paymentTx) SaveAccount(ctx context.Context, account *subscription.Account) error {
	if account.ID != t.account.ID {
		return fmt.Errorf("account %s is not locked by this transaction", account.ID)
	}

	m := fromAccount(account)
	ql := logger.NewQueryLogger("save_account", "UPDATE accounts SET status, subscription_end", account.ID)
	res, err := t.tx.NewUpdate().
		Model(m).
		Column("status", "subscription_end", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		ql.Log(err, 0)
		return fmt.Errorf("failed to save account: %w", err)
	}
	rows, _ := res.RowsAffected()
	ql.Log(nil, rows)

	t.account = m
	return nil
}

func (t *paymentTx) PendingClaim(ctx context.Context) (*payments.Claim, error) {
	claim := new(models.PaymentClaim)
	err := t.tx.NewSelect().
		Model(claim).
		Where("account_id = ?", t.account.ID).
		Where("status = ?", payments.ClaimPending).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check pending claim: %w", err)
	}
	return toClaim(claim), nil
}

func (t *paymentTx) InsertClaim(ctx context.Context, claim *payments.Claim) error {
	m := &models.PaymentClaim{
		AccountID:   claim.AccountID,
		EvidenceRef: claim.EvidenceRef,
		Status:      string(claim.Status),
		CreatedAt:   claim.CreatedAt,
	}

	ql := logger.NewQueryLogger("insert_claim", "INSERT INTO payment_claims", claim.AccountID)
	_, err := t.tx.NewInsert().
		Model(m).
		Returning("id").
		Exec(ctx)
	if err != nil {
		ql.Log(err, 0)
		if IsUniqueViolation(err) {
			return payments.ErrDuplicatePendingClaim
		}
		return fmt.Errorf("failed to insert claim: %w", err)
	}
	ql.Log(nil, 1)

	claim.ID = m.ID
	return nil
}

func (t *paymentTx) Claim(ctx context.Context, claimID int64) (*payments.Claim, error) {
	claim := new(models.PaymentClaim)
	err := t.tx.NewSelect().
		Model(claim).
		Where("id = ?", claimID).
		Where("account_id = ?", t.account.ID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, payments.ErrClaimNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return toClaim(claim), nil
}

func (t *paymentTx) ResolveClaim(ctx context.Context, claimID int64, status payments.ClaimStatus, reviewerID, note string, at time.Time) error {
	ql := logger.NewQueryLogger("resolve_claim", "UPDATE payment_claims SET status", claimID, status)
	res, err := t.tx.NewUpdate().
		Model((*models.PaymentClaim)(nil)).
		Set("status = ?", status).
		Set("reviewer_id = ?", reviewerID).
		Set("reviewed_at = ?", at).
		Set("note = ?", note).
		Where("id = ?", claimID).
		Where("account_id = ?", t.account.ID).
		Where("status = ?", payments.ClaimPending).
		Exec(ctx)
	if err != nil {
		ql.Log(err, 0)
		return fmt.Errorf("failed to resolve claim: %w", err)
	}

	rows, err := res.RowsAffected()
	ql.Log(err, rows)
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return payments.ErrClaimNotFound
	}
	return nil
}
