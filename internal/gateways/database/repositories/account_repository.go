package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/logger"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

// AccountRepository backs both the subscription service and the expiry sweeper.
type AccountRepository struct {
	*BaseRepository
}

func NewAccountRepository(db *bun.DB) *AccountRepository {
	return &AccountRepository{BaseRepository: NewBaseRepository(db)}
}

func toAccount(m *models.Account) *subscription.Account {
	return &subscription.Account{
		ID:              m.ID,
		Status:          subscription.Status(m.Status),
		SubscriptionEnd: m.SubscriptionEnd,
		DisplayName:     m.DisplayName,
		Username:        m.Username,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func fromAccount(a *subscription.Account) *models.Account {
	return &models.Account{
		ID:              a.ID,
		Status:          string(a.Status),
		SubscriptionEnd: a.SubscriptionEnd,
		DisplayName:     a.DisplayName,
		Username:        a.Username,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*subscription.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	account := new(models.Account)
	err := r.db.NewSelect().
		Model(account).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, subscription.ErrAccountNotFound
	}
	if err != nil {
		return nil, r.HandleError("get", "account", err)
	}
	return toAccount(account), nil
}

func (r *AccountRepository) Create(ctx context.Context, account *subscription.Account) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	res, err := r.db.NewInsert().
		Model(fromAccount(account)).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, r.HandleError("create", "account", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *AccountRepository) ListLapsed(ctx context.Context, now time.Time) ([]subscription.Account, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Account
	err := r.db.NewSelect().
		Model(&rows).
		Where("status = ?", subscription.StatusActive).
		Where("(subscription_end IS NULL OR subscription_end <= ?)", now).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_lapsed", "account", err)
	}

	accounts := make([]subscription.Account, 0, len(rows))
	for _, m := range rows {
		accounts = append(accounts, *toAccount(m))
	}
	return accounts, nil
}

// Expire is a conditional write: a concurrent approval that extended the
// window, or another sweep that already demoted the account, leaves zero rows.
func (r *AccountRepository) Expire(ctx context.Context, accountID string, now time.Time) (bool, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	ql := logger.NewQueryLogger("expire_account", "UPDATE accounts SET status = expired", accountID, now)
	res, err := r.db.NewUpdate().
		Model((*models.Account)(nil)).
		Set("status = ?", subscription.StatusExpired).
		Set("updated_at = ?", now).
		Where("id = ?", accountID).
		Where("status = ?", subscription.StatusActive).
		Where("(subscription_end IS NULL OR subscription_end <= ?)", now).
		Exec(ctx)
	if err != nil {
		ql.Log(err, 0)
		return false, r.HandleError("expire", "account", err)
	}

	rows, err := res.RowsAffected()
	ql.Log(err, rows)
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows == 1, nil
}
