package services

import (
	"context"
	"errors"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

var ErrAccessDenied = errors.New("an active subscription is required")

// Library serves catalog lookups to accounts that pass the access gate.
type Library struct {
	accounts *subscription.Service
	catalog  *catalog.Service
}

func NewLibrary(accounts *subscription.Service, catalog *catalog.Service) *Library {
	return &Library{accounts: accounts, catalog: catalog}
}

// Search checks access first and only then touches the catalog. The returned
// account is the one the gate decision was made on.
func (l *Library) Search(ctx context.Context, accountID, query string, now time.Time) (*catalog.Item, subscription.Account, error) {
	access, err := l.accounts.Check(ctx, accountID, now)
	if err != nil {
		return nil, subscription.Account{}, err
	}
	if !access.Allowed {
		return nil, access.Account, ErrAccessDenied
	}

	item, found, err := l.catalog.FindByTitleOrCode(ctx, query)
	if err != nil {
		return nil, access.Account, err
	}
	if !found {
		return nil, access.Account, catalog.ErrItemNotFound
	}
	return item, access.Account, nil
}
