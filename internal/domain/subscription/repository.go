package subscription

import (
	"context"
	"errors"
)

var ErrAccountNotFound = errors.New("account not found")

type Repository interface {
	// GetByID returns ErrAccountNotFound when no account has the id.
	GetByID(ctx context.Context, id string) (*Account, error)
	// Create inserts the account unless one already exists. It reports whether a row was written.
	Create(ctx context.Context, account *Account) (bool, error)
}
