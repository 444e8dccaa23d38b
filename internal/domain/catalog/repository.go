package catalog

import (
	"context"
	"errors"
)

var ErrItemNotFound = errors.New("catalog item not found")

type Repository interface {
	GetByID(ctx context.Context, id int64) (*Item, error)
	// GetByCode matches the code case-insensitively. Returns ErrItemNotFound when missing.
	GetByCode(ctx context.Context, code string) (*Item, error)
	// SearchByTitle returns items whose title contains fragment, lowest id first.
	SearchByTitle(ctx context.Context, fragment string, limit int) ([]*Item, error)
	ListTitles(ctx context.Context) ([]Title, error)
	// Upsert inserts items or updates them by code.
	Upsert(ctx context.Context, items []*Item) (int, error)
}
