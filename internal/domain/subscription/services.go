package subscription

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Access is the outcome of a gate check together with the account it was made on.
type Access struct {
	Account Account
	Allowed bool
}

type Service struct {
	repository Repository
}

func NewService(repository Repository) *Service {
	return &Service{repository: repository}
}

// Register creates the account on first contact. Existing accounts are returned untouched.
func (s *Service) Register(ctx context.Context, id, displayName, username string, now time.Time) (*Account, bool, error) {
	if strings.TrimSpace(id) == "" {
		return nil, false, fmt.Errorf("account id is required")
	}

	account := &Account{
		ID:          id,
		Status:      StatusExpired,
		DisplayName: displayName,
		Username:    username,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	created, err := s.repository.Create(ctx, account)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register account %s: %w", id, err)
	}
	if created {
		return account, true, nil
	}

	existing, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	return s.repository.GetByID(ctx, id)
}

// Check reads the account fresh from the store and applies the gate.
func (s *Service) Check(ctx context.Context, id string, now time.Time) (Access, error) {
	account, err := s.repository.GetByID(ctx, id)
	if err != nil {
		return Access{}, err
	}
	return Access{Account: *account, Allowed: CanAccess(*account, now)}, nil
}
