// Package memory is a process-local store for accounts and payment claims.
// Each account has its own lock, so transactions on one account are
// serialized while different accounts proceed in parallel.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
)

type Store struct {
	mu       sync.Mutex
	accounts map[string]subscription.Account
	claims   map[int64]payments.Claim
	locks    map[string]*sync.Mutex
	nextID   int64
}

func New() *Store {
	return &Store{
		accounts: make(map[string]subscription.Account),
		claims:   make(map[int64]payments.Claim),
		locks:    make(map[string]*sync.Mutex),
	}
}

func (s *Store) accountLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func cloneAccount(a subscription.Account) subscription.Account {
	if a.SubscriptionEnd != nil {
		end := *a.SubscriptionEnd
		a.SubscriptionEnd = &end
	}
	return a
}

func cloneClaim(c payments.Claim) payments.Claim {
	if c.ReviewedAt != nil {
		at := *c.ReviewedAt
		c.ReviewedAt = &at
	}
	return c
}

// Accounts

func (s *Store) GetByID(_ context.Context, id string) (*subscription.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, subscription.ErrAccountNotFound
	}
	out := cloneAccount(a)
	return &out, nil
}

func (s *Store) Create(_ context.Context, account *subscription.Account) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return false, nil
	}
	s.accounts[account.ID] = cloneAccount(*account)
	return true, nil
}

// ListLapsed returns active accounts whose window ended at or before now.
func (s *Store) ListLapsed(_ context.Context, now time.Time) ([]subscription.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []subscription.Account
	for _, a := range s.accounts {
		if a.Status == subscription.StatusActive && subscription.IsExpired(a, now) {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Expire demotes the account only if it is still active and lapsed at now.
func (s *Store) Expire(_ context.Context, accountID string, now time.Time) (bool, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return false, subscription.ErrAccountNotFound
	}
	if a.Status != subscription.StatusActive || !subscription.IsExpired(a, now) {
		return false, nil
	}
	a.Status = subscription.StatusExpired
	a.UpdatedAt = now
	s.accounts[accountID] = a
	return true, nil
}

// Claims

func (s *Store) ClaimOwner(_ context.Context, claimID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID]
	if !ok {
		return "", payments.ErrClaimNotFound
	}
	return c.AccountID, nil
}

func (s *Store) GetClaim(_ context.Context, claimID int64) (*payments.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID]
	if !ok {
		return nil, payments.ErrClaimNotFound
	}
	out := cloneClaim(c)
	return &out, nil
}

func (s *Store) ListPending(_ context.Context, limit int) ([]*payments.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*payments.Claim
	for _, c := range s.claims {
		if c.Status == payments.ClaimPending {
			cc := cloneClaim(c)
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx payments.Tx) error) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	a, ok := s.accounts[accountID]
	s.mu.Unlock()
	if !ok {
		return payments.ErrAccountNotFound
	}

	tx := &accountTx{
		store:    s,
		account:  cloneAccount(a),
		resolved: make(map[int64]payments.Claim),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.dirty {
		s.accounts[accountID] = cloneAccount(tx.account)
	}
	for _, c := range tx.inserted {
		s.claims[c.ID] = cloneClaim(c)
	}
	for id, c := range tx.resolved {
		s.claims[id] = cloneClaim(c)
	}
	return nil
}

// accountTx stages writes until the transaction function succeeds.
type accountTx struct {
	store    *Store
	account  subscription.Account
	dirty    bool
	inserted []payments.Claim
	resolved map[int64]payments.Claim
}

func (tx *accountTx) Account(_ context.Context) (*subscription.Account, error) {
	a := cloneAccount(tx.account)
	return &a, nil
}

func (tx *accountTx) SaveAccount(_ context.Context, account *subscription.Account) error {
	if account.ID != tx.account.ID {
		return fmt.Errorf("account %s is not locked by this transaction", account.ID)
	}
	tx.account = cloneAccount(*account)
	tx.dirty = true
	return nil
}

func (tx *accountTx) PendingClaim(_ context.Context) (*payments.Claim, error) {
	for _, c := range tx.inserted {
		if c.Status == payments.ClaimPending {
			out := cloneClaim(c)
			return &out, nil
		}
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for id, c := range tx.store.claims {
		if c.AccountID != tx.account.ID || c.Status != payments.ClaimPending {
			continue
		}
		if staged, ok := tx.resolved[id]; ok && staged.Status != payments.ClaimPending {
			continue
		}
		out := cloneClaim(c)
		return &out, nil
	}
	return nil, nil
}

func (tx *accountTx) InsertClaim(ctx context.Context, claim *payments.Claim) error {
	if claim.AccountID != tx.account.ID {
		return fmt.Errorf("claim for %s cannot be inserted under %s", claim.AccountID, tx.account.ID)
	}
	pending, err := tx.PendingClaim(ctx)
	if err != nil {
		return err
	}
	if pending != nil && claim.Status == payments.ClaimPending {
		return payments.ErrDuplicatePendingClaim
	}

	tx.store.mu.Lock()
	tx.store.nextID++
	claim.ID = tx.store.nextID
	tx.store.mu.Unlock()

	tx.inserted = append(tx.inserted, cloneClaim(*claim))
	return nil
}

func (tx *accountTx) Claim(_ context.Context, claimID int64) (*payments.Claim, error) {
	if c, ok := tx.resolved[claimID]; ok {
		out := cloneClaim(c)
		return &out, nil
	}
	for _, c := range tx.inserted {
		if c.ID == claimID {
			out := cloneClaim(c)
			return &out, nil
		}
	}

	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	c, ok := tx.store.claims[claimID]
	if !ok || c.AccountID != tx.account.ID {
		return nil, payments.ErrClaimNotFound
	}
	out := cloneClaim(c)
	return &out, nil
}

func (tx *accountTx) ResolveClaim(ctx context.Context, claimID int64, status payments.ClaimStatus, reviewerID, note string, at time.Time) error {
	c, err := tx.Claim(ctx, claimID)
	if err != nil {
		return err
	}
	if c.Status != payments.ClaimPending {
		return payments.ErrClaimNotFound
	}

	c.Status = status
	c.ReviewerID = reviewerID
	c.ReviewedAt = &at
	c.Note = note
	tx.resolved[claimID] = *c
	return nil
}
