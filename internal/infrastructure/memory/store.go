// Package memory is an in-process implementation of the storage interfaces,
// used when no database is configured and in tests.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/domain/category"
	"saldo/internal/domain/transaction"
	"saldo/internal/domain/user"
)

// Store holds every entity in maps guarded by one RWMutex. Atomic units
// stage their writes until fn returns nil and then commit them under mu.
// Units do not exclude each other; callers serialize units that touch the
// same account through ledger.Coordinator.
type Store struct {
	mu         sync.RWMutex
	users      map[string]user.User
	categories map[string]category.Category
	accounts   map[string]account.Account
	txns       map[string]transaction.Transaction
}

func New() *Store {
	return &Store{
		users:      make(map[string]user.User),
		categories: make(map[string]category.Category),
		accounts:   make(map[string]account.Account),
		txns:       make(map[string]transaction.Transaction),
	}
}

func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }
func (s *Store) Categories() *CategoryRepository { return &CategoryRepository{s: s} }
func (s *Store) Accounts() *AccountRepository { return &AccountRepository{s: s} }
func (s *Store) Transactions() *TransactionRepository { return &TransactionRepository{s: s} }

// Ping always succeeds; it lets the store stand in for a database in health
// checks.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) InAccountTx(ctx context.Context, fn func(ctx context.Context, tx account.Tx) error) error {
	return s.inUnit(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

func (s *Store) InLedgerTx(ctx context.Context, fn func(ctx context.Context, tx transaction.Tx) error) error {
	return s.inUnit(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

func (s *Store) inUnit(ctx context.Context, fn func(ctx context.Context, u *unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	u := &unit{
		s:               s,
		accounts:        map[string]account.Account{},
		deletedAccounts: map[string]bool{},
		txns:            map[string]transaction.Transaction{},
		deletedTxns:     map[string]bool{},
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	u.commit()
	return nil
}

// unit is one atomic storage unit. Reads see its own staged writes.
type unit struct {
	s               *Store
	accounts        map[string]account.Account
	deletedAccounts map[string]bool
	txns            map[string]transaction.Transaction
	deletedTxns     map[string]bool
}

func (u *unit) commit() {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for id, a := range u.accounts {
		u.s.accounts[id] = a
	}
	for id := range u.deletedAccounts {
		delete(u.s.accounts, id)
	}
	for id, t := range u.txns {
		u.s.txns[id] = t
	}
	for id := range u.deletedTxns {
		delete(u.s.txns, id)
	}
}

func (u *unit) GetAccountForUpdate(ctx context.Context, id string) (*account.Account, error) {
	if u.deletedAccounts[id] {
		return nil, account.ErrAccountNotFound
	}
	if a, ok := u.accounts[id]; ok {
		return &a, nil
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	a, ok := u.s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (u *unit) SaveAccount(ctx context.Context, a *account.Account) error {
	if _, err := u.GetAccountForUpdate(ctx, a.ID); err != nil {
		return err
	}
	u.accounts[a.ID] = *a
	return nil
}

func (u *unit) DeleteAccount(ctx context.Context, id string) error {
	if _, err := u.GetAccountForUpdate(ctx, id); err != nil {
		return err
	}
	delete(u.accounts, id)
	u.deletedAccounts[id] = true
	return nil
}

func (u *unit) CountTransactions(ctx context.Context, accountID string) (int, error) {
	return len(u.visibleTransactions(accountID)), nil
}

func (u *unit) GetTransactionForUpdate(ctx context.Context, id string) (*transaction.Transaction, error) {
	if u.deletedTxns[id] {
		return nil, transaction.ErrTransactionNotFound
	}
	if t, ok := u.txns[id]; ok {
		return cloneTxn(t), nil
	}
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	t, ok := u.s.txns[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	return cloneTxn(t), nil
}

func (u *unit) InsertTransaction(ctx context.Context, t *transaction.Transaction) error {
	u.txns[t.ID] = *cloneTxn(*t)
	delete(u.deletedTxns, t.ID)
	return nil
}

func (u *unit) UpdateTransaction(ctx context.Context, t *transaction.Transaction) error {
	if _, err := u.GetTransactionForUpdate(ctx, t.ID); err != nil {
		return err
	}
	u.txns[t.ID] = *cloneTxn(*t)
	return nil
}

func (u *unit) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := u.GetTransactionForUpdate(ctx, id); err != nil {
		return err
	}
	delete(u.txns, id)
	u.deletedTxns[id] = true
	return nil
}

func (u *unit) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range u.visibleTransactions(accountID) {
		sum = sum.Add(t.SignedAmount())
	}
	return sum, nil
}

// visibleTransactions merges committed rows with staged writes.
func (u *unit) visibleTransactions(accountID string) []transaction.Transaction {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()

	var out []transaction.Transaction
	for id, t := range u.s.txns {
		if t.AccountID != accountID || u.deletedTxns[id] {
			continue
		}
		if staged, ok := u.txns[id]; ok {
			t = staged
		}
		out = append(out, t)
	}
	for id, t := range u.txns {
		if _, committed := u.s.txns[id]; !committed && t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// UserRepository implements user.Repository.
type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailTaken
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) List(ctx context.Context) ([]*user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *UserRepository) SetActive(ctx context.Context, id string, active bool) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	u.Active = active
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	for id, existing := range r.s.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return user.ErrEmailTaken
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

// CategoryRepository implements category.Repository.
type CategoryRepository struct {
	s *Store
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return category.ErrNameTaken
		}
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, category.ErrCategoryNotFound
	}
	return &c, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]*category.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*category.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return category.ErrCategoryNotFound
	}
	for id, existing := range r.s.categories {
		if id != c.ID && strings.EqualFold(existing.Name, c.Name) {
			return category.ErrNameTaken
		}
	}
	r.s.categories[c.ID] = *c
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return category.ErrCategoryNotFound
	}
	delete(r.s.categories, id)
	return nil
}

func (r *CategoryRepository) Missing(ctx context.Context, ids []string) (string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, id := range ids {
		if _, ok := r.s.categories[id]; !ok {
			return id, nil
		}
	}
	return "", nil
}

// AccountRepository implements account.Repository.
type AccountRepository struct {
	s *Store
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[a.ID] = *a
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*account.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (r *AccountRepository) ListByUserID(ctx context.Context, userID string) ([]*account.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*account.Account{}
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return createdBefore(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *AccountRepository) ListIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	all := make([]account.Account, 0, len(r.s.accounts))
	for _, a := range r.s.accounts {
		all = append(all, a)
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return createdBefore(all[i].CreatedAt, all[j].CreatedAt, all[i].ID, all[j].ID)
	})
	ids := make([]string, len(all))
	for i, a := range all {
		ids[i] = a.ID
	}
	return ids, nil
}

// TransactionRepository implements transaction.Repository.
type TransactionRepository struct {
	s *Store
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.txns[id]
	if !ok {
		return nil, transaction.ErrTransactionNotFound
	}
	return cloneTxn(t), nil
}

func (r *TransactionRepository) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*transaction.Transaction, error) {
	r.s.mu.RLock()
	var all []*transaction.Transaction
	for _, t := range r.s.txns {
		if t.AccountID == accountID {
			all = append(all, cloneTxn(t))
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].OccurredAt.Equal(all[j].OccurredAt) {
			return all[i].OccurredAt.After(all[j].OccurredAt)
		}
		return all[i].ID < all[j].ID
	})
	if offset >= len(all) {
		return []*transaction.Transaction{}, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func cloneTxn(t transaction.Transaction) *transaction.Transaction {
	t.CategoryIDs = slices.Clone(t.CategoryIDs)
	return &t
}

func createdBefore(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
