package transaction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/domain/ledger"
	"saldo/internal/shared/logging"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeLedger keeps accounts and transactions in maps. Writes made inside a
// unit are staged and applied only when fn succeeds.
type fakeLedger struct {
	mu           sync.Mutex
	accounts     map[string]account.Account
	txns         map[string]Transaction
	failInsert   error
	lastLimit    int
	unitsStarted int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{accounts: map[string]account.Account{}, txns: map[string]Transaction{}}
}

func (f *fakeLedger) GetByID(ctx context.Context, id string) (*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.txns[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &t, nil
}

func (f *fakeLedger) ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	var out []*Transaction
	for _, t := range f.txns {
		if t.AccountID == accountID {
			t := t
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLedger) InLedgerTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	f.mu.Lock()
	f.unitsStarted++
	f.mu.Unlock()

	tx := &fakeTx{
		ledger:   f,
		accounts: map[string]account.Account{},
		txns:     map[string]Transaction{},
		removed:  map[string]bool{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for id, a := range tx.accounts {
		f.accounts[id] = a
	}
	for id, t := range tx.txns {
		f.txns[id] = t
	}
	for id := range tx.removed {
		delete(f.txns, id)
	}
	return nil
}

func (f *fakeLedger) seedAccount(id, balance string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := decimal.RequireFromString(balance)
	f.accounts[id] = account.Account{
		ID:             id,
		UserID:         "user-1",
		Name:           "Main",
		Type:           account.TypeChecking,
		Currency:       "BRL",
		Balance:        b,
		InitialBalance: b,
		Active:         active,
	}
}

func (f *fakeLedger) setActive(id string, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.accounts[id]
	a.Active = active
	f.accounts[id] = a
}

func (f *fakeLedger) balance(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accounts[id].Balance
}

// expected recomputes the balance from the opening balance and history.
func (f *fakeLedger) expected(id string) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := f.accounts[id].InitialBalance
	for _, t := range f.txns {
		if t.AccountID == id {
			sum = sum.Add(t.SignedAmount())
		}
	}
	return sum
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.txns)
}

type fakeTx struct {
	ledger   *fakeLedger
	accounts map[string]account.Account
	txns     map[string]Transaction
	removed  map[string]bool
}

func (t *fakeTx) GetAccountForUpdate(ctx context.Context, id string) (*account.Account, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	a, ok := t.ledger.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &a, nil
}

func (t *fakeTx) SaveAccount(ctx context.Context, a *account.Account) error {
	t.accounts[a.ID] = *a
	return nil
}

func (t *fakeTx) DeleteAccount(ctx context.Context, id string) error {
	return nil
}

func (t *fakeTx) CountTransactions(ctx context.Context, accountID string) (int, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	n := 0
	for _, txn := range t.ledger.txns {
		if txn.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (t *fakeTx) GetTransactionForUpdate(ctx context.Context, id string) (*Transaction, error) {
	return t.ledger.GetByID(ctx, id)
}

func (t *fakeTx) InsertTransaction(ctx context.Context, txn *Transaction) error {
	if t.ledger.failInsert != nil {
		return t.ledger.failInsert
	}
	t.txns[txn.ID] = *txn
	return nil
}

func (t *fakeTx) UpdateTransaction(ctx context.Context, txn *Transaction) error {
	t.txns[txn.ID] = *txn
	return nil
}

func (t *fakeTx) DeleteTransaction(ctx context.Context, id string) error {
	t.removed[id] = true
	return nil
}

func (t *fakeTx) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	t.ledger.mu.Lock()
	defer t.ledger.mu.Unlock()
	sum := decimal.Zero
	for _, txn := range t.ledger.txns {
		if txn.AccountID == accountID {
			sum = sum.Add(txn.SignedAmount())
		}
	}
	return sum, nil
}

// fakeAccounts exposes the ledger's accounts as an AccountReader.
type fakeAccounts struct {
	ledger *fakeLedger
}

func (a fakeAccounts) GetByID(ctx context.Context, id string) (*account.Account, error) {
	a.ledger.mu.Lock()
	defer a.ledger.mu.Unlock()
	acc, ok := a.ledger.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound
	}
	return &acc, nil
}

// MockCategories is a mock implementation of category.Checker
type MockCategories struct {
	MissingFunc func(ctx context.Context, ids []string) (string, error)
}

func (m *MockCategories) Missing(ctx context.Context, ids []string) (string, error) {
	if m.MissingFunc != nil {
		return m.MissingFunc(ctx, ids)
	}
	return "", nil
}

func newTestEngine(l *fakeLedger) *Engine {
	coord := ledger.NewCoordinator(ledger.NewLocalLocker(), 5*time.Second)
	e := NewEngine(l, l, fakeAccounts{ledger: l}, &MockCategories{}, coord, logging.NewSilent())
	e.now = func() time.Time { return testNow }
	return e
}

func expense(accountID, amount string) CreateParams {
	return CreateParams{
		AccountID:   accountID,
		Type:        TypeExpense,
		Amount:      decimal.RequireFromString(amount),
		CategoryIDs: []string{"cat-food"},
		OccurredAt:  testNow.Add(-time.Hour),
		Description: "Groceries",
	}
}

func income(accountID, amount string) CreateParams {
	p := expense(accountID, amount)
	p.Type = TypeIncome
	p.Description = "Salary"
	return p
}
