package transaction

import (
	"context"

	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
)

// Repository defines the read side of transaction storage.
// Lookups return ErrTransactionNotFound for unknown ids.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Transaction, error)
	// ListByAccountID returns the account's transactions, newest date first.
	ListByAccountID(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error)
}

// Tx is one atomic storage unit covering an account and its transactions.
// The balance write and the transaction write it accompanies commit
// together or not at all.
type Tx interface {
	account.Tx

	GetTransactionForUpdate(ctx context.Context, id string) (*Transaction, error)
	InsertTransaction(ctx context.Context, t *Transaction) error
	UpdateTransaction(ctx context.Context, t *Transaction) error
	DeleteTransaction(ctx context.Context, id string) error

	// SumTransactions returns the signed sum of the account's transactions
	// as seen inside the unit.
	SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// Store opens atomic units for ledger mutations.
type Store interface {
	InLedgerTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
