package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/domain/transaction"
)

// LedgerStore runs atomic units as database transactions. Rows read for
// update stay locked until the unit commits or rolls back.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) InAccountTx(ctx context.Context, fn func(ctx context.Context, tx account.Tx) error) error {
	return s.inTx(ctx, func(ctx context.Context, u *ledgerTx) error { return fn(ctx, u) })
}

func (s *LedgerStore) InLedgerTx(ctx context.Context, fn func(ctx context.Context, tx transaction.Tx) error) error {
	return s.inTx(ctx, func(ctx context.Context, u *ledgerTx) error { return fn(ctx, u) })
}

func (s *LedgerStore) inTx(ctx context.Context, fn func(ctx context.Context, u *ledgerTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, &ledgerTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

type ledgerTx struct {
	tx *Tx
}

func (u *ledgerTx) GetAccountForUpdate(ctx context.Context, id string) (*account.Account, error) {
	return getAccount(ctx, u.tx, id, true)
}

func (u *ledgerTx) SaveAccount(ctx context.Context, a *account.Account) error {
	query := `
		UPDATE accounts
		SET name = $1, account_type = $2, currency = $3, balance = $4,
		    initial_balance = $5, active = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := u.tx.ExecContext(ctx, query,
		a.Name, a.Type, a.Currency, a.Balance, a.InitialBalance, a.Active, a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

func (u *ledgerTx) DeleteAccount(ctx context.Context, id string) error {
	result, err := u.tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result, account.ErrAccountNotFound)
}

func (u *ledgerTx) CountTransactions(ctx context.Context, accountID string) (int, error) {
	var n int
	err := u.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return n, nil
}

func (u *ledgerTx) GetTransactionForUpdate(ctx context.Context, id string) (*transaction.Transaction, error) {
	return getTransaction(ctx, u.tx, id, true)
}

func (u *ledgerTx) InsertTransaction(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := u.tx.ExecContext(ctx, query,
		t.ID, t.AccountID, t.Type, t.Amount, pq.Array(t.CategoryIDs),
		t.OccurredAt, t.Description, nullString(t.Note), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (u *ledgerTx) UpdateTransaction(ctx context.Context, t *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET type = $1, amount = $2, category_ids = $3, occurred_at = $4,
		    description = $5, note = $6, updated_at = $7
		WHERE id = $8
	`
	result, err := u.tx.ExecContext(ctx, query,
		t.Type, t.Amount, pq.Array(t.CategoryIDs), t.OccurredAt,
		t.Description, nullString(t.Note), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return expectOneRow(result, transaction.ErrTransactionNotFound)
}

func (u *ledgerTx) DeleteTransaction(ctx context.Context, id string) error {
	result, err := u.tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(result, transaction.ErrTransactionNotFound)
}

func (u *ledgerTx) SumTransactions(ctx context.Context, accountID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount ELSE -amount END), 0)
		FROM transactions
		WHERE account_id = $1
	`
	var sum decimal.Decimal
	if err := u.tx.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
