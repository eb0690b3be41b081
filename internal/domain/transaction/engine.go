package transaction

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/domain/category"
	"saldo/internal/domain/ledger"
	"saldo/internal/shared/apperr"
	"saldo/internal/shared/optional"
)

// AccountReader resolves the account a request refers to before any lock is
// taken.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*account.Account, error)
}

// Receipt is the outcome of a ledger mutation: the transaction as stored
// (or as it was, for deletes) and the account balance once committed.
type Receipt struct {
	Transaction *Transaction
	AccountID   string
	Balance     decimal.Decimal
}

// Engine records, edits and removes transactions while keeping every
// account balance equal to its opening balance plus the signed sum of its
// transactions.
//
// Each mutation runs under the per-account lock held by the coordinator, in
// a single atomic unit that re-reads the account before checking funds. The
// balance and the transaction row are written together.
type Engine struct {
	repo       Repository
	store      Store
	accounts   AccountReader
	categories category.Checker
	coord      *ledger.Coordinator
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine creates a new transaction engine
func NewEngine(repo Repository, store Store, accounts AccountReader, categories category.Checker, coord *ledger.Coordinator, logger zerolog.Logger) *Engine {
	return &Engine{
		repo:       repo,
		store:      store,
		accounts:   accounts,
		categories: categories,
		coord:      coord,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateTransaction records a new income or expense. An expense larger than
// the current balance is rejected with account.ErrInsufficientFunds and
// nothing is written.
func (e *Engine) CreateTransaction(ctx context.Context, params CreateParams) (*Receipt, error) {
	now := e.now().UTC()
	if field, err := params.Validate(now); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	acc, err := e.getAccount(ctx, params.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, apperr.Invalid("accountId", account.ErrInactiveAccount)
	}
	if err := e.checkCategories(ctx, params.CategoryIDs); err != nil {
		return nil, err
	}

	txn := &Transaction{
		ID:          uuid.NewString(),
		AccountID:   params.AccountID,
		Type:        params.Type,
		Amount:      params.Amount,
		CategoryIDs: sortedIDs(params.CategoryIDs),
		OccurredAt:  params.OccurredAt.UTC(),
		Description: params.Description,
		Note:        params.Note,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	delta := txn.SignedAmount()

	var balance decimal.Decimal
	err = e.coord.WithAccount(ctx, "create_transaction", txn.AccountID, func(ctx context.Context) error {
		return e.store.InLedgerTx(ctx, func(ctx context.Context, tx Tx) error {
			acc, err := tx.GetAccountForUpdate(ctx, txn.AccountID)
			if err != nil {
				return err
			}
			// The account may have been deactivated while we waited.
			if !acc.Active {
				return apperr.Invalid("accountId", account.ErrInactiveAccount)
			}
			if !acc.CanAbsorb(delta) {
				return apperr.Invalid("amount", account.ErrInsufficientFunds)
			}
			if !account.InRange(acc.Balance.Add(delta)) {
				return apperr.Invalid("amount", account.ErrBalanceOutOfRange)
			}

			acc.Balance = acc.Balance.Add(delta)
			acc.UpdatedAt = now
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := tx.InsertTransaction(ctx, txn); err != nil {
				return err
			}
			balance = acc.Balance
			return nil
		})
	})
	if err != nil {
		return nil, e.mutationError(err, txn.AccountID, "create transaction")
	}

	e.logger.Info().
		Str("transaction", txn.ID).
		Str("account", txn.AccountID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.StringFixed(2)).
		Str("balance", balance.StringFixed(2)).
		Msg("transaction created")
	return &Receipt{Transaction: txn, AccountID: txn.AccountID, Balance: balance}, nil
}

// UpdateTransaction applies a partial update. When the amount or type
// changes, the balance moves by the difference between the new and old
// signed amounts. Only an expense that grows, or an income turned into an
// expense, must be covered by the balance. A smaller income is applied
// as is, the same way DeleteTransaction reverses one.
func (e *Engine) UpdateTransaction(ctx context.Context, id string, params UpdateParams) (*Receipt, error) {
	now := e.now().UTC()
	if field, err := params.Validate(now); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	current, err := e.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if ids, ok := params.CategoryIDs.Get(); ok {
		if err := e.checkCategories(ctx, ids); err != nil {
			return nil, err
		}
		params.CategoryIDs = optional.Of(sortedIDs(ids))
	}
	if at, ok := params.OccurredAt.Get(); ok {
		params.OccurredAt = optional.Of(at.UTC())
	}

	var (
		out     *Transaction
		balance decimal.Decimal
	)
	err = e.coord.WithAccount(ctx, "update_transaction", current.AccountID, func(ctx context.Context) error {
		return e.store.InLedgerTx(ctx, func(ctx context.Context, tx Tx) error {
			txn, err := tx.GetTransactionForUpdate(ctx, id)
			if err != nil {
				return err
			}
			acc, err := tx.GetAccountForUpdate(ctx, txn.AccountID)
			if err != nil {
				return err
			}

			newType := params.Type.OrElse(txn.Type)
			delta := BalanceDelta(txn.Type, txn.Amount, newType, params.Amount.OrElse(txn.Amount))
			if !delta.IsZero() {
				if newType == TypeExpense && !acc.CanAbsorb(delta) {
					return apperr.Invalid("amount", account.ErrInsufficientFunds)
				}
				if !account.InRange(acc.Balance.Add(delta)) {
					return apperr.Invalid("amount", account.ErrBalanceOutOfRange)
				}
				acc.Balance = acc.Balance.Add(delta)
				acc.UpdatedAt = now
				if err := tx.SaveAccount(ctx, acc); err != nil {
					return err
				}
			}

			params.Apply(txn)
			txn.UpdatedAt = now
			if err := tx.UpdateTransaction(ctx, txn); err != nil {
				return err
			}
			out = txn
			balance = acc.Balance
			return nil
		})
	})
	if err != nil {
		return nil, e.mutationError(err, id, "update transaction")
	}

	e.logger.Info().
		Str("transaction", id).
		Str("account", out.AccountID).
		Str("balance", balance.StringFixed(2)).
		Msg("transaction updated")
	return &Receipt{Transaction: out, AccountID: out.AccountID, Balance: balance}, nil
}

// DeleteTransaction removes a transaction and reverses its effect on the
// balance. Reversal is never refused for lack of funds and works on
// inactive accounts.
func (e *Engine) DeleteTransaction(ctx context.Context, id string) (*Receipt, error) {
	current, err := e.getTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		removed *Transaction
		balance decimal.Decimal
	)
	err = e.coord.WithAccount(ctx, "delete_transaction", current.AccountID, func(ctx context.Context) error {
		return e.store.InLedgerTx(ctx, func(ctx context.Context, tx Tx) error {
			txn, err := tx.GetTransactionForUpdate(ctx, id)
			if err != nil {
				return err
			}
			acc, err := tx.GetAccountForUpdate(ctx, txn.AccountID)
			if err != nil {
				return err
			}

			reversed := acc.Balance.Sub(txn.SignedAmount())
			if !account.InRange(reversed) {
				return apperr.Invalid("id", account.ErrBalanceOutOfRange)
			}
			acc.Balance = reversed
			acc.UpdatedAt = e.now().UTC()
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			if err := tx.DeleteTransaction(ctx, id); err != nil {
				return err
			}
			removed = txn
			balance = acc.Balance
			return nil
		})
	})
	if err != nil {
		return nil, e.mutationError(err, id, "delete transaction")
	}

	e.logger.Info().
		Str("transaction", id).
		Str("account", removed.AccountID).
		Str("balance", balance.StringFixed(2)).
		Msg("transaction deleted")
	return &Receipt{Transaction: removed, AccountID: removed.AccountID, Balance: balance}, nil
}

// GetTransaction retrieves a transaction by ID
func (e *Engine) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return e.getTransaction(ctx, id)
}

// ListByAccount lists an account's transactions. limit defaults to
// DefaultListLimit and is capped at MaxListLimit.
func (e *Engine) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*Transaction, error) {
	if _, err := e.getAccount(ctx, accountID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	txns, err := e.repo.ListByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, apperr.Internal(err, "list transactions")
	}
	return txns, nil
}

func (e *Engine) getAccount(ctx context.Context, id string) (*account.Account, error) {
	acc, err := e.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Wrap(err, "get account")
	}
	return acc, nil
}

func (e *Engine) getTransaction(ctx context.Context, id string) (*Transaction, error) {
	txn, err := e.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "get transaction")
	}
	return txn, nil
}

func (e *Engine) checkCategories(ctx context.Context, ids []string) error {
	missing, err := e.categories.Missing(ctx, ids)
	if err != nil {
		return apperr.Internal(err, "check categories")
	}
	if missing != "" {
		return apperr.Invalid("categoryIds", fmt.Errorf("%w: %s", ErrUnknownCategory, missing))
	}
	return nil
}

func (e *Engine) mutationError(err error, id, op string) error {
	switch {
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, account.ErrAccountNotFound):
		return apperr.NotFound(err, id)
	case errors.Is(err, ledger.ErrLockTimeout):
		e.logger.Warn().Err(err).Str("id", id).Str("op", op).Msg("ledger lock timeout")
		return apperr.Internal(err, op)
	case apperr.KindOf(err) == apperr.KindInternal:
		e.logger.Error().Err(err).Str("id", id).Str("op", op).Msg("ledger mutation failed")
	}
	return apperr.Wrap(err, op)
}

func sortedIDs(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
