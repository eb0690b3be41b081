package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"saldo/internal/domain/ledger"
	"saldo/internal/domain/user"
	"saldo/internal/shared/apperr"
)

// UserLookup resolves account owners.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Service contains the account lifecycle rules: creation under an active
// user, activation, deactivation, deletion and manual balance adjustment.
type Service struct {
	repo   Repository
	store  Store
	users  UserLookup
	coord  *ledger.Coordinator
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new account service
func NewService(repo Repository, store Store, users UserLookup, coord *ledger.Coordinator, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		users:  users,
		coord:  coord,
		logger: logger,
		now:    time.Now,
	}
}

// CreateAccount opens an active account for an active user.
func (s *Service) CreateAccount(ctx context.Context, params CreateParams) (*Account, error) {
	// Apply default currency if not provided
	if params.Currency == "" {
		params.Currency = DefaultCurrency
	}

	if field, err := params.Validate(); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	owner, err := s.lookupUser(ctx, params.UserID)
	if err != nil {
		return nil, err
	}
	if !owner.Active {
		return nil, apperr.Invalid("userId", ErrInactiveUser)
	}

	now := s.now().UTC()
	acc := &Account{
		ID:             uuid.NewString(),
		UserID:         params.UserID,
		Name:           params.Name,
		Type:           params.Type,
		Currency:       params.Currency,
		Balance:        params.OpeningBalance,
		InitialBalance: params.OpeningBalance,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, acc); err != nil {
		return nil, apperr.Internal(err, "create account")
	}

	s.logger.Info().
		Str("account", acc.ID).
		Str("user", acc.UserID).
		Str("opening_balance", acc.Balance.StringFixed(2)).
		Msg("account created")
	return acc, nil
}

// GetAccount retrieves an account by ID
func (s *Service) GetAccount(ctx context.Context, id string) (*Account, error) {
	acc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, id, "get account")
	}
	return acc, nil
}

// ListAccountsByUserID retrieves all accounts for a specific user
func (s *Service) ListAccountsByUserID(ctx context.Context, userID string) ([]*Account, error) {
	if _, err := s.lookupUser(ctx, userID); err != nil {
		return nil, err
	}
	accs, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err, "list accounts")
	}
	return accs, nil
}

// UpdateAccount renames or re-tags an account.
func (s *Service) UpdateAccount(ctx context.Context, id string, params UpdateParams) (*Account, error) {
	if field, err := params.Validate(); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	return s.mutate(ctx, "update_account", id, func(ctx context.Context, tx Tx, acc *Account) error {
		if name, ok := params.Name.Get(); ok {
			acc.Name = name
		}
		if t, ok := params.Type.Get(); ok {
			acc.Type = t
		}
		if c, ok := params.Currency.Get(); ok {
			acc.Currency = c
		}
		return nil
	})
}

// Activate marks the account active. The owning user must be active.
func (s *Service) Activate(ctx context.Context, id string) (*Account, error) {
	return s.mutate(ctx, "activate", id, func(ctx context.Context, tx Tx, acc *Account) error {
		owner, err := s.lookupUser(ctx, acc.UserID)
		if err != nil {
			return err
		}
		if !owner.Active {
			return apperr.Invalid("userId", ErrOwnerInactive)
		}
		acc.Active = true
		return nil
	})
}

// Deactivate marks the account inactive. Existing transactions stay
// readable; new ones are rejected.
func (s *Service) Deactivate(ctx context.Context, id string) (*Account, error) {
	return s.mutate(ctx, "deactivate", id, func(ctx context.Context, tx Tx, acc *Account) error {
		acc.Active = false
		return nil
	})
}

// DeleteAccount removes an account that owns no transactions.
func (s *Service) DeleteAccount(ctx context.Context, id string) error {
	err := s.coord.WithAccount(ctx, "delete_account", id, func(ctx context.Context) error {
		return s.store.InAccountTx(ctx, func(ctx context.Context, tx Tx) error {
			if _, err := tx.GetAccountForUpdate(ctx, id); err != nil {
				return err
			}
			n, err := tx.CountTransactions(ctx, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return apperr.Invalid("id", ErrHasTransactions)
			}
			return tx.DeleteAccount(ctx, id)
		})
	})
	if err != nil {
		return s.storeError(err, id, "delete account")
	}

	s.logger.Info().Str("account", id).Msg("account deleted")
	return nil
}

// AdjustBalance adds or removes amount without recording a transaction.
// InitialBalance moves by the same delta so the account still reconciles
// against its transaction history.
func (s *Service) AdjustBalance(ctx context.Context, id string, amount decimal.Decimal, direction Direction) (*Account, error) {
	if err := ValidatePositiveAmount(amount); err != nil {
		return nil, apperr.Invalid("amount", err)
	}

	var delta decimal.Decimal
	switch direction {
	case DirectionAdd:
		delta = amount
	case DirectionRemove:
		delta = amount.Neg()
	default:
		return nil, apperr.Invalid("direction", ErrInvalidDirection)
	}

	acc, err := s.mutate(ctx, "adjust_balance", id, func(ctx context.Context, tx Tx, acc *Account) error {
		if !acc.CanAbsorb(delta) {
			return apperr.Invalid("amount", ErrInsufficientFunds)
		}
		if !InRange(acc.Balance.Add(delta)) || !InRange(acc.InitialBalance.Add(delta)) {
			return apperr.Invalid("amount", ErrBalanceOutOfRange)
		}
		acc.Balance = acc.Balance.Add(delta)
		acc.InitialBalance = acc.InitialBalance.Add(delta)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("account", id).
		Str("delta", delta.StringFixed(2)).
		Str("balance", acc.Balance.StringFixed(2)).
		Msg("balance adjusted")
	return acc, nil
}

// mutate loads the account inside a locked atomic unit, applies fn and
// saves the result.
func (s *Service) mutate(ctx context.Context, op, id string, fn func(ctx context.Context, tx Tx, acc *Account) error) (*Account, error) {
	var out *Account
	err := s.coord.WithAccount(ctx, op, id, func(ctx context.Context) error {
		return s.store.InAccountTx(ctx, func(ctx context.Context, tx Tx) error {
			acc, err := tx.GetAccountForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if err := fn(ctx, tx, acc); err != nil {
				return err
			}
			acc.UpdatedAt = s.now().UTC()
			if err := tx.SaveAccount(ctx, acc); err != nil {
				return err
			}
			out = acc
			return nil
		})
	})
	if err != nil {
		return nil, s.storeError(err, id, op)
	}

	s.logger.Debug().Str("account", id).Str("op", op).Msg("account mutated")
	return out, nil
}

func (s *Service) lookupUser(ctx context.Context, id string) (*user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Wrap(err, "get user")
	}
	return u, nil
}

func (s *Service) storeError(err error, id, op string) error {
	if errors.Is(err, ErrAccountNotFound) {
		return apperr.NotFound(err, id)
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		s.logger.Error().Err(err).Str("account", id).Str("op", op).Msg("account operation failed")
	}
	return apperr.Wrap(err, op)
}
