package account

import "context"

// Repository defines the read side of account storage plus creation.
// This interface is defined in the domain layer, but implemented in the infrastructure layer.
// Lookups return ErrAccountNotFound for unknown ids.
type Repository interface {
	// Create inserts a new account
	Create(ctx context.Context, a *Account) error

	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// ListByUserID retrieves all accounts for a specific user
	ListByUserID(ctx context.Context, userID string) ([]*Account, error)

	// ListIDs returns every account id, oldest first
	ListIDs(ctx context.Context) ([]string, error)
}

// Tx is the account view of one atomic storage unit. Writes made through a
// Tx become visible together when the unit commits, or not at all.
type Tx interface {
	// GetAccountForUpdate reads the account and keeps it locked until the
	// unit ends.
	GetAccountForUpdate(ctx context.Context, id string) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error
	DeleteAccount(ctx context.Context, id string) error
	CountTransactions(ctx context.Context, accountID string) (int, error)
}

// Store opens atomic units for account mutations.
type Store interface {
	InAccountTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
