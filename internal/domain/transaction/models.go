package transaction

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/domain/account"
	"saldo/internal/shared/optional"
)

// Type is the direction of money for a transaction.
type Type string

const (
	TypeIncome  Type = "INCOME"
	TypeExpense Type = "EXPENSE"
)

func (t Type) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Sign is +1 for income and -1 for expense.
func (t Type) Sign() decimal.Decimal {
	if t == TypeExpense {
		return decimal.NewFromInt(-1)
	}
	return decimal.NewFromInt(1)
}

// Pagination for account transaction listings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Domain errors
var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidType         = errors.New("type must be INCOME or EXPENSE")
	ErrDescriptionRequired = errors.New("description is required")
	ErrCategoriesRequired  = errors.New("at least one category is required")
	ErrUnknownCategory     = errors.New("category not found")
	ErrDateRequired        = errors.New("date is required")
	ErrFutureDate          = errors.New("date cannot be in the future")
)

// Transaction is a dated, categorized income or expense recorded against one
// account. Amount is always positive; Type carries the sign.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Type        Type            `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CategoryIDs []string        `json:"categoryIds"`
	OccurredAt  time.Time       `json:"date"`
	Description string          `json:"description"`
	Note        string          `json:"note,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// SignedAmount is the transaction's contribution to its account balance.
func (t *Transaction) SignedAmount() decimal.Decimal {
	return t.Type.Sign().Mul(t.Amount)
}

// BalanceDelta is the change to apply to the account balance when a
// transaction moves from (oldType, oldAmount) to (newType, newAmount).
func BalanceDelta(oldType Type, oldAmount decimal.Decimal, newType Type, newAmount decimal.Decimal) decimal.Decimal {
	return newType.Sign().Mul(newAmount).Sub(oldType.Sign().Mul(oldAmount))
}

// CreateParams contains parameters for recording a new transaction
type CreateParams struct {
	AccountID   string
	Type        Type
	Amount      decimal.Decimal
	CategoryIDs []string
	OccurredAt  time.Time
	Description string
	Note        string
}

// Validate normalizes the params and returns the offending field alongside
// the error. now bounds the transaction date.
func (p *CreateParams) Validate(now time.Time) (string, error) {
	p.Description = strings.TrimSpace(p.Description)
	p.Note = strings.TrimSpace(p.Note)
	p.CategoryIDs = normalizeIDs(p.CategoryIDs)

	if p.AccountID == "" {
		return "accountId", errors.New("account ID is required")
	}
	if !p.Type.Valid() {
		return "type", ErrInvalidType
	}
	if err := account.ValidatePositiveAmount(p.Amount); err != nil {
		return "amount", err
	}
	if len(p.CategoryIDs) == 0 {
		return "categoryIds", ErrCategoriesRequired
	}
	if err := validateDate(p.OccurredAt, now); err != nil {
		return "date", err
	}
	if p.Description == "" {
		return "description", ErrDescriptionRequired
	}
	return "", nil
}

// UpdateParams holds a partial update. Unset fields keep their stored value.
// The owning account never changes.
type UpdateParams struct {
	Type        optional.Value[Type]
	Amount      optional.Value[decimal.Decimal]
	CategoryIDs optional.Value[[]string]
	OccurredAt  optional.Value[time.Time]
	Description optional.Value[string]
	Note        optional.Value[string]
}

func (p *UpdateParams) Validate(now time.Time) (string, error) {
	if t, ok := p.Type.Get(); ok && !t.Valid() {
		return "type", ErrInvalidType
	}
	if amount, ok := p.Amount.Get(); ok {
		if err := account.ValidatePositiveAmount(amount); err != nil {
			return "amount", err
		}
	}
	if ids, ok := p.CategoryIDs.Get(); ok {
		ids = normalizeIDs(ids)
		if len(ids) == 0 {
			return "categoryIds", ErrCategoriesRequired
		}
		p.CategoryIDs = optional.Of(ids)
	}
	if at, ok := p.OccurredAt.Get(); ok {
		if err := validateDate(at, now); err != nil {
			return "date", err
		}
	}
	if d, ok := p.Description.Get(); ok {
		d = strings.TrimSpace(d)
		if d == "" {
			return "description", ErrDescriptionRequired
		}
		p.Description = optional.Of(d)
	}
	if n, ok := p.Note.Get(); ok {
		p.Note = optional.Of(strings.TrimSpace(n))
	}
	return "", nil
}

// Apply copies the set fields onto t.
func (p UpdateParams) Apply(t *Transaction) {
	t.Type = p.Type.OrElse(t.Type)
	t.Amount = p.Amount.OrElse(t.Amount)
	t.CategoryIDs = p.CategoryIDs.OrElse(t.CategoryIDs)
	t.OccurredAt = p.OccurredAt.OrElse(t.OccurredAt)
	t.Description = p.Description.OrElse(t.Description)
	t.Note = p.Note.OrElse(t.Note)
}

func validateDate(at, now time.Time) error {
	if at.IsZero() {
		return ErrDateRequired
	}
	if at.After(now) {
		return ErrFutureDate
	}
	return nil
}

// normalizeIDs trims ids and drops blanks and repeats, keeping first-seen
// order so the first unknown id reported is the first one the caller sent.
func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}
