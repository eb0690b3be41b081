package account

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/shared/optional"
)

type Type string

const (
	TypeChecking   Type = "CHECKING"
	TypeSavings    Type = "SAVINGS"
	TypeInvestment Type = "INVESTMENT"
	TypeSalary     Type = "SALARY"
)

// Direction of a manual balance adjustment.
type Direction string

const (
	DirectionAdd    Direction = "ADD"
	DirectionRemove Direction = "REMOVE"
)

// DefaultCurrency is applied when an account is created without one.
const DefaultCurrency = "BRL"

var (
	accountTypes = map[Type]struct{}{
		TypeChecking:   {},
		TypeSavings:    {},
		TypeInvestment: {},
		TypeSalary:     {},
	}
	// Common ISO 4217 currency codes
	validCurrencies = map[string]struct{}{
		"BRL": {}, "USD": {}, "EUR": {}, "GBP": {}, "JPY": {},
		"CHF": {}, "CAD": {}, "AUD": {}, "NZD": {}, "CNY": {},
		"INR": {}, "MXN": {}, "ZAR": {}, "SEK": {}, "NOK": {},
		"DKK": {}, "PLN": {}, "TRY": {}, "RUB": {}, "KRW": {},
		"SGD": {}, "HKD": {}, "ARS": {}, "CLP": {}, "COP": {},
	}
)

// MaxAmount is the exclusive bound on amounts and balances.
var MaxAmount = decimal.New(1, 16)

const (
	maxExponent = 18
	// Any value with more digits than this is at least 10^18 once the
	// exponent is bounded.
	maxDigits = 2 * maxExponent
)

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidCurrency    = errors.New("valid ISO 4217 currency is required")
	ErrNameRequired       = errors.New("account name is required")
	ErrNegativeOpening    = errors.New("opening balance must not be negative")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrAmountScale        = errors.New("amount must have at most 2 decimal places")
	ErrAmountTooLarge     = errors.New("amount must be less than 10000000000000000")
	ErrBalanceOutOfRange  = errors.New("resulting balance is out of range")
	ErrInvalidDirection   = errors.New("direction must be ADD or REMOVE")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInactiveAccount    = errors.New("inactive account")
	ErrInactiveUser       = errors.New("cannot create account for inactive user")
	ErrOwnerInactive      = errors.New("cannot activate account of inactive user")
	ErrHasTransactions    = errors.New("account has transactions")
)

// Account holds a balance owned by one user.
//
// Balance always equals InitialBalance plus the signed sum of the account's
// transactions. Only code running under ledger.Coordinator writes Balance.
type Account struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	Name           string          `json:"name"`
	Type           Type            `json:"type"`
	Currency       string          `json:"currency"`
	Balance        decimal.Decimal `json:"balance"`
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CanAbsorb reports whether applying delta keeps the balance non-negative.
// Positive deltas are always absorbable.
func (a *Account) CanAbsorb(delta decimal.Decimal) bool {
	if !delta.IsNegative() {
		return true
	}
	return !a.Balance.Add(delta).IsNegative()
}

// CreateParams contains parameters for creating a new account
type CreateParams struct {
	UserID         string
	Name           string
	Type           Type
	OpeningBalance decimal.Decimal
	Currency       string
}

// Validate validates the create parameters and returns the offending field
// alongside the error.
func (p *CreateParams) Validate() (string, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))

	if p.UserID == "" {
		return "userId", errors.New("user ID is required")
	}
	if p.Name == "" {
		return "name", ErrNameRequired
	}
	if !IsValidAccountType(p.Type) {
		return "type", ErrInvalidAccountType
	}
	if !IsValidCurrency(p.Currency) {
		return "currency", ErrInvalidCurrency
	}
	if p.OpeningBalance.IsNegative() {
		return "openingBalance", ErrNegativeOpening
	}
	if err := ValidateMoney(p.OpeningBalance); err != nil {
		return "openingBalance", err
	}
	return "", nil
}

// UpdateParams changes descriptive fields only. Balance moves through
// transactions or AdjustBalance.
type UpdateParams struct {
	Name     optional.Value[string]
	Type     optional.Value[Type]
	Currency optional.Value[string]
}

func (p *UpdateParams) Validate() (string, error) {
	if name, ok := p.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if name == "" {
			return "name", ErrNameRequired
		}
		p.Name = optional.Of(name)
	}
	if t, ok := p.Type.Get(); ok && !IsValidAccountType(t) {
		return "type", ErrInvalidAccountType
	}
	if c, ok := p.Currency.Get(); ok {
		c = strings.ToUpper(strings.TrimSpace(c))
		if !IsValidCurrency(c) {
			return "currency", ErrInvalidCurrency
		}
		p.Currency = optional.Of(c)
	}
	return "", nil
}

// ValidatePositiveAmount checks a monetary amount used for a balance change.
func ValidatePositiveAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return ValidateMoney(amount)
}

// ValidateMoney checks that d fits a NUMERIC(18,2) column: at most two
// decimal places and an absolute value below MaxAmount.
//
// The exponent and digit count are bounded before any arithmetic, since
// rounding or comparing rescales the coefficient by 10^|exponent|.
func ValidateMoney(d decimal.Decimal) error {
	exp := d.Exponent()
	if exp < -maxExponent {
		return ErrAmountScale
	}
	if exp > maxExponent || d.NumDigits() > maxDigits {
		return ErrAmountTooLarge
	}
	if !d.Equal(d.Round(2)) {
		return ErrAmountScale
	}
	if d.Abs().Cmp(MaxAmount) >= 0 {
		return ErrAmountTooLarge
	}
	return nil
}

// HasCentScale reports whether d has no more than two decimal places.
func HasCentScale(d decimal.Decimal) bool {
	return !errors.Is(ValidateMoney(d), ErrAmountScale)
}

// InRange reports whether a balance can be stored.
func InRange(balance decimal.Decimal) bool {
	return balance.Abs().Cmp(MaxAmount) < 0
}

// IsValidAccountType checks if the provided account type is valid.
func IsValidAccountType(t Type) bool {
	_, ok := accountTypes[t]
	return ok
}

// IsValidCurrency checks if the provided currency is a valid ISO 4217 code.
func IsValidCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	_, ok := validCurrencies[c]
	return ok
}
