package category

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"saldo/internal/shared/optional"
)

type Kind string

const (
	KindIncome  Kind = "INCOME"
	KindExpense Kind = "EXPENSE"
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

var colorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrNameTaken        = errors.New("category name already exists")
	ErrInvalidKind      = errors.New("category kind must be INCOME or EXPENSE")
	ErrInvalidColor     = errors.New("color must be a hex value like #1194F6")
	ErrNameRequired     = errors.New("name is required")
	ErrNameTooLong      = errors.New("name must be 128 characters or less")
)

// Category classifies transactions. Transactions reference categories by id
// and never own them.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateCategoryParams struct {
	Name  string
	Kind  Kind
	Color string
}

func (p *CreateCategoryParams) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateName(p.Name); err != nil {
		return err
	}
	if !p.Kind.Valid() {
		return ErrInvalidKind
	}
	if p.Color != "" && !colorPattern.MatchString(p.Color) {
		return ErrInvalidColor
	}
	return nil
}

// UpdateCategoryParams touches only the fields that are set. An empty Color
// clears the color.
type UpdateCategoryParams struct {
	Name  optional.Value[string]
	Kind  optional.Value[Kind]
	Color optional.Value[string]
}

func (p *UpdateCategoryParams) Validate() (string, error) {
	if name, ok := p.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if err := validateName(name); err != nil {
			return "name", err
		}
		p.Name = optional.Of(name)
	}
	if k, ok := p.Kind.Get(); ok && !k.Valid() {
		return "kind", ErrInvalidKind
	}
	if c, ok := p.Color.Get(); ok && c != "" && !colorPattern.MatchString(c) {
		return "color", ErrInvalidColor
	}
	return "", nil
}

func (p UpdateCategoryParams) Apply(c *Category) {
	c.Name = p.Name.OrElse(c.Name)
	c.Kind = p.Kind.OrElse(c.Kind)
	c.Color = p.Color.OrElse(c.Color)
}

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > 128 {
		return ErrNameTooLong
	}
	return nil
}
