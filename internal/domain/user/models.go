package user

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"saldo/internal/shared/optional"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrNameRequired = errors.New("name is required")
	ErrInvalidEmail = errors.New("valid email is required")
	ErrEmailTaken   = errors.New("email already registered")
)

// User owns accounts. Credentials live with the identity provider, not here.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateUserParams struct {
	Name  string
	Email string
}

func (p *CreateUserParams) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
}

func (p CreateUserParams) Validate() error {
	if err := validateName(p.Name); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// UpdateUserParams changes the profile fields that are set. The active flag
// moves through SetActive only.
type UpdateUserParams struct {
	Name  optional.Value[string]
	Email optional.Value[string]
}

func (p *UpdateUserParams) Validate() (string, error) {
	if name, ok := p.Name.Get(); ok {
		name = strings.TrimSpace(name)
		if err := validateName(name); err != nil {
			return "name", err
		}
		p.Name = optional.Of(name)
	}
	if email, ok := p.Email.Get(); ok {
		email = strings.ToLower(strings.TrimSpace(email))
		if _, err := mail.ParseAddress(email); err != nil {
			return "email", ErrInvalidEmail
		}
		p.Email = optional.Of(email)
	}
	return "", nil
}

func validateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > 128 {
		return errors.New("name must be 128 characters or less")
	}
	return nil
}
