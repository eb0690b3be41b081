package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saldo/internal/shared/apperr"
)

// Service manages users. Accounts only read a user's active flag through
// Get.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateUser registers an active user.
func (s *Service) CreateUser(ctx context.Context, params CreateUserParams) (*User, error) {
	params.Normalize()
	if err := params.Validate(); err != nil {
		field := "name"
		if errors.Is(err, ErrInvalidEmail) {
			field = "email"
		}
		return nil, apperr.Invalid(field, err)
	}

	now := s.now().UTC()
	u := &User{
		ID:        uuid.NewString(),
		Name:      params.Name,
		Email:     params.Email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Invalid("email", err)
		}
		return nil, apperr.Internal(err, "create user")
	}

	s.logger.Info().Str("user", u.ID).Msg("user created")
	return u, nil
}

// GetUser returns the user or a not-found error.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "get user")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list users")
	}
	return users, nil
}

// UpdateUser changes the user's name or email.
func (s *Service) UpdateUser(ctx context.Context, id string, params UpdateUserParams) (*User, error) {
	if field, err := params.Validate(); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Name = params.Name.OrElse(u.Name)
	u.Email = params.Email.OrElse(u.Email)
	u.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return nil, apperr.Invalid("email", err)
		case errors.Is(err, ErrUserNotFound):
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "update user")
	}

	s.logger.Info().Str("user", id).Msg("user updated")
	return u, nil
}

// SetActive toggles the user's active flag. Deactivating a user leaves the
// user's accounts untouched; it only blocks creating or re-activating them.
func (s *Service) SetActive(ctx context.Context, id string, active bool) (*User, error) {
	u, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "update user")
	}

	s.logger.Info().Str("user", id).Bool("active", active).Msg("user status changed")
	return u, nil
}
