package category

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"saldo/internal/shared/apperr"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) CreateCategory(ctx context.Context, params CreateCategoryParams) (*Category, error) {
	if err := params.Validate(); err != nil {
		field := "name"
		switch {
		case errors.Is(err, ErrInvalidKind):
			field = "kind"
		case errors.Is(err, ErrInvalidColor):
			field = "color"
		}
		return nil, apperr.Invalid(field, err)
	}

	c := &Category{
		ID:        uuid.NewString(),
		Name:      params.Name,
		Kind:      params.Kind,
		Color:     params.Color,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrNameTaken) {
			return nil, apperr.Invalid("name", err)
		}
		return nil, apperr.Internal(err, "create category")
	}

	s.logger.Info().Str("category", c.ID).Str("name", c.Name).Msg("category created")
	return c, nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "get category")
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	cs, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "list categories")
	}
	return cs, nil
}

// ListCategoriesByKind returns the categories of one kind, ordered by name.
func (s *Service) ListCategoriesByKind(ctx context.Context, kind Kind) ([]*Category, error) {
	if !kind.Valid() {
		return nil, apperr.Invalid("kind", ErrInvalidKind)
	}
	all, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Category, 0, len(all))
	for _, c := range all {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpdateCategory renames, re-kinds or re-colors a category. Transactions
// already filed under it keep the reference.
func (s *Service) UpdateCategory(ctx context.Context, id string, params UpdateCategoryParams) (*Category, error) {
	if field, err := params.Validate(); err != nil {
		return nil, apperr.Invalid(field, err)
	}

	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	params.Apply(c)

	if err := s.repo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, ErrNameTaken):
			return nil, apperr.Invalid("name", err)
		case errors.Is(err, ErrCategoryNotFound):
			return nil, apperr.NotFound(err, id)
		}
		return nil, apperr.Internal(err, "update category")
	}

	s.logger.Info().Str("category", id).Msg("category updated")
	return c, nil
}

// DeleteCategory removes a category. Transactions that reference it keep
// the id and stay readable; new mutations can no longer use it.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return apperr.NotFound(err, id)
		}
		return apperr.Internal(err, "delete category")
	}

	s.logger.Info().Str("category", id).Msg("category deleted")
	return nil
}

// Missing reports the first unknown id in ids.
func (s *Service) Missing(ctx context.Context, ids []string) (string, error) {
	return s.repo.Missing(ctx, ids)
}
