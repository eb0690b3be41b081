package category

import "context"

// Checker answers existence questions for transaction mutations.
type Checker interface {
	// Missing returns the first id in ids that does not name an existing
	// category, or "" when all exist.
	Missing(ctx context.Context, ids []string) (string, error)
}

// Repository stores categories. Update returns ErrNameTaken on a duplicate
// name; Update and Delete return ErrCategoryNotFound for an unknown id.
// Deleting a category leaves transactions that reference it untouched.
type Repository interface {
	Checker
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, c *Category) error
	Delete(ctx context.Context, id string) error
}
