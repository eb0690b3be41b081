package user

import "context"

// Repository defines the interface for user data access.
// GetByID returns ErrUserNotFound when the id is unknown and Create returns
// ErrEmailTaken on a duplicate email. Update returns both the same way.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	SetActive(ctx context.Context, id string, active bool) (*User, error)
	Update(ctx context.Context, u *User) error
}
