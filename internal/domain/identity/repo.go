package identity

import "context"

type UserRepository interface {
	// Create stores u and sets its ID. A taken username yields ErrUserExists.
	Create(ctx context.Context, u *User) error
	// GetByUsername returns ErrUserNotFound when no account matches.
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
