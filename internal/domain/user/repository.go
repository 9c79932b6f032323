package user

import (
	"context"
)

// Repository defines the storage operations for user accounts.
type Repository interface {
	// Create persists a new user. Returns ErrUsernameTaken on a
	// username collision.
	Create(ctx context.Context, u *User) error

	// GetByID loads a user by id. Returns ErrUserNotFound.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername loads a user by username. Returns ErrUserNotFound.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update persists mutable fields (password hash, challenge anchor).
	Update(ctx context.Context, u *User) error

	// ListIDs returns the ids of all users. Consumed by schedulers.
	ListIDs(ctx context.Context) ([]string, error)

	// Delete removes a user and cascades to their data.
	Delete(ctx context.Context, id string) error
}
