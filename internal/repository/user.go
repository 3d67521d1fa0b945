package repository

import (
	"context"

	"github.com/aayushimalhotra3/DevDeck-sub002/internal/model"
)

// UserRepository defines data access for users using SQL queries only.
// No business logic here, strictly persistence operations.
type UserRepository interface {
	// Create inserts a new user record and returns the stored row.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// FindByID returns a user by ID.
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername returns a user by username.
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// FindByEmail returns a user by email.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
