package repository

import (
	"context"
	"errors"

	"github.com/teamnext/accounts-api/internal/domain/entity"
)

// Sentinel errors shared by every store implementation so callers can
// branch without importing infrastructure packages.
var (
	// ErrNotFound is returned when no user matches the given key.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique constraint on username or
	// email would be violated.
	ErrDuplicate = errors.New("duplicate user")
)

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByUsernameOrEmail resolves a login identifier against both unique
	// columns.
	GetByUsernameOrEmail(ctx context.Context, value string) (*entity.User, error)
	// Update replaces the mutable attributes (name, age, email, gender,
	// phone number) of the record; it never touches the password column.
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, hashedPassword string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]entity.User, error)
}
