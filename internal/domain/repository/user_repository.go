package repository

import (
	"context"
	"errors"

	"github.com/eagleapps/user-service/internal/domain/entity"
)

var (
	// ErrNotFound is returned when the requested user id or username does
	// not exist. Reads translate it to an absent result; writes targeting a
	// missing id fail with it and perform no mutation.
	ErrNotFound = errors.New("user not found")
)

// UserRepository defines the persistence operations for the user aggregate.
// Every multi-statement write executes as one atomic transaction: callers
// never observe a parent without its children or a half-replaced child set.
type UserRepository interface {
	// Create allocates the next id for the configured prefix, inserts the
	// parent row and all child rows in one transaction, and returns the
	// generated id.
	Create(ctx context.Context, u *entity.User) (string, error)
	GetAll(ctx context.Context) ([]*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.CredentialView, error)
	// Update rewrites the parent scalar fields (email and mobile excluded)
	// and fully replaces both child collections in one transaction.
	Update(ctx context.Context, u *entity.User) error
	// Delete removes addresses, then roles, then the parent row, in one
	// transaction. The explicit order keeps the operation correct on
	// storage without cascade support.
	Delete(ctx context.Context, id string) error
	// UpdatePassword sets the password hash by username and returns the id
	// of the affected user.
	UpdatePassword(ctx context.Context, username, hash string) (string, error)
	ExistsByEmailOrMobile(ctx context.Context, email string, mobile int64) (bool, error)
}

// SequenceAllocator durably allocates the next integer in a named counter
// series. Implementations must be a single atomic read-modify-write at the
// storage layer; a separate select-then-update is not acceptable.
type SequenceAllocator interface {
	Next(ctx context.Context, prefix string) (int64, error)
}
