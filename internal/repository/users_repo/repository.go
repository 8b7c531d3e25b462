package users_repo

import (
	"context"
	"errors"

	"finledger/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserAlreadyExists = errors.New("user already exists")

// UserRepository is the user directory contract. LockTx takes exclusive
// per-user locks for the duration of the surrounding transaction; the ledger
// uses it to serialize the balance-check-then-append sequence per account.
type UserRepository interface {
	CreateTx(ctx context.Context, q domain.Querier, user *domain.User) error
	GetByIDTx(ctx context.Context, q domain.Querier, id string) (*domain.User, error)
	GetByEmailTx(ctx context.Context, q domain.Querier, email string) (*domain.User, error)
	LockTx(ctx context.Context, q domain.Querier, ids ...string) error
}
