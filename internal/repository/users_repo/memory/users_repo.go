package memory

import (
	"context"
	"sync"

	"finledger/internal/domain"
	"finledger/internal/repository/users_repo"
)

// UserRepository keeps users in process memory. Used in tests in place of the
// Postgres implementation; locking is a no-op because the memory TxManager
// already serializes units of work.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) CreateTx(ctx context.Context, _ domain.Querier, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return users_repo.ErrUserAlreadyExists
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *UserRepository) GetByIDTx(ctx context.Context, _ domain.Querier, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, users_repo.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByEmailTx(ctx context.Context, _ domain.Querier, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, users_repo.ErrUserNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *UserRepository) LockTx(ctx context.Context, _ domain.Querier, ids ...string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range ids {
		if _, ok := r.byID[id]; !ok {
			return users_repo.ErrUserNotFound
		}
	}
	return nil
}
