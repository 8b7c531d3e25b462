package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"

	"finledger/internal/domain"
	"finledger/internal/repository/users_repo"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) CreateTx(ctx context.Context, q domain.Querier, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := q.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return users_repo.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByIDTx(ctx context.Context, q domain.Querier, id string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(q.QueryRowContext(ctx, query, id), id)
}

func (r *UserRepository) GetByEmailTx(ctx context.Context, q domain.Querier, email string) (*domain.User, error) {
	query := `
		SELECT id, name, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	return r.scanUser(q.QueryRowContext(ctx, query, email), email)
}

// LockTx locks the given user rows FOR UPDATE until the transaction ends.
// Rows are locked in sorted id order so two transfers touching the same pair
// of users cannot deadlock. Returns ErrUserNotFound if any id is unknown.
func (r *UserRepository) LockTx(ctx context.Context, q domain.Querier, ids ...string) error {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	sort.Strings(unique)

	query := `SELECT id FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := q.QueryContext(ctx, query, pq.Array(unique))
	if err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	defer rows.Close()

	locked := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan locked user id: %w", err)
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to lock users: %w", err)
	}
	if locked != len(unique) {
		return users_repo.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) scanUser(row *sql.Row, key string) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, users_repo.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", key, err)
	}
	return user, nil
}
