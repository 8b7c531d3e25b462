package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"finledger/internal/domain"
)

// TxManager runs a function as one atomic unit of work. All writes a use case
// performs inside fn either commit together or not at all.
type TxManager interface {
	Do(ctx context.Context, fn func(q domain.Querier) error) error
}

type sqlTxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

func (m *sqlTxManager) Do(ctx context.Context, fn func(q domain.Querier) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("failed to rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// memoryTxManager serializes all units of work behind a single mutex. Used
// with the in-memory repositories, where the mutex also stands in for the
// per-account row locks the SQL implementation takes.
type memoryTxManager struct {
	mu sync.Mutex
}

func NewMemoryTxManager() TxManager {
	return &memoryTxManager{}
}

func (m *memoryTxManager) Do(ctx context.Context, fn func(q domain.Querier) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// The in-memory repositories ignore the querier.
	return fn(nil)
}
