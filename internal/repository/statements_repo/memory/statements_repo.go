package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"finledger/internal/domain"
	"finledger/internal/repository/statements_repo"
)

// StatementRepository keeps statements in process memory, preserving
// insertion order per user so listings come back oldest first.
type StatementRepository struct {
	mu     sync.RWMutex
	byID   map[string]domain.Statement
	byUser map[string][]string
}

func NewStatementRepository() *StatementRepository {
	return &StatementRepository{
		byID:   make(map[string]domain.Statement),
		byUser: make(map[string][]string),
	}
}

func (r *StatementRepository) CreateTx(ctx context.Context, _ domain.Querier, statement *domain.Statement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[statement.ID] = *statement
	r.byUser[statement.UserID] = append(r.byUser[statement.UserID], statement.ID)
	return nil
}

func (r *StatementRepository) GetByIDTx(ctx context.Context, _ domain.Querier, id string) (*domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statement, ok := r.byID[id]
	if !ok {
		return nil, statements_repo.ErrStatementNotFound
	}
	return &statement, nil
}

func (r *StatementRepository) ListByUserTx(ctx context.Context, _ domain.Querier, userID string) ([]domain.Statement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	statements := make([]domain.Statement, 0, len(ids))
	for _, id := range ids {
		statements = append(statements, r.byID[id])
	}
	return statements, nil
}

func (r *StatementRepository) GetUserBalanceTx(ctx context.Context, _ domain.Querier, userID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	balance := decimal.Zero
	for _, id := range r.byUser[userID] {
		statement := r.byID[id]
		if statement.Credit() {
			balance = balance.Add(statement.Amount)
		} else {
			balance = balance.Sub(statement.Amount)
		}
	}
	return balance, nil
}
