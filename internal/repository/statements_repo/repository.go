package statements_repo

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"finledger/internal/domain"
)

var ErrStatementNotFound = errors.New("statement not found")

// StatementRepository stores the append-only statement ledger.
// ListByUserTx returns statements ordered by creation time, oldest first.
// GetUserBalanceTx aggregates credits minus debits; callers that need the
// result to be consistent with a subsequent write must hold the user lock in
// the same transaction.
type StatementRepository interface {
	CreateTx(ctx context.Context, q domain.Querier, statement *domain.Statement) error
	GetByIDTx(ctx context.Context, q domain.Querier, id string) (*domain.Statement, error)
	ListByUserTx(ctx context.Context, q domain.Querier, userID string) ([]domain.Statement, error)
	GetUserBalanceTx(ctx context.Context, q domain.Querier, userID string) (decimal.Decimal, error)
}
