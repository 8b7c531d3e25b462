package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"finledger/internal/domain"
	"finledger/internal/repository/statements_repo"
)

type StatementRepository struct{}

func NewStatementRepository() *StatementRepository {
	return &StatementRepository{}
}

const statementColumns = `id, user_id, type, amount, description, sender_id, receiver_id, transfer_id, created_at, updated_at`

func (r *StatementRepository) CreateTx(ctx context.Context, q domain.Querier, statement *domain.Statement) error {
	query := `
		INSERT INTO statements (` + statementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := q.ExecContext(ctx, query,
		statement.ID,
		statement.UserID,
		statement.Type,
		statement.Amount,
		statement.Description,
		statement.SenderID,
		statement.ReceiverID,
		statement.TransferID,
		statement.CreatedAt,
		statement.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	return nil
}

func (r *StatementRepository) GetByIDTx(ctx context.Context, q domain.Querier, id string) (*domain.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statements WHERE id = $1`

	statement := &domain.Statement{}
	err := scanStatement(q.QueryRowContext(ctx, query, id), statement)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, statements_repo.ErrStatementNotFound
		}
		return nil, fmt.Errorf("failed to get statement %s: %w", id, err)
	}
	return statement, nil
}

func (r *StatementRepository) ListByUserTx(ctx context.Context, q domain.Querier, userID string) ([]domain.Statement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM statements
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	rows, err := q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list statements for user %s: %w", userID, err)
	}
	defer rows.Close()

	statements := []domain.Statement{}
	for rows.Next() {
		var statement domain.Statement
		if err := scanStatement(rows, &statement); err != nil {
			return nil, fmt.Errorf("failed to scan statement: %w", err)
		}
		statements = append(statements, statement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list statements for user %s: %w", userID, err)
	}
	return statements, nil
}

// GetUserBalanceTx computes the balance in SQL: deposits and incoming
// transfer legs count as credits, everything else as debits.
func (r *StatementRepository) GetUserBalanceTx(ctx context.Context, q domain.Querier, userID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(
			CASE WHEN type = 'deposit' OR (type = 'transfer' AND sender_id IS NOT NULL)
				THEN amount
				ELSE -amount
			END
		), 0)
		FROM statements
		WHERE user_id = $1
	`
	var balance decimal.Decimal
	if err := q.QueryRowContext(ctx, query, userID).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance for user %s: %w", userID, err)
	}
	return balance, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatement(row rowScanner, statement *domain.Statement) error {
	return row.Scan(
		&statement.ID,
		&statement.UserID,
		&statement.Type,
		&statement.Amount,
		&statement.Description,
		&statement.SenderID,
		&statement.ReceiverID,
		&statement.TransferID,
		&statement.CreatedAt,
		&statement.UpdatedAt,
	)
}
