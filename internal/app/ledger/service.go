package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger/internal/domain"
	"finledger/internal/outbox"
	"finledger/internal/repository/outbox_repo"
	"finledger/internal/repository/statements_repo"
	"finledger/internal/repository/users_repo"
	"finledger/internal/storage"
	"finledger/internal/util"
)

// CreateStatementInput describes a simple (single-leg) operation.
type CreateStatementInput struct {
	UserID      string
	Type        domain.OperationType
	Amount      decimal.Decimal
	Description string
}

// Transfer is the pair of statements created by one transfer: the debit leg
// on the sender and the credit leg on the receiver.
type Transfer struct {
	Debit  *domain.Statement
	Credit *domain.Statement
}

// Balance is a user's current balance together with the full ordered ledger,
// oldest statement first.
type Balance struct {
	Balance    decimal.Decimal
	Statements []domain.Statement
}

type LedgerService interface {
	CreateStatement(ctx context.Context, input CreateStatementInput) (*domain.Statement, error)
	CreateTransfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description string) (*Transfer, error)
	GetBalance(ctx context.Context, userID string) (*Balance, error)
	GetStatementOperation(ctx context.Context, userID, statementID string) (*domain.Statement, error)
}

type ledgerService struct {
	txm        storage.TxManager
	users      users_repo.UserRepository
	statements statements_repo.StatementRepository
	outboxRepo outbox_repo.OutboxRepository
	logger     *zap.Logger
}

func NewLedgerService(
	txm storage.TxManager,
	users users_repo.UserRepository,
	statements statements_repo.StatementRepository,
	outboxRepo outbox_repo.OutboxRepository,
	logger *zap.Logger,
) LedgerService {
	return &ledgerService{
		txm:        txm,
		users:      users,
		statements: statements,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateStatement validates and appends a deposit or withdrawal. The user
// lock, the balance read and the append happen in one transaction, so the
// no-overdraft check cannot race a concurrent write on the same account.
func (s *ledgerService) CreateStatement(ctx context.Context, input CreateStatementInput) (*domain.Statement, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidOperation
	}
	if input.Type != domain.OperationDeposit && input.Type != domain.OperationWithdraw {
		return nil, ErrInvalidOperation
	}

	var created *domain.Statement
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		if err := s.users.LockTx(ctx, q, input.UserID); err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user %s: %w", input.UserID, err)
		}

		if input.Type == domain.OperationWithdraw {
			balance, err := s.statements.GetUserBalanceTx(ctx, q, input.UserID)
			if err != nil {
				return fmt.Errorf("failed to get balance for user %s: %w", input.UserID, err)
			}
			if input.Amount.GreaterThan(balance) {
				return ErrInsufficientFunds
			}
		}

		statement := newStatement(input.UserID, input.Type, input.Amount, input.Description)
		if err := s.statements.CreateTx(ctx, q, statement); err != nil {
			return err
		}
		if err := s.enqueueStatementCreated(ctx, q, statement); err != nil {
			return err
		}
		created = statement
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Statement created",
		zap.String("statement_id", created.ID),
		zap.String("user_id", created.UserID),
		zap.String("type", string(created.Type)),
		zap.String("amount", created.Amount.String()))
	return created, nil
}

// CreateTransfer moves funds between two users as one atomic unit: either
// both legs commit or neither does. Both user rows are locked before the
// sender's balance is checked.
func (s *ledgerService) CreateTransfer(ctx context.Context, senderID, receiverID string, amount decimal.Decimal, description string) (*Transfer, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidOperation
	}
	if senderID == receiverID {
		return nil, ErrInvalidOperation
	}

	var transfer *Transfer
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		if err := s.users.LockTx(ctx, q, senderID, receiverID); err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to lock users %s, %s: %w", senderID, receiverID, err)
		}

		balance, err := s.statements.GetUserBalanceTx(ctx, q, senderID)
		if err != nil {
			return fmt.Errorf("failed to get balance for user %s: %w", senderID, err)
		}
		if amount.GreaterThan(balance) {
			return ErrInsufficientFunds
		}

		transferID := util.GenerateUUID()

		debit := newStatement(senderID, domain.OperationTransfer, amount, description)
		debit.ReceiverID = &receiverID
		debit.TransferID = &transferID

		credit := newStatement(receiverID, domain.OperationTransfer, amount, description)
		credit.SenderID = &senderID
		credit.TransferID = &transferID

		for _, statement := range []*domain.Statement{debit, credit} {
			if err := s.statements.CreateTx(ctx, q, statement); err != nil {
				return err
			}
			if err := s.enqueueStatementCreated(ctx, q, statement); err != nil {
				return err
			}
		}

		transfer = &Transfer{Debit: debit, Credit: credit}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer created",
		zap.String("transfer_id", *transfer.Debit.TransferID),
		zap.String("sender_id", senderID),
		zap.String("receiver_id", receiverID),
		zap.String("amount", amount.String()))
	return transfer, nil
}

// GetBalance aggregates the user's ledger. The list and the sum are read in
// the same transaction, so the scalar is always consistent with the list.
func (s *ledgerService) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	var result *Balance
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		if _, err := s.users.GetByIDTx(ctx, q, userID); err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrBalanceUserNotFound
			}
			return fmt.Errorf("failed to get user %s: %w", userID, err)
		}

		statements, err := s.statements.ListByUserTx(ctx, q, userID)
		if err != nil {
			return err
		}
		balance, err := s.statements.GetUserBalanceTx(ctx, q, userID)
		if err != nil {
			return err
		}

		result = &Balance{Balance: balance, Statements: statements}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetStatementOperation fetches one statement scoped to its owner. A
// statement belonging to another user is reported as not found.
func (s *ledgerService) GetStatementOperation(ctx context.Context, userID, statementID string) (*domain.Statement, error) {
	var statement *domain.Statement
	err := s.txm.Do(ctx, func(q domain.Querier) error {
		if _, err := s.users.GetByIDTx(ctx, q, userID); err != nil {
			if errors.Is(err, users_repo.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user %s: %w", userID, err)
		}

		found, err := s.statements.GetByIDTx(ctx, q, statementID)
		if err != nil {
			if errors.Is(err, statements_repo.ErrStatementNotFound) {
				return ErrStatementNotFound
			}
			return err
		}
		if found.UserID != userID {
			return ErrStatementNotFound
		}

		statement = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statement, nil
}

func (s *ledgerService) enqueueStatementCreated(ctx context.Context, q domain.Querier, statement *domain.Statement) error {
	payload, err := outbox.PrepareStatementCreatedPayload(statement)
	if err != nil {
		return err
	}

	message := &domain.OutboxMessage{
		ID:            util.GenerateUUID(),
		AggregateID:   statement.ID,
		AggregateType: outbox.AggregateTypeStatement,
		MessageType:   outbox.MessageTypeStatementCreated,
		Key:           statement.UserID,
		Payload:       payload,
		Status:        domain.OutboxStatusPending,
		CreatedAt:     statement.CreatedAt,
	}
	if err := s.outboxRepo.CreateMessageTx(ctx, q, message); err != nil {
		return fmt.Errorf("failed to enqueue statement created event: %w", err)
	}
	return nil
}

func newStatement(userID string, opType domain.OperationType, amount decimal.Decimal, description string) *domain.Statement {
	now := time.Now()
	return &domain.Statement{
		ID:          util.GenerateUUID(),
		UserID:      userID,
		Type:        opType,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
