package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finledger/internal/domain"
	"finledger/internal/outbox"
	outbox_memory "finledger/internal/repository/outbox_repo/memory"
	statements_memory "finledger/internal/repository/statements_repo/memory"
	users_memory "finledger/internal/repository/users_repo/memory"
	"finledger/internal/storage"
	"finledger/internal/util"
)

type testEnv struct {
	service    LedgerService
	users      *users_memory.UserRepository
	statements *statements_memory.StatementRepository
	outbox     *outbox_memory.OutboxRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		users:      users_memory.NewUserRepository(),
		statements: statements_memory.NewStatementRepository(),
		outbox:     outbox_memory.NewOutboxRepository(),
	}
	env.service = NewLedgerService(
		storage.NewMemoryTxManager(),
		env.users,
		env.statements,
		env.outbox,
		zap.NewNop(),
	)
	return env
}

func (e *testEnv) addUser(t *testing.T, name string) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:        util.GenerateUUID(),
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.users.CreateTx(context.Background(), nil, user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func (e *testEnv) deposit(t *testing.T, userID string, amount int64) *domain.Statement {
	t.Helper()
	statement, err := e.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID:      userID,
		Type:        domain.OperationDeposit,
		Amount:      decimal.NewFromInt(amount),
		Description: "test deposit",
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	return statement
}

func (e *testEnv) balanceOf(t *testing.T, userID string) decimal.Decimal {
	t.Helper()
	balance, err := e.service.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	return balance.Balance
}

func TestCreateStatementDeposit(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	statement, err := env.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID:      user.ID,
		Type:        domain.OperationDeposit,
		Amount:      decimal.NewFromInt(10),
		Description: "payday",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if statement.ID == "" {
		t.Error("expected statement to have an assigned id")
	}
	if statement.UserID != user.ID {
		t.Errorf("expected user id %s, got %s", user.ID, statement.UserID)
	}
	if statement.Type != domain.OperationDeposit {
		t.Errorf("expected type deposit, got %s", statement.Type)
	}
	if !statement.Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected amount 10, got %s", statement.Amount)
	}

	if got := env.balanceOf(t, user.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected balance 10, got %s", got)
	}
}

func TestCreateStatementWithdraw(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	env.deposit(t, user.ID, 100)

	_, err := env.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID:      user.ID,
		Type:        domain.OperationWithdraw,
		Amount:      decimal.NewFromInt(40),
		Description: "groceries",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := env.balanceOf(t, user.ID); !got.Equal(decimal.NewFromInt(60)) {
		t.Errorf("expected balance 60, got %s", got)
	}
}

func TestCreateStatementInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	env.deposit(t, user.ID, 10)

	_, err := env.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID:      user.ID,
		Type:        domain.OperationWithdraw,
		Amount:      decimal.NewFromInt(20),
		Description: "too much",
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Balance unchanged and the failed withdrawal was not persisted.
	balance, err := env.service.GetBalance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected balance 10, got %s", balance.Balance)
	}
	if len(balance.Statements) != 1 {
		t.Errorf("expected 1 statement, got %d", len(balance.Statements))
	}
}

func TestCreateStatementUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID:      "nonexistent",
		Type:        domain.OperationDeposit,
		Amount:      decimal.NewFromInt(10),
		Description: "ghost",
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if messages := env.outbox.Messages(); len(messages) != 0 {
		t.Errorf("expected no outbox messages, got %d", len(messages))
	}
}

func TestCreateStatementInvalidOperation(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	cases := []struct {
		name  string
		input CreateStatementInput
	}{
		{
			name:  "zero amount",
			input: CreateStatementInput{UserID: user.ID, Type: domain.OperationDeposit, Amount: decimal.Zero},
		},
		{
			name:  "negative amount",
			input: CreateStatementInput{UserID: user.ID, Type: domain.OperationWithdraw, Amount: decimal.NewFromInt(-5)},
		},
		{
			name:  "unknown type",
			input: CreateStatementInput{UserID: user.ID, Type: "loan", Amount: decimal.NewFromInt(5)},
		},
		{
			name:  "transfer through simple create",
			input: CreateStatementInput{UserID: user.ID, Type: domain.OperationTransfer, Amount: decimal.NewFromInt(5)},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateStatement(context.Background(), tc.input)
			if !errors.Is(err, ErrInvalidOperation) {
				t.Fatalf("expected ErrInvalidOperation, got %v", err)
			}
		})
	}
}

func TestCreateTransfer(t *testing.T) {
	env := newTestEnv(t)
	sender := env.addUser(t, "alice")
	receiver := env.addUser(t, "bob")
	env.deposit(t, sender.ID, 100)

	transfer, err := env.service.CreateTransfer(context.Background(), sender.ID, receiver.ID, decimal.NewFromInt(30), "rent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if transfer.Debit.UserID != sender.ID {
		t.Errorf("debit leg should belong to sender, got %s", transfer.Debit.UserID)
	}
	if transfer.Credit.UserID != receiver.ID {
		t.Errorf("credit leg should belong to receiver, got %s", transfer.Credit.UserID)
	}
	if transfer.Debit.TransferID == nil || transfer.Credit.TransferID == nil {
		t.Fatal("both legs should carry a transfer id")
	}
	if *transfer.Debit.TransferID != *transfer.Credit.TransferID {
		t.Error("legs should be linked by the same transfer id")
	}
	if transfer.Debit.ReceiverID == nil || *transfer.Debit.ReceiverID != receiver.ID {
		t.Error("debit leg should reference the receiver")
	}
	if transfer.Credit.SenderID == nil || *transfer.Credit.SenderID != sender.ID {
		t.Error("credit leg should reference the sender")
	}

	if got := env.balanceOf(t, sender.ID); !got.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected sender balance 70, got %s", got)
	}
	if got := env.balanceOf(t, receiver.ID); !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected receiver balance 30, got %s", got)
	}
}

func TestCreateTransferInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	sender := env.addUser(t, "alice")
	receiver := env.addUser(t, "bob")
	env.deposit(t, sender.ID, 10)

	_, err := env.service.CreateTransfer(context.Background(), sender.ID, receiver.ID, decimal.NewFromInt(50), "rent")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Neither leg was committed.
	if got := env.balanceOf(t, sender.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("expected sender balance 10, got %s", got)
	}
	receiverBalance, err := env.service.GetBalance(context.Background(), receiver.ID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !receiverBalance.Balance.IsZero() || len(receiverBalance.Statements) != 0 {
		t.Errorf("expected receiver untouched, got balance %s with %d statements",
			receiverBalance.Balance, len(receiverBalance.Statements))
	}
}

func TestCreateTransferUnknownUsers(t *testing.T) {
	env := newTestEnv(t)
	sender := env.addUser(t, "alice")
	env.deposit(t, sender.ID, 100)

	_, err := env.service.CreateTransfer(context.Background(), sender.ID, "nonexistent", decimal.NewFromInt(10), "void")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown receiver, got %v", err)
	}

	_, err = env.service.CreateTransfer(context.Background(), "nonexistent", sender.ID, decimal.NewFromInt(10), "void")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for unknown sender, got %v", err)
	}
}

func TestCreateTransferToSelf(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	env.deposit(t, user.ID, 100)

	_, err := env.service.CreateTransfer(context.Background(), user.ID, user.ID, decimal.NewFromInt(10), "loop")
	if !errors.Is(err, ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
}

func TestGetBalanceEmptyLedger(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	balance, err := env.service.GetBalance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !balance.Balance.IsZero() {
		t.Errorf("expected balance 0, got %s", balance.Balance)
	}
	if len(balance.Statements) != 0 {
		t.Errorf("expected empty statement list, got %d entries", len(balance.Statements))
	}
}

func TestGetBalanceAggregation(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	other := env.addUser(t, "bob")

	env.deposit(t, user.ID, 100)
	if _, err := env.service.CreateStatement(context.Background(), CreateStatementInput{
		UserID: user.ID,
		Type:   domain.OperationWithdraw,
		Amount: decimal.NewFromInt(25),
	}); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	if _, err := env.service.CreateTransfer(context.Background(), user.ID, other.ID, decimal.NewFromInt(15), "split"); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	env.deposit(t, other.ID, 5)
	if _, err := env.service.CreateTransfer(context.Background(), other.ID, user.ID, decimal.NewFromInt(20), "payback"); err != nil {
		t.Fatalf("transfer back failed: %v", err)
	}

	// 100 - 25 - 15 + 20
	balance, err := env.service.GetBalance(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if !balance.Balance.Equal(decimal.NewFromInt(80)) {
		t.Errorf("expected balance 80, got %s", balance.Balance)
	}
	if len(balance.Statements) != 4 {
		t.Fatalf("expected 4 statements, got %d", len(balance.Statements))
	}

	// Oldest first.
	for i := 1; i < len(balance.Statements); i++ {
		if balance.Statements[i].CreatedAt.Before(balance.Statements[i-1].CreatedAt) {
			t.Errorf("statements out of order at index %d", i)
		}
	}
	if balance.Statements[0].Type != domain.OperationDeposit {
		t.Errorf("expected first statement to be the deposit, got %s", balance.Statements[0].Type)
	}
}

func TestGetBalanceUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.service.GetBalance(context.Background(), "nonexistent")
	if !errors.Is(err, ErrBalanceUserNotFound) {
		t.Fatalf("expected ErrBalanceUserNotFound, got %v", err)
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Error("GetBalance failure kind should be distinct from ErrUserNotFound")
	}
}

func TestGetStatementOperation(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	created := env.deposit(t, user.ID, 10)

	fetched, err := env.service.GetStatementOperation(context.Background(), user.ID, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != created.ID ||
		fetched.UserID != created.UserID ||
		fetched.Type != created.Type ||
		fetched.Description != created.Description ||
		!fetched.Amount.Equal(created.Amount) {
		t.Errorf("fetched statement differs from created one: %+v vs %+v", fetched, created)
	}
}

func TestGetStatementOperationUnknownUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	created := env.deposit(t, user.ID, 10)

	_, err := env.service.GetStatementOperation(context.Background(), "nonexistent", created.ID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetStatementOperationUnknownStatement(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")

	_, err := env.service.GetStatementOperation(context.Background(), user.ID, "nonexistent")
	if !errors.Is(err, ErrStatementNotFound) {
		t.Fatalf("expected ErrStatementNotFound, got %v", err)
	}
}

func TestGetStatementOperationOwnershipScoped(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "alice")
	intruder := env.addUser(t, "bob")
	created := env.deposit(t, owner.ID, 10)

	// A statement owned by someone else must look like it does not exist.
	_, err := env.service.GetStatementOperation(context.Background(), intruder.ID, created.ID)
	if !errors.Is(err, ErrStatementNotFound) {
		t.Fatalf("expected ErrStatementNotFound, got %v", err)
	}
}

func TestCreateStatementEnqueuesOutboxEvent(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice")
	created := env.deposit(t, user.ID, 10)

	messages := env.outbox.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(messages))
	}
	message := messages[0]
	if message.MessageType != outbox.MessageTypeStatementCreated {
		t.Errorf("expected message type %s, got %s", outbox.MessageTypeStatementCreated, message.MessageType)
	}
	if message.AggregateID != created.ID {
		t.Errorf("expected aggregate id %s, got %s", created.ID, message.AggregateID)
	}
	if message.Status != domain.OutboxStatusPending {
		t.Errorf("expected status PENDING, got %s", message.Status)
	}

	var event outbox.StatementCreatedEvent
	if err := json.Unmarshal(message.Payload, &event); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if event.StatementID != created.ID || event.UserID != user.ID || event.Amount != "10" {
		t.Errorf("unexpected event payload: %+v", event)
	}
}

func TestCreateTransferEnqueuesBothLegs(t *testing.T) {
	env := newTestEnv(t)
	sender := env.addUser(t, "alice")
	receiver := env.addUser(t, "bob")
	env.deposit(t, sender.ID, 100)

	if _, err := env.service.CreateTransfer(context.Background(), sender.ID, receiver.ID, decimal.NewFromInt(30), "rent"); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// One message for the seed deposit plus one per transfer leg.
	messages := env.outbox.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected 3 outbox messages, got %d", len(messages))
	}
}
