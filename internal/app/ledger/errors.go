package ledger

import "errors"

// Failure kinds are scoped per operation so transport callers can branch on
// them without one operation's error leaking into another's contract.
var (
	// ErrUserNotFound is returned by CreateStatement, CreateTransfer and
	// GetStatementOperation when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBalanceUserNotFound is GetBalance's own not-found kind.
	ErrBalanceUserNotFound = errors.New("user not found for balance")

	// ErrInsufficientFunds is returned when a withdrawal or outgoing
	// transfer exceeds the current balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrStatementNotFound covers both a missing statement and a statement
	// owned by a different user; ownership is never revealed.
	ErrStatementNotFound = errors.New("statement not found")

	// ErrInvalidOperation guards malformed input: non-positive amounts,
	// unknown operation types, self-transfers.
	ErrInvalidOperation = errors.New("invalid operation")
)
