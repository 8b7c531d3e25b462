package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OperationDeposit  OperationType = "deposit"
	OperationWithdraw OperationType = "withdraw"
	OperationTransfer OperationType = "transfer"
)

// Statement is one recorded monetary operation. A transfer is stored as two
// statements: a debit on the sender (ReceiverID set) and a credit on the
// receiver (SenderID set), linked by TransferID. Statements are append-only
// and never mutated after creation.
type Statement struct {
	ID          string
	UserID      string
	Type        OperationType
	Amount      decimal.Decimal
	Description string
	SenderID    *string
	ReceiverID  *string
	TransferID  *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Credit reports whether the statement increases its owner's balance.
func (s *Statement) Credit() bool {
	switch s.Type {
	case OperationDeposit:
		return true
	case OperationTransfer:
		return s.SenderID != nil
	}
	return false
}
