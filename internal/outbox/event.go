package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"finledger/internal/domain"
)

const (
	AggregateTypeStatement      = "statement"
	MessageTypeStatementCreated = "ledger.statement.created"
)

// StatementCreatedEvent is the wire form of a committed statement. Amounts
// are serialized as strings to keep decimal precision across consumers.
type StatementCreatedEvent struct {
	StatementID string    `json:"statement_id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	SenderID    *string   `json:"sender_id,omitempty"`
	ReceiverID  *string   `json:"receiver_id,omitempty"`
	TransferID  *string   `json:"transfer_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func PrepareStatementCreatedPayload(statement *domain.Statement) ([]byte, error) {
	event := StatementCreatedEvent{
		StatementID: statement.ID,
		UserID:      statement.UserID,
		Type:        string(statement.Type),
		Amount:      statement.Amount.String(),
		Description: statement.Description,
		SenderID:    statement.SenderID,
		ReceiverID:  statement.ReceiverID,
		TransferID:  statement.TransferID,
		CreatedAt:   statement.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal statement created event: %w", err)
	}
	return payload, nil
}
