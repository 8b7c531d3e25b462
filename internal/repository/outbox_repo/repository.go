package outbox_repo

import (
	"context"

	"finledger/internal/domain"
)

type OutboxRepository interface {
	CreateMessageTx(ctx context.Context, q domain.Querier, message *domain.OutboxMessage) error
	GetPendingMessages(ctx context.Context, q domain.Querier, limit int) ([]domain.OutboxMessage, error)
	UpdateMessageStatus(ctx context.Context, q domain.Querier, id string, status domain.OutboxMessageStatus) error
}
