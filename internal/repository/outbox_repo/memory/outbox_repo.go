package memory

import (
	"context"
	"sync"
	"time"

	"finledger/internal/domain"
)

// OutboxRepository collects outbox messages in memory so tests can assert
// which events a use case enqueued.
type OutboxRepository struct {
	mu       sync.RWMutex
	messages []domain.OutboxMessage
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) CreateMessageTx(ctx context.Context, _ domain.Querier, message *domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, *message)
	return nil
}

func (r *OutboxRepository) GetPendingMessages(ctx context.Context, _ domain.Querier, limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pending := []domain.OutboxMessage{}
	for _, message := range r.messages {
		if message.Status != domain.OutboxStatusPending {
			continue
		}
		pending = append(pending, message)
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (r *OutboxRepository) UpdateMessageStatus(ctx context.Context, _ domain.Querier, id string, status domain.OutboxMessageStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.messages {
		if r.messages[i].ID != id {
			continue
		}
		r.messages[i].Status = status
		if status == domain.OutboxStatusSent {
			now := time.Now()
			r.messages[i].SentAt = &now
		}
		return nil
	}
	return nil
}

// Messages returns a snapshot of everything written so far.
func (r *OutboxRepository) Messages() []domain.OutboxMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.OutboxMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
