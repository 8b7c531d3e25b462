package outbox

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"finledger/internal/domain"
	kafka_infra "finledger/internal/infrastructure/kafka"
	"finledger/internal/repository/outbox_repo"
)

const pollBatchSize = 10

// Processor polls pending outbox messages and publishes them to Kafka.
// Delivery is at-least-once: a message is marked SENT only after the producer
// acknowledges it, so a crash in between leads to a republish, never a loss.
type Processor struct {
	db           *sql.DB
	outboxRepo   outbox_repo.OutboxRepository
	producer     kafka_infra.Producer
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *zap.Logger
}

func NewProcessor(
	db *sql.DB,
	outboxRepo outbox_repo.OutboxRepository,
	producer kafka_infra.Producer,
	pollInterval time.Duration,
	pollTimeout time.Duration,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		db:           db,
		outboxRepo:   outboxRepo,
		producer:     producer,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

// Run blocks, polling until the context is canceled.
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("Outbox processor started", zap.Duration("poll_interval", p.pollInterval))
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox processor stopping")
			return
		case <-ticker.C:
			p.processPending(ctx)
		}
	}
}

func (p *Processor) processPending(ctx context.Context) {
	queryCtx, cancel := context.WithTimeout(ctx, p.pollTimeout)
	defer cancel()

	messages, err := p.outboxRepo.GetPendingMessages(queryCtx, p.db, pollBatchSize)
	if err != nil {
		p.logger.Error("Failed to get pending outbox messages", zap.Error(err))
		return
	}
	if len(messages) == 0 {
		return
	}

	p.logger.Debug("Found pending outbox messages", zap.Int("count", len(messages)))

	for _, message := range messages {
		if err := p.producer.Produce(ctx, message.Key, message.Payload); err != nil {
			p.logger.Error("Failed to publish outbox message",
				zap.String("message_id", message.ID),
				zap.Error(err))
			continue
		}

		if err := p.outboxRepo.UpdateMessageStatus(ctx, p.db, message.ID, domain.OutboxStatusSent); err != nil {
			p.logger.Error("Failed to mark outbox message as sent",
				zap.String("message_id", message.ID),
				zap.Error(err))
			continue
		}

		p.logger.Info("Outbox message published",
			zap.String("message_id", message.ID),
			zap.String("message_type", message.MessageType))
	}
}
