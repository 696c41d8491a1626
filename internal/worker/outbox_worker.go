// Package worker consumes outbox notifications and replays the queued
// transaction writes.
package worker

import (
	"context"
	"fmt"

	"finsight/internal/amqp"
	"finsight/internal/log"
	"finsight/internal/services"
)

// Replayer is implemented by services.ReplayProcessor.
type Replayer interface {
	ReplayOne(ctx context.Context, id int64) (services.Outcome, error)
	ReplayPending(ctx context.Context, limit int) (int, error)
}

// OutboxWorker handles AMQP outbox messages.
type OutboxWorker struct {
	replayer  Replayer
	batchSize int
	logger    *log.Logger
}

func NewOutboxWorker(replayer Replayer, batchSize int, logger *log.Logger) *OutboxWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &OutboxWorker{
		replayer:  replayer,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage replays the entry named by msg. A failed delivery is
// recorded on the entry and the message is still acknowledged; only outbox
// errors cause a requeue.
func (w *OutboxWorker) HandleMessage(ctx context.Context, msg *amqp.OutboxMessage) error {
	w.logger.InfoContext(ctx, "Processing outbox message",
		log.FieldOutboxID, msg.ID,
		log.FieldUsername, msg.Username)

	outcome, err := w.replayer.ReplayOne(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("replay outbox %d: %w", msg.ID, err)
	}

	w.logger.InfoContext(ctx, "Outbox message handled",
		log.FieldOutboxID, msg.ID,
		"outcome", string(outcome))
	return nil
}

// StartupCheck replays writes left pending while the worker was down or
// whose messages were lost.
func (w *OutboxWorker) StartupCheck(ctx context.Context) error {
	delivered, err := w.replayer.ReplayPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup replay: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup replay completed", "delivered", delivered)
	return nil
}
