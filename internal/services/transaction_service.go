// Package services orchestrates transaction writes across the remote
// transactions service, the SQLite outbox and the AMQP notifier.
package services

import (
	"context"
	"errors"
	"fmt"

	"finsight/internal/core"
	"finsight/internal/log"
	"finsight/internal/ports"
)

// ErrDeferred means the remote write failed but the transaction was queued
// and will be replayed by the worker.
var ErrDeferred = ports.ErrDeferred

// Outbox stores writes that could not be delivered.
type Outbox interface {
	Enqueue(ctx context.Context, username string, tx core.Transaction) (int64, error)
}

// Publisher announces queued writes to the worker.
type Publisher interface {
	PublishOutbox(ctx context.Context, id int64, transactionID, username string) error
}

// TransactionService writes through to the transactions service and falls
// back to the outbox when it is unavailable. It satisfies
// ports.TransactionWriter.
type TransactionService struct {
	remote    ports.TransactionWriter
	outbox    Outbox
	publisher Publisher
	logger    *log.Logger
}

// NewTransactionService builds the service. outbox and publisher may be nil;
// without an outbox failures are returned unchanged.
func NewTransactionService(remote ports.TransactionWriter, outbox Outbox, publisher Publisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.Discard()
	}
	return &TransactionService{
		remote:    remote,
		outbox:    outbox,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentStorage),
	}
}

// AppendTransaction sends tx to the transactions service. Only
// availability failures are queued; a rejected transaction is returned as
// is since replaying it cannot succeed.
func (s *TransactionService) AppendTransaction(ctx context.Context, username string, tx core.Transaction) error {
	err := s.remote.AppendTransaction(ctx, username, tx)
	if err == nil {
		return nil
	}
	if s.outbox == nil || !errors.Is(err, ports.ErrUnavailable) {
		return err
	}

	id, qerr := s.outbox.Enqueue(ctx, username, tx)
	if qerr != nil {
		s.logger.ErrorContext(ctx, "Failed to queue transaction",
			log.FieldUsername, username, log.FieldError, qerr)
		return errors.Join(err, fmt.Errorf("queue transaction: %w", qerr))
	}

	s.logger.WarnContext(ctx, "Transactions service unavailable, write queued",
		log.FieldOutboxID, id, log.FieldUsername, username, log.FieldError, err)

	if s.publisher != nil {
		if perr := s.publisher.PublishOutbox(ctx, id, tx.ID, username); perr != nil {
			// the worker's periodic scan still picks it up
			s.logger.WarnContext(ctx, "Failed to publish outbox message",
				log.FieldOutboxID, id, log.FieldError, perr)
		}
	}

	return fmt.Errorf("transaction %s: %w: %w", tx.ID, ErrDeferred, err)
}
