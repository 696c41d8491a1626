package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"finsight/internal/log"
	"finsight/internal/ports"
	"finsight/internal/storage"
)

// ReplayConfig holds configuration for the replay processor
type ReplayConfig struct {
	// PollInterval is how often to scan for pending writes (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of writes replayed per scan (default: 10)
	BatchSize int

	// MaxRetries is the number of attempts before a write is parked (default: 5)
	MaxRetries int

	// CleanupInterval is how often delivered entries are purged (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old delivered entries must be before purging (default: 24h)
	CleanupAge time.Duration

	// ClaimLease is how long a replayer holds an entry before another may
	// take it over (default: 2m)
	ClaimLease time.Duration
}

func DefaultReplayConfig() ReplayConfig {
	return ReplayConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxRetries:      5,
		CleanupInterval: time.Hour,
		CleanupAge:      24 * time.Hour,
		ClaimLease:      2 * time.Minute,
	}
}

// OutboxStore is the part of storage.SQLiteRepository the processor uses.
type OutboxStore interface {
	Claim(ctx context.Context, id int64, lease time.Duration) (storage.PendingTransaction, bool, error)
	ListPending(ctx context.Context, limit int) ([]storage.PendingTransaction, error)
	MarkDelivered(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) (string, error)
	PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error)
}

// Outcome is the result of replaying one outbox entry.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRetry     Outcome = "retry"
	OutcomeParked    Outcome = "parked"
	OutcomeSkipped   Outcome = "skipped"
)

// ReplayProcessor delivers queued writes to the transactions service.
type ReplayProcessor struct {
	store  OutboxStore
	remote ports.TransactionWriter
	config ReplayConfig
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReplayProcessor(store OutboxStore, remote ports.TransactionWriter, config ReplayConfig, logger *log.Logger) *ReplayProcessor {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReplayProcessor{
		store:  store,
		remote: remote,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *ReplayProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("replay processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	p.logger.InfoContext(ctx, "Replay processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it to finish or ctx to expire.
func (p *ReplayProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		p.logger.InfoContext(ctx, "Replay processor stopped")
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "Replay processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ReplayProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ReplayProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()
	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			if _, err := p.ReplayPending(ctx, p.config.BatchSize); err != nil {
				p.logger.ErrorContext(ctx, "Periodic replay failed", log.FieldError, err)
			}
		case <-cleanupTicker.C:
			p.cleanup(ctx)
		}
	}
}

// ReplayPending replays up to limit pending writes, oldest first, and
// returns how many were delivered.
func (p *ReplayProcessor) ReplayPending(ctx context.Context, limit int) (int, error) {
	items, err := p.store.ListPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	p.logger.DebugContext(ctx, "Replaying pending writes", log.FieldCount, len(items))

	delivered := 0
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		outcome, err := p.ReplayOne(ctx, item.ID)
		if err != nil {
			return delivered, err
		}
		if outcome == OutcomeDelivered {
			delivered++
		}
	}
	return delivered, nil
}

// ReplayOne replays the entry id if it is still pending and no other
// replayer holds it. The error is only non-nil when the outbox itself fails;
// delivery failures are recorded on the entry and reported through the
// outcome.
func (p *ReplayProcessor) ReplayOne(ctx context.Context, id int64) (Outcome, error) {
	item, ok, err := p.store.Claim(ctx, id, p.lease())
	if err != nil {
		return "", err
	}
	if !ok {
		return OutcomeSkipped, nil
	}
	return p.deliver(ctx, item)
}

func (p *ReplayProcessor) lease() time.Duration {
	if p.config.ClaimLease > 0 {
		return p.config.ClaimLease
	}
	return DefaultReplayConfig().ClaimLease
}

func (p *ReplayProcessor) deliver(ctx context.Context, item storage.PendingTransaction) (Outcome, error) {
	err := p.remote.AppendTransaction(ctx, item.Username, item.Transaction)
	if err == nil {
		if err := p.store.MarkDelivered(ctx, item.ID); err != nil {
			return "", fmt.Errorf("mark delivered: %w", err)
		}
		p.logger.InfoContext(ctx, "Replayed transaction",
			log.FieldOutboxID, item.ID,
			log.FieldUsername, item.Username,
			log.FieldAmountCents, item.Transaction.Amount.Cents)
		return OutcomeDelivered, nil
	}

	// a rejected write will never succeed
	maxAttempts := p.config.MaxRetries
	if !errors.Is(err, ports.ErrUnavailable) {
		maxAttempts = 1
	}
	p.logger.WarnContext(ctx, "Replay attempt failed",
		log.FieldOutboxID, item.ID,
		"attempt", item.Attempts+1,
		log.FieldError, err)

	status, merr := p.store.MarkFailed(ctx, item.ID, err, maxAttempts)
	if merr != nil {
		return "", fmt.Errorf("mark failed: %w", merr)
	}
	if status == storage.StatusFailed {
		return OutcomeParked, nil
	}
	return OutcomeRetry, nil
}

func (p *ReplayProcessor) cleanup(ctx context.Context) {
	n, err := p.store.PurgeDelivered(ctx, p.now().Add(-p.config.CleanupAge))
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to purge delivered entries", log.FieldError, err)
		return
	}
	if n > 0 {
		p.logger.InfoContext(ctx, "Purged delivered entries", log.FieldCount, n)
	}
}
