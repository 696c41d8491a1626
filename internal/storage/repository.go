// Package storage is the SQLite outbox of transaction writes that could not
// be delivered to the transactions service.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"finsight/internal/core"
	"finsight/internal/log"
)

// Outbox statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

var ErrNotFound = errors.New("pending transaction not found")

// PendingTransaction is a queued write.
type PendingTransaction struct {
	ID          int64
	Username    string
	Transaction core.Transaction
	Status      string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY between the server and worker goroutines
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Enqueue stores a write for later delivery and returns its outbox id.
// Enqueuing the same transaction ID twice returns the existing entry.
func (r *SQLiteRepository) Enqueue(ctx context.Context, username string, tx core.Transaction) (int64, error) {
	if tx.ID == "" {
		return 0, errors.New("transaction id is required")
	}
	err := r.queries.insertPending(ctx, insertParams{
		TxID:          tx.ID,
		Username:      username,
		Date:          tx.Date.String(),
		Time:          tx.Time,
		Merchant:      tx.Merchant,
		AmountCents:   tx.Amount.Cents,
		Category:      tx.Category,
		Mood:          tx.Mood,
		Location:      tx.Location,
		CalendarEvent: tx.CalendarEvent,
		Now:           r.now().Unix(),
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue transaction: %w", err)
	}
	row, err := r.queries.getByTxID(ctx, tx.ID)
	if err != nil {
		return 0, fmt.Errorf("read enqueued transaction: %w", err)
	}
	r.logger.InfoContext(ctx, "Transaction queued for delivery",
		log.FieldOutboxID, row.ID, log.FieldUsername, username, log.FieldAmountCents, tx.Amount.Cents)
	return row.ID, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64) (PendingTransaction, error) {
	row, err := r.queries.get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return PendingTransaction{}, fmt.Errorf("outbox id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return PendingTransaction{}, fmt.Errorf("get pending transaction: %w", err)
	}
	return row.toPending()
}

// ListPending returns up to limit undelivered entries, oldest first.
func (r *SQLiteRepository) ListPending(ctx context.Context, limit int) ([]PendingTransaction, error) {
	rows, err := r.queries.listByStatus(ctx, StatusPending, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("list pending transactions: %w", err)
	}
	out := make([]PendingTransaction, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPending()
		if err != nil {
			r.logger.WarnContext(ctx, "Skipping unreadable outbox entry", log.FieldOutboxID, row.ID, log.FieldError, err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Claim leases the pending entry id to the caller until lease elapses.
// It reports false when the entry is unknown, no longer pending or held by
// another replayer. MarkDelivered and MarkFailed release the lease.
func (r *SQLiteRepository) Claim(ctx context.Context, id int64, lease time.Duration) (PendingTransaction, bool, error) {
	now := r.now()
	row, err := r.queries.claimPending(ctx, id, now.Add(lease).Unix(), now.Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return PendingTransaction{}, false, nil
	}
	if err != nil {
		return PendingTransaction{}, false, fmt.Errorf("claim pending transaction: %w", err)
	}
	p, err := row.toPending()
	if err != nil {
		return PendingTransaction{}, false, err
	}
	return p, true, nil
}

func (r *SQLiteRepository) MarkDelivered(ctx context.Context, id int64) error {
	n, err := r.queries.markDelivered(ctx, id, r.now().Unix())
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outbox id %d: %w", id, ErrNotFound)
	}
	return nil
}

// MarkFailed records a failed delivery attempt. Once attempts reach
// maxAttempts the entry is parked as failed. It returns the new status.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, cause error, maxAttempts int) (string, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	status, err := r.queries.markAttemptFailed(ctx, id, msg, int64(maxAttempts), r.now().Unix())
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("outbox id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("mark failed: %w", err)
	}
	if status == StatusFailed {
		r.logger.WarnContext(ctx, "Giving up on transaction delivery", log.FieldOutboxID, id, log.FieldError, msg)
	}
	return status, nil
}

// PurgeDelivered removes delivered entries last updated before cutoff.
func (r *SQLiteRepository) PurgeDelivered(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.queries.purgeDelivered(ctx, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge delivered transactions: %w", err)
	}
	return n, nil
}

// Stats counts outbox entries per status.
func (r *SQLiteRepository) Stats(ctx context.Context) (map[string]int64, error) {
	stats, err := r.queries.countByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}
	return stats, nil
}

func (r row) toPending() (PendingTransaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return PendingTransaction{}, fmt.Errorf("invalid date %q: %w", r.Date, err)
	}
	return PendingTransaction{
		ID:       r.ID,
		Username: r.Username,
		Transaction: core.Transaction{
			ID:            r.TxID,
			Date:          date,
			Time:          r.Time,
			Merchant:      r.Merchant,
			Category:      r.Category,
			Amount:        core.Money{Cents: r.AmountCents},
			Mood:          r.Mood,
			Location:      r.Location,
			CalendarEvent: r.CalendarEvent,
		},
		Status:    r.Status,
		Attempts:  int(r.Attempts),
		LastError: r.LastError,
		CreatedAt: time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(r.UpdatedAt, 0).UTC(),
	}, nil
}
