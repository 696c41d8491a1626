package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the outbox statements.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// row is one pending_transactions record.
type row struct {
	ID            int64
	TxID          string
	Username      string
	Date          string
	Time          string
	Merchant      string
	AmountCents   int64
	Category      string
	Mood          string
	Location      string
	CalendarEvent string
	Status        string
	Attempts      int64
	LastError     string
	CreatedAt     int64
	UpdatedAt     int64
}

const rowColumns = `id, tx_id, username, date, time, merchant, amount_cents, category, mood, location,
calendar_event, status, attempts, last_error, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(s scanner) (row, error) {
	var r row
	err := s.Scan(&r.ID, &r.TxID, &r.Username, &r.Date, &r.Time, &r.Merchant, &r.AmountCents,
		&r.Category, &r.Mood, &r.Location, &r.CalendarEvent, &r.Status, &r.Attempts,
		&r.LastError, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type insertParams struct {
	TxID          string
	Username      string
	Date          string
	Time          string
	Merchant      string
	AmountCents   int64
	Category      string
	Mood          string
	Location      string
	CalendarEvent string
	Now           int64
}

const insertPending = `INSERT INTO pending_transactions
(tx_id, username, date, time, merchant, amount_cents, category, mood, location, calendar_event, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(tx_id) DO NOTHING`

func (q *Queries) insertPending(ctx context.Context, p insertParams) error {
	_, err := q.db.ExecContext(ctx, insertPending, p.TxID, p.Username, p.Date, p.Time, p.Merchant,
		p.AmountCents, p.Category, p.Mood, p.Location, p.CalendarEvent, p.Now, p.Now)
	return err
}

const getByTxID = `SELECT ` + rowColumns + ` FROM pending_transactions WHERE tx_id = ?`

func (q *Queries) getByTxID(ctx context.Context, txID string) (row, error) {
	return scanRow(q.db.QueryRowContext(ctx, getByTxID, txID))
}

const getPending = `SELECT ` + rowColumns + ` FROM pending_transactions WHERE id = ?`

func (q *Queries) get(ctx context.Context, id int64) (row, error) {
	return scanRow(q.db.QueryRowContext(ctx, getPending, id))
}

const listByStatus = `SELECT ` + rowColumns + ` FROM pending_transactions
WHERE status = ? ORDER BY created_at, id LIMIT ?`

func (q *Queries) listByStatus(ctx context.Context, status string, limit int64) ([]row, error) {
	rows, err := q.db.QueryContext(ctx, listByStatus, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// claimPending leases a pending row to one replayer. A row whose lease
// has expired can be claimed again.
const claimPending = `UPDATE pending_transactions
SET claimed_until = ?
WHERE id = ? AND status = 'pending' AND claimed_until <= ?
RETURNING ` + rowColumns

func (q *Queries) claimPending(ctx context.Context, id, until, now int64) (row, error) {
	return scanRow(q.db.QueryRowContext(ctx, claimPending, until, id, now))
}

const markDelivered = `UPDATE pending_transactions
SET status = 'delivered', attempts = attempts + 1, last_error = '', claimed_until = 0, updated_at = ?
WHERE id = ?`

func (q *Queries) markDelivered(ctx context.Context, id, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, markDelivered, now, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const markAttemptFailed = `UPDATE pending_transactions
SET attempts = attempts + 1,
    last_error = ?,
    status = CASE WHEN attempts + 1 >= ? THEN 'failed' ELSE 'pending' END,
    claimed_until = 0,
    updated_at = ?
WHERE id = ? AND status = 'pending'
RETURNING status`

func (q *Queries) markAttemptFailed(ctx context.Context, id int64, lastError string, maxAttempts, now int64) (string, error) {
	var status string
	err := q.db.QueryRowContext(ctx, markAttemptFailed, lastError, maxAttempts, now, id).Scan(&status)
	return status, err
}

const countByStatus = `SELECT status, COUNT(*) FROM pending_transactions GROUP BY status`

func (q *Queries) countByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := q.db.QueryContext(ctx, countByStatus)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

const purgeDelivered = `DELETE FROM pending_transactions WHERE status = 'delivered' AND updated_at < ?`

func (q *Queries) purgeDelivered(ctx context.Context, before int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, purgeDelivered, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
