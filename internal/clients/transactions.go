package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"finsight/internal/core"
)

// Transactions is the client of the transactions service.
type Transactions struct {
	base
	group singleflight.Group
}

func NewTransactions(opts Options) *Transactions {
	return &Transactions{base: newBase(opts)}
}

// record is one transaction as served by the backend. Field matching is
// case-insensitive, so the capitalized CSV-style keys decode too.
type record struct {
	Date          string `json:"date"`
	Time          string `json:"time"`
	Merchant      string `json:"merchant"`
	Amount        amount `json:"amount"`
	Category      string `json:"category"`
	Mood          string `json:"mood"`
	Location      string `json:"location"`
	CalendarEvent string `json:"calendar_event"`
	BalanceAfter  amount `json:"balance_after"`
}

// amount accepts a JSON number, a numeric string or an empty string.
type amount struct {
	core.Money
}

func (a *amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		s = strings.TrimSpace(unq)
		if s == "" {
			return nil
		}
	}
	neg := strings.HasPrefix(s, "-")
	m, err := core.ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", s, err)
	}
	if neg {
		m.Cents = -m.Cents
	}
	a.Money = m
	return nil
}

func (r record) transaction() (core.Transaction, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("invalid date %q: %w", r.Date, err)
	}
	if r.Amount.IsNegative() {
		return core.Transaction{}, core.ErrInvalidAmount
	}
	return core.Transaction{
		Date:          date,
		Time:          r.Time,
		Merchant:      strings.TrimSpace(r.Merchant),
		Category:      strings.TrimSpace(r.Category),
		Amount:        r.Amount.Money,
		Mood:          r.Mood,
		Location:      r.Location,
		CalendarEvent: r.CalendarEvent,
		BalanceAfter:  r.BalanceAfter.Money,
	}, nil
}

// ListTransactions fetches the user's transactions. Concurrent calls for
// the same user share one request, which a caller giving up does not
// cancel. Records that cannot be decoded are skipped and logged.
func (c *Transactions) ListTransactions(ctx context.Context, username string) ([]core.Transaction, error) {
	txs, err := shared(ctx, &c.group, username, c.sharedBudget(), func(ctx context.Context) ([]core.Transaction, error) {
		return withRetry(ctx, c.retry, func(ctx context.Context) ([]core.Transaction, error) {
			return c.list(ctx, username)
		})
	})
	if err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), txs...), nil
}

func (c *Transactions) list(ctx context.Context, username string) ([]core.Transaction, error) {
	path := "/transactions/" + url.PathEscape(username)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var raw []json.RawMessage
	if trimmed := bytes.TrimSpace(body); status < http.StatusBadRequest && bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode transactions: %w", err)
		}
	} else if err := decodeEnvelope(status, body, &raw); err != nil {
		return nil, err
	}

	out := make([]core.Transaction, 0, len(raw))
	for i, item := range raw {
		var rec record
		if err := json.Unmarshal(item, &rec); err != nil {
			c.logger.WarnContext(ctx, "Skipping undecodable transaction", "index", i, "error", err)
			continue
		}
		tx, err := rec.transaction()
		if err != nil {
			c.logger.WarnContext(ctx, "Skipping invalid transaction", "index", i, "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

type appendRequest struct {
	Username string      `json:"username"`
	Date     string      `json:"date,omitempty"`
	Time     string      `json:"time,omitempty"`
	Merchant string      `json:"merchant"`
	Amount   json.Number `json:"amount"`
	Category string      `json:"category"`
	Mood     string      `json:"mood,omitempty"`
	Location string      `json:"location,omitempty"`
	Calendar string      `json:"calendar,omitempty"`
}

// AppendTransaction writes one transaction. It is not retried; callers
// decide what to do with a failed write.
func (c *Transactions) AppendTransaction(ctx context.Context, username string, tx core.Transaction) error {
	req := appendRequest{
		Username: username,
		Date:     tx.Date.String(),
		Time:     tx.Time,
		Merchant: tx.Merchant,
		Amount:   json.Number(tx.Amount.Decimal().String()),
		Category: tx.Category,
		Mood:     tx.Mood,
		Location: tx.Location,
		Calendar: tx.CalendarEvent,
	}
	status, body, err := c.do(ctx, http.MethodPost, "/transactions", req)
	if err != nil {
		return err
	}
	if err := decodeEnvelope(status, body, nil); err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}
