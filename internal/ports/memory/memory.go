// Package memory provides in-process collaborators for local development and
// tests. Transactions can be seeded from per-user CSV files.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"finsight/internal/core"
	"finsight/internal/ports"
)

// Store keeps transactions per user. Users without transactions in memory
// are seeded from <dir>/user_<username>.csv on first access.
type Store struct {
	mu    sync.Mutex
	dir   string
	items map[string][]core.Transaction
}

func New(dir string) *Store {
	return &Store{dir: dir, items: make(map[string][]core.Transaction)}
}

// ListTransactions returns a copy of the user's transactions in insertion
// order.
func (s *Store) ListTransactions(_ context.Context, username string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load(username)
	if err != nil {
		return nil, err
	}
	return append([]core.Transaction(nil), txs...), nil
}

// AppendTransaction stores tx and records the running balance after it.
func (s *Store) AppendTransaction(_ context.Context, username string, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	txs, err := s.load(username)
	if err != nil {
		return err
	}
	var last core.Money
	if n := len(txs); n > 0 {
		last = txs[n-1].BalanceAfter
	}
	if tx.IsIncome() {
		tx.BalanceAfter = last.Add(tx.Amount)
	} else {
		tx.BalanceAfter = last.Sub(tx.Amount)
	}
	s.items[username] = append(txs, tx)
	return nil
}

func (s *Store) load(username string) ([]core.Transaction, error) {
	if txs, ok := s.items[username]; ok {
		return txs, nil
	}
	if s.dir == "" || username == "" || strings.ContainsAny(username, `/\`) {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(s.dir, "user_"+username+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	txs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read seed file for %s: %w", username, err)
	}
	s.items[username] = txs
	return txs, nil
}

// ReadCSV parses transactions in the backend's CSV layout. The header row is
// required; columns are matched by name, case-insensitively, and unknown
// columns are ignored.
func ReadCSV(r io.Reader) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []core.Transaction
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		date, err := core.ParseDate(get(rec, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date: %w", line, err)
		}
		amount, err := core.ParseAmount(get(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		tx := core.Transaction{
			Date:          date,
			Time:          get(rec, "time"),
			Merchant:      get(rec, "merchant"),
			Category:      get(rec, "category"),
			Amount:        amount,
			Mood:          get(rec, "mood"),
			Location:      get(rec, "location"),
			CalendarEvent: get(rec, "calendar_event"),
		}
		if v := get(rec, "balance_after"); v != "" {
			if bal, err := parseSigned(v); err == nil {
				tx.BalanceAfter = bal
			}
		}
		out = append(out, tx)
	}
	return out, nil
}

func parseSigned(s string) (core.Money, error) {
	if strings.HasPrefix(s, "-") {
		m, err := core.ParseAmount(s[1:])
		return core.Money{Cents: -m.Cents}, err
	}
	return core.ParseAmount(s)
}

// Users is an in-memory user directory.
type Users struct {
	mu    sync.Mutex
	users map[string]user
}

type user struct {
	email string
	hash  []byte
}

func NewUsers() *Users {
	return &Users{users: make(map[string]user)}
}

func (u *Users) Signup(_ context.Context, username, email, password string) (core.User, error) {
	username, email = strings.TrimSpace(username), strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || password == "" {
		return core.User{}, errors.New("username, email and password are required")
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.users[username]; ok {
		return core.User{}, ports.ErrUserExists
	}
	for _, v := range u.users {
		if v.email == email {
			return core.User{}, ports.ErrUserExists
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.users[username] = user{email: email, hash: hash}
	return core.User{Username: username, Email: email}, nil
}

func (u *Users) Login(_ context.Context, username, password string) (core.User, error) {
	u.mu.Lock()
	v, ok := u.users[strings.TrimSpace(username)]
	u.mu.Unlock()
	if !ok || bcrypt.CompareHashAndPassword(v.hash, []byte(password)) != nil {
		return core.User{}, ports.ErrInvalidCredentials
	}
	return core.User{Username: strings.TrimSpace(username), Email: v.email}, nil
}

func (u *Users) EmailExists(_ context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, v := range u.users {
		if v.email == email {
			return true, nil
		}
	}
	return false, nil
}

// Analytics stands in for the analytics service when none is configured.
// Every panel reports ports.ErrUnavailable so callers use their local
// fallbacks.
type Analytics struct{}

func (Analytics) FetchPanels(context.Context, string) core.InsightPanels {
	err := fmt.Errorf("analytics: %w", ports.ErrUnavailable)
	var p core.InsightPanels
	p.Analysis.Err = err
	p.Insights.Err = err
	p.Forecast.Err = err
	p.Risk.Err = err
	return p
}

func (Analytics) Refresh(context.Context, string) error { return nil }
