package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"finsight/internal/core"
	"finsight/internal/ports"
)

const seed = `Date,Time,Merchant,Amount,Category,Mood,Location,Calendar_Event,Group_ID,Balance_After
2025-03-01,09:00:00,Acme Corp,60000,Salary,Happy,Office,Regular,1,60000.0
2025-03-02,13:10:00,Cafe,250.5,Food,Neutral,Pune,Regular,1,59749.5
2025-03-03,18:45:00,Metro,40,Transport,,Pune,,1,59709.5
`

func TestReadCSV(t *testing.T) {
	txs, err := ReadCSV(strings.NewReader(seed))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3, got %d", len(txs))
	}
	if !txs[0].IsIncome() || txs[0].Amount != core.FromUnits(60000) {
		t.Fatalf("unexpected salary row: %+v", txs[0])
	}
	if txs[1].Amount.Cents != 25050 || txs[1].Mood != "Neutral" || txs[1].BalanceAfter.Cents != 5974950 {
		t.Fatalf("unexpected food row: %+v", txs[1])
	}
	if txs[2].Date.String() != "2025-03-03" || txs[2].Time != "18:45:00" {
		t.Fatalf("unexpected transport row: %+v", txs[2])
	}
}

func TestReadCSVErrors(t *testing.T) {
	if txs, err := ReadCSV(strings.NewReader("")); err != nil || txs != nil {
		t.Fatalf("empty input should yield nothing, got %v %v", txs, err)
	}
	_, err := ReadCSV(strings.NewReader("Date,Amount\nnot-a-date,1\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line error, got %v", err)
	}
	_, err = ReadCSV(strings.NewReader("Date,Amount\n2025-01-01,abc\n"))
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestStoreSeedsAndAppends(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user_abc.csv"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s := New(dir)
	ctx := context.Background()

	txs, err := s.ListTransactions(ctx, "abc")
	if err != nil || len(txs) != 3 {
		t.Fatalf("expected 3 seeded, got %d (%v)", len(txs), err)
	}

	err = s.AppendTransaction(ctx, "abc", core.Transaction{
		Date: core.NewDate(2025, 3, 4), Merchant: "Mart", Category: "Shopping", Amount: core.FromUnits(9),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	txs, _ = s.ListTransactions(ctx, "abc")
	if len(txs) != 4 || txs[3].BalanceAfter.Cents != 5970050 {
		t.Fatalf("unexpected after append: %+v", txs[3])
	}

	// the returned slice is a copy
	txs[0].Merchant = "changed"
	again, _ := s.ListTransactions(ctx, "abc")
	if again[0].Merchant != "Acme Corp" {
		t.Fatalf("store mutated through returned slice")
	}

	if err := s.AppendTransaction(ctx, "abc", core.Transaction{Category: "Food"}); !errors.Is(err, core.ErrEmptyMerchant) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStoreUnknownUser(t *testing.T) {
	s := New(t.TempDir())
	txs, err := s.ListTransactions(context.Background(), "nobody")
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected empty list, got %v %v", txs, err)
	}
	txs, err = s.ListTransactions(context.Background(), "../etc")
	if err != nil || len(txs) != 0 {
		t.Fatalf("expected path-like names to be ignored, got %v %v", txs, err)
	}
}

func TestUsers(t *testing.T) {
	u := NewUsers()
	ctx := context.Background()

	usr, err := u.Signup(ctx, "abc", "ABC@example.com", "secret")
	if err != nil || usr.Email != "abc@example.com" {
		t.Fatalf("signup: %+v %v", usr, err)
	}
	if _, err := u.Signup(ctx, "abc", "other@example.com", "x"); !errors.Is(err, ports.ErrUserExists) {
		t.Fatalf("expected duplicate username error, got %v", err)
	}
	if _, err := u.Signup(ctx, "other", "abc@example.com", "x"); !errors.Is(err, ports.ErrUserExists) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	if ok, _ := u.EmailExists(ctx, " abc@EXAMPLE.com"); !ok {
		t.Fatalf("expected email to exist")
	}
	if _, err := u.Login(ctx, "abc", "wrong"); !errors.Is(err, ports.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if got, err := u.Login(ctx, "abc", "secret"); err != nil || got.Username != "abc" {
		t.Fatalf("login: %+v %v", got, err)
	}
}

func TestAnalyticsUnavailable(t *testing.T) {
	p := Analytics{}.FetchPanels(context.Background(), "abc")
	if p.Forecast.OK() || !errors.Is(p.Risk.Err, ports.ErrUnavailable) {
		t.Fatalf("expected unavailable panels")
	}
}
