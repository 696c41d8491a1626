package core

import (
	"testing"
	"time"
)

func TestTransactionType(t *testing.T) {
	cases := []struct {
		category string
		want     TransactionType
	}{
		{"Salary", Income},
		{"Food", Expense},
		{"salary", Expense}, // exact match only
		{"Income", Expense},
		{"", Expense},
	}
	for _, tc := range cases {
		tx := Transaction{Category: tc.category, Amount: FromUnits(1)}
		if got := tx.Type(); got != tc.want {
			t.Fatalf("category %q: expected %s, got %s", tc.category, tc.want, got)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{Merchant: "Cafe", Category: "Food", Amount: FromUnits(250)}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	zero := good
	zero.Amount = Money{}
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be allowed, got %v", err)
	}

	bads := []Transaction{
		{Merchant: "Cafe", Category: "Food", Amount: Money{Cents: -1}},
		{Merchant: " ", Category: "Food", Amount: FromUnits(1)},
		{Merchant: "Cafe", Category: "", Amount: FromUnits(1)},
		{Merchant: string(make([]byte, 201)), Category: "Food", Amount: FromUnits(1)},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-14")
	if err != nil || d.String() != "2025-03-14" {
		t.Fatalf("unexpected: %v %v", d, err)
	}
	d, err = ParseDate("2025-03-14T22:10:00+02:00")
	if err != nil || d.String() != "2025-03-14" {
		t.Fatalf("unexpected: %v %v", d, err)
	}
	if _, err := ParseDate("14/03/2025"); err == nil {
		t.Fatalf("expected error")
	}
	if (Date{}).String() != "" {
		t.Fatalf("zero date should render empty")
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		d    Date
		want int
	}{
		{NewDate(2024, 2, 10), 29},
		{NewDate(2025, 2, 1), 28},
		{NewDate(2025, 12, 31), 31},
		{NewDate(2025, 4, 30), 30},
	}
	for _, tc := range cases {
		if got := tc.d.DaysInMonth(); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.d, tc.want, got)
		}
	}
}

func TestMonthGrid(t *testing.T) {
	// March 2025 starts on a Saturday and has 31 days.
	grid := MonthGrid(2025, time.March, time.Monday)
	if len(grid) != 6 {
		t.Fatalf("expected 6 weeks, got %d", len(grid))
	}
	if !grid[0][4].IsZero() || grid[0][5].String() != "2025-03-01" {
		t.Fatalf("unexpected first week: %v", grid[0])
	}
	days := 0
	for _, week := range grid {
		if len(week) != 7 {
			t.Fatalf("week with %d cells", len(week))
		}
		for _, cell := range week {
			if !cell.IsZero() {
				days++
			}
		}
	}
	if days != 31 {
		t.Fatalf("expected 31 days, got %d", days)
	}

	// February 2026 starts on a Sunday: four full weeks with a Sunday start.
	grid = MonthGrid(2026, time.February, time.Sunday)
	if len(grid) != 4 || grid[0][0].String() != "2026-02-01" {
		t.Fatalf("unexpected grid: %v", grid)
	}
}
