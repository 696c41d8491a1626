package core

import (
	"errors"
	"strings"
	"time"
)

// SalaryCategory is the only category counted as income.
const SalaryCategory = "Salary"

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DefaultCategories is the suggested set offered when entering a transaction.
// Categories are free text and are not validated against it.
var DefaultCategories = []string{
	"Food", "Travel", "Transport", SalaryCategory, "Shopping",
	"Bills", "Entertainment", "Healthcare", "Others",
}

type (
	TransactionType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID            string
		Date          Date
		Time          string // "HH:MM:SS" as recorded by the transactions API, informational
		Merchant      string
		Category      string
		Amount        Money
		Mood          string
		Location      string
		CalendarEvent string
		BalanceAfter  Money // last running balance reported by the API, informational
	}

	User struct {
		Username string
		Email    string
	}
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyMerchant  = errors.New("empty merchant")
	ErrEmptyCategory  = errors.New("empty category")
	ErrMerchantLength = errors.New("merchant too long (max 200 characters)")
)

// Type derives the transaction type from its category: Salary is income,
// everything else is an expense.
func (t Transaction) Type() TransactionType {
	if t.Category == SalaryCategory {
		return Income
	}
	return Expense
}

// IsIncome reports whether the transaction counts as income.
func (t Transaction) IsIncome() bool {
	return t.Type() == Income
}

func (t Transaction) Validate() error {
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Merchant) == "" {
		return ErrEmptyMerchant
	}
	if len(t.Merchant) > 200 {
		return ErrMerchantLength
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location, returned in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or any RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// String renders the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// DaysInMonth returns the number of days in the date's month.
func (d Date) DaysInMonth() int {
	return time.Date(d.Year(), d.Time.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
