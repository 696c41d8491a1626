package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/core"
)

func tx(date core.Date, category string, units int64) core.Transaction {
	return core.Transaction{Date: date, Merchant: "m", Category: category, Amount: core.FromUnits(units)}
}

// abcTransactions is one salary of 60000 and 43 expenses totalling 43200
// spread over five categories.
func abcTransactions() []core.Transaction {
	txs := []core.Transaction{tx(core.NewDate(2025, 3, 1), core.SalaryCategory, 60000)}
	plan := []struct {
		category string
		n        int
	}{
		{"Food", 15},
		{"Transport", 10},
		{"Shopping", 8},
		{"Bills", 5},
		{"Entertainment", 4},
	}
	day := 1
	for _, p := range plan {
		for i := 0; i < p.n; i++ {
			txs = append(txs, tx(core.NewDate(2025, 3, 1+day%20), p.category, 1000))
			day++
		}
	}
	return append(txs, tx(core.NewDate(2025, 3, 20), "Bills", 1200))
}

func TestSummarizeABC(t *testing.T) {
	txs := abcTransactions()
	require.Len(t, txs, 44)

	s, aggs := Summarize(txs)
	assert.Equal(t, core.FromUnits(60000), s.TotalIncome)
	assert.Equal(t, core.FromUnits(43200), s.TotalExpense)
	assert.Equal(t, core.FromUnits(16800), s.TotalBalance)
	assert.Equal(t, 44, s.TransactionCount)
	// (60000+43200)/44 = 2345.4545...
	assert.Equal(t, int64(234545), s.AverageTransaction.Cents)
	assert.Equal(t, 20, s.ObservedDays)

	require.Len(t, aggs, 5)
	var sum core.Money
	var pct float64
	for _, a := range aggs {
		sum = sum.Add(a.Total)
		pct += a.Percentage
	}
	assert.Equal(t, s.TotalExpense, sum)
	assert.InDelta(t, 100.0, pct, 1e-9)

	names := make([]string, len(aggs))
	for i, a := range aggs {
		names[i] = a.Category
	}
	assert.Equal(t, []string{"Food", "Transport", "Shopping", "Bills", "Entertainment"}, names)
	assert.Equal(t, 6, aggs[3].Count)
	assert.Equal(t, core.FromUnits(6200), aggs[3].Total)
}

func TestSummarizeEmpty(t *testing.T) {
	s, aggs := Summarize(nil)
	assert.Equal(t, core.Summary{}, s)
	assert.NotNil(t, aggs)
	assert.Empty(t, aggs)
}

func TestSummarizeIncomeOnly(t *testing.T) {
	s, aggs := Summarize([]core.Transaction{tx(core.NewDate(2025, 1, 5), "Salary", 50000)})
	assert.Equal(t, core.FromUnits(50000), s.TotalIncome)
	assert.True(t, s.TotalExpense.IsZero())
	assert.Equal(t, 0, s.ObservedDays)
	assert.Empty(t, aggs)
}

func TestSummarizeTieBreakIsFirstOccurrence(t *testing.T) {
	d := core.NewDate(2025, 1, 1)
	txs := []core.Transaction{
		tx(d, "Travel", 100),
		tx(d, "Food", 300),
		tx(d, "Bills", 100),
		tx(d, "Healthcare", 100),
	}
	_, aggs := Summarize(txs)
	require.Len(t, aggs, 4)
	assert.Equal(t, "Food", aggs[0].Category)
	assert.Equal(t, "Travel", aggs[1].Category)
	assert.Equal(t, "Bills", aggs[2].Category)
	assert.Equal(t, "Healthcare", aggs[3].Category)
}

func TestSummarizeSalaryIsTheOnlyIncome(t *testing.T) {
	d := core.NewDate(2025, 1, 1)
	s, aggs := Summarize([]core.Transaction{
		tx(d, "Salary", 50000),
		tx(d, "Food", 250),
		tx(d, "salary", 10),
		tx(d, "Bonus", 1000),
	})
	assert.Equal(t, core.FromUnits(50000), s.TotalIncome)
	assert.Equal(t, core.FromUnits(1260), s.TotalExpense)
	assert.Len(t, aggs, 3)
}

func TestSummarizeSumsMatch(t *testing.T) {
	d := core.NewDate(2025, 2, 1)
	txs := []core.Transaction{
		{Date: d, Category: "Food", Amount: core.Money{Cents: 333}},
		{Date: d, Category: "Food", Amount: core.Money{Cents: 1}},
		{Date: d, Category: "Bills", Amount: core.Money{Cents: 667}},
		{Date: d, Category: "Others", Amount: core.Money{Cents: 3}},
	}
	s, aggs := Summarize(txs)
	var sum int64
	var pct float64
	for _, a := range aggs {
		sum += a.Total.Cents
		pct += a.Percentage
	}
	assert.Equal(t, s.TotalExpense.Cents, sum)
	assert.InDelta(t, 100.0, pct, 1e-9)
	assert.Equal(t, 1, s.ObservedDays)
}

func TestBudget(t *testing.T) {
	cases := []struct {
		name    string
		income  int64
		expense int64
		budget  int64
		level   core.BudgetLevel
		ratio   float64
	}{
		{"defaults to income", 60000, 43200, 0, core.BudgetOnTrack, 0.72},
		{"warning", 0, 8000, 10000, core.BudgetWarning, 0.8},
		{"exactly spent", 0, 10000, 10000, core.BudgetWarning, 1.0},
		{"over", 0, 12000, 10000, core.BudgetOver, 1.2},
		{"no budget", 0, 500, 0, core.BudgetOnTrack, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := core.Summary{
				TotalIncome:  core.FromUnits(tc.income),
				TotalExpense: core.FromUnits(tc.expense),
			}
			st := Budget(s, core.FromUnits(tc.budget))
			assert.Equal(t, tc.level, st.Level)
			assert.InDelta(t, tc.ratio, st.UsedRatio, 1e-9)
			assert.Equal(t, st.Budget.Sub(st.Spent), st.Remaining)
		})
	}
}
