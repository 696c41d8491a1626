// Package aggregation turns a transaction list into the totals and category
// breakdown shown on the dashboard.
package aggregation

import (
	"sort"

	"finsight/internal/core"
)

// Budget usage thresholds.
const (
	warnRatio = 0.75
	overRatio = 1.0
)

// Summarize computes the financial summary and the per-category expense
// breakdown in a single pass.
//
// Categories are ordered by total descending; equal totals keep the order in
// which the category was first seen. The breakdown is empty when there is no
// expense.
func Summarize(txs []core.Transaction) (core.Summary, []core.CategoryAggregate) {
	var (
		s        core.Summary
		all      core.Money
		index    = make(map[string]int)
		aggs     []core.CategoryAggregate
		earliest core.Date
		latest   core.Date
	)

	for _, tx := range txs {
		all = all.Add(tx.Amount)
		if tx.IsIncome() {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			continue
		}
		s.TotalExpense = s.TotalExpense.Add(tx.Amount)

		i, ok := index[tx.Category]
		if !ok {
			i = len(aggs)
			index[tx.Category] = i
			aggs = append(aggs, core.CategoryAggregate{Category: tx.Category})
		}
		aggs[i].Total = aggs[i].Total.Add(tx.Amount)
		aggs[i].Count++

		if tx.Date.IsZero() {
			continue
		}
		if earliest.IsZero() || tx.Date.Before(earliest.Time) {
			earliest = tx.Date
		}
		if latest.IsZero() || tx.Date.After(latest.Time) {
			latest = tx.Date
		}
	}

	s.TransactionCount = len(txs)
	s.TotalBalance = s.TotalIncome.Sub(s.TotalExpense)
	if n := int64(len(txs)); n > 0 {
		// round half up on cents
		s.AverageTransaction = core.Money{Cents: (all.Cents*2 + n) / (2 * n)}
	}
	if !earliest.IsZero() {
		s.ObservedDays = int(latest.Sub(earliest.Time).Hours()/24) + 1
	}

	if s.TotalExpense.IsZero() {
		return s, []core.CategoryAggregate{}
	}
	total := float64(s.TotalExpense.Cents)
	for i := range aggs {
		aggs[i].Percentage = float64(aggs[i].Total.Cents) / total * 100
	}
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].Total.Cents > aggs[j].Total.Cents
	})
	return s, aggs
}

// Budget reports how much of the monthly budget has been spent. A zero
// monthlyBudget falls back to total income; a budget that is still zero
// yields a zero ratio.
func Budget(s core.Summary, monthlyBudget core.Money) core.BudgetStatus {
	budget := monthlyBudget
	if budget.IsZero() {
		budget = s.TotalIncome
	}
	st := core.BudgetStatus{
		Budget:    budget,
		Spent:     s.TotalExpense,
		Remaining: budget.Sub(s.TotalExpense),
		Level:     core.BudgetOnTrack,
	}
	if budget.Cents <= 0 {
		return st
	}
	st.UsedRatio = float64(s.TotalExpense.Cents) / float64(budget.Cents)
	switch {
	case st.UsedRatio > overRatio:
		st.Level = core.BudgetOver
	case st.UsedRatio >= warnRatio:
		st.Level = core.BudgetWarning
	}
	return st
}
