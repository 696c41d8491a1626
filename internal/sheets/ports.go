// Package sheets exports dashboard snapshots to a spreadsheet.
package sheets

import (
	"context"
	"math"
	"time"

	"finsight/internal/core"
)

// Exporter appends a report to a spreadsheet and returns the written range.
type Exporter interface {
	Export(ctx context.Context, r Report) (ref string, err error)
}

// Report is the part of a dashboard that gets exported.
type Report struct {
	Username    string
	GeneratedAt time.Time
	Summary     core.Summary
	Categories  []core.CategoryAggregate
	Forecast    core.Forecast
}

// Header names the columns written by Rows.
var Header = []any{"Exported At", "Username", "Kind", "Category", "Amount", "Share %", "Projected", "Source"}

// Row kinds.
const (
	KindIncome   = "income"
	KindExpense  = "expense"
	KindBalance  = "balance"
	KindCategory = "category"
	KindForecast = "forecast"
)

// Rows flattens r into spreadsheet rows, one per total, one per category
// and a final forecast row. Amounts are in currency units.
func Rows(r Report) [][]any {
	ts := r.GeneratedAt.UTC().Format(time.RFC3339)
	s := r.Summary

	rows := [][]any{
		{ts, r.Username, KindIncome, "", s.TotalIncome.Units(), "", "", ""},
		{ts, r.Username, KindExpense, "", s.TotalExpense.Units(), "", "", ""},
		{ts, r.Username, KindBalance, "", s.TotalBalance.Units(), "", "", ""},
	}

	projected := make(map[string]core.Money, len(r.Forecast.Categories))
	for _, c := range r.Forecast.Categories {
		projected[c.Category] = c.Total
	}
	for _, c := range r.Categories {
		p := ""
		var projectedUnits any = ""
		if m, ok := projected[c.Category]; ok {
			projectedUnits = m.Units()
			p = string(r.Forecast.Provenance.Categories)
		}
		rows = append(rows, []any{ts, r.Username, KindCategory, c.Category, c.Total.Units(), round1(c.Percentage), projectedUnits, p})
	}

	f := r.Forecast
	rows = append(rows, []any{
		ts, r.Username, KindForecast, "",
		f.ProjectedTotalExpense.Units(), "",
		f.ProjectedEndBalance.Units(),
		string(f.Provenance.ProjectedTotal),
	})
	return rows
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
