package http

import (
	"encoding/json"
	"fmt"
	"time"

	"finsight/internal/core"
	"finsight/internal/session"
)

// Amounts travel as currency units with two decimals.

type transactionJSON struct {
	ID            string  `json:"id"`
	Date          string  `json:"date"`
	Time          string  `json:"time,omitempty"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	Mood          string  `json:"mood,omitempty"`
	Location      string  `json:"location,omitempty"`
	CalendarEvent string  `json:"calendar_event,omitempty"`
	BalanceAfter  float64 `json:"balance_after,omitempty"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:            tx.ID,
		Date:          tx.Date.String(),
		Time:          tx.Time,
		Merchant:      tx.Merchant,
		Category:      tx.Category,
		Type:          string(tx.Type()),
		Amount:        tx.Amount.Units(),
		Mood:          tx.Mood,
		Location:      tx.Location,
		CalendarEvent: tx.CalendarEvent,
		BalanceAfter:  tx.BalanceAfter.Units(),
	}
}

func toTransactionsJSON(txs []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionJSON(tx))
	}
	return out
}

type summaryJSON struct {
	TotalIncome        float64 `json:"total_income"`
	TotalExpense       float64 `json:"total_expense"`
	TotalBalance       float64 `json:"total_balance"`
	AverageTransaction float64 `json:"average_transaction"`
	TransactionCount   int     `json:"transaction_count"`
	ObservedDays       int     `json:"observed_days"`
}

type categoryJSON struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

type budgetJSON struct {
	Budget    float64 `json:"budget"`
	Spent     float64 `json:"spent"`
	Remaining float64 `json:"remaining"`
	UsedRatio float64 `json:"used_ratio"`
	Level     string  `json:"level"`
}

type categoryForecastJSON struct {
	Category     string  `json:"category"`
	Total        float64 `json:"total"`
	DailyAverage float64 `json:"daily_average"`
}

type forecastJSON struct {
	DaysRemaining           int                    `json:"days_remaining"`
	ProjectedTotalExpense   float64                `json:"projected_total_expense"`
	DailyAverageExpense     float64                `json:"daily_average_expense"`
	ProjectedEndBalance     float64                `json:"projected_end_balance"`
	ProjectedMinimumBalance float64                `json:"projected_minimum_balance"`
	Categories              []categoryForecastJSON `json:"categories"`
	Provenance              map[string]core.Source `json:"provenance"`
	Fallback                bool                   `json:"fallback"`
}

func toForecastJSON(f core.Forecast) forecastJSON {
	cats := make([]categoryForecastJSON, 0, len(f.Categories))
	for _, c := range f.Categories {
		cats = append(cats, categoryForecastJSON{
			Category:     c.Category,
			Total:        c.Total.Units(),
			DailyAverage: c.DailyAverage.Units(),
		})
	}
	p := f.Provenance
	return forecastJSON{
		DaysRemaining:           f.DaysRemaining,
		ProjectedTotalExpense:   f.ProjectedTotalExpense.Units(),
		DailyAverageExpense:     f.DailyAverageExpense.Units(),
		ProjectedEndBalance:     f.ProjectedEndBalance.Units(),
		ProjectedMinimumBalance: f.ProjectedMinimumBalance.Units(),
		Categories:              cats,
		Provenance: map[string]core.Source{
			"days_remaining":            p.DaysRemaining,
			"projected_total_expense":   p.ProjectedTotal,
			"daily_average_expense":     p.DailyAverage,
			"projected_end_balance":     p.EndBalance,
			"projected_minimum_balance": p.MinimumBalance,
			"categories":                p.Categories,
		},
		Fallback: f.IsFallback(),
	}
}

// panelJSON reports a panel's data or the reason it is missing.
type panelJSON struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func toPanel[T any](p core.Panel[T]) panelJSON {
	if p.Err != nil {
		return panelJSON{Error: p.Err.Error()}
	}
	return panelJSON{OK: true, Data: p.Data}
}

type panelsJSON struct {
	Analysis panelJSON `json:"analysis"`
	Insights panelJSON `json:"insights"`
	Forecast panelJSON `json:"forecast"`
	Risk     panelJSON `json:"risk"`
}

func toPanelsJSON(p core.InsightPanels) panelsJSON {
	return panelsJSON{
		Analysis: toPanel(p.Analysis),
		Insights: toPanel(p.Insights),
		Forecast: toPanel(p.Forecast),
		Risk:     toPanel(p.Risk),
	}
}

type dashboardJSON struct {
	Username        string            `json:"username"`
	State           string            `json:"state"`
	Message         string            `json:"message,omitempty"`
	NeedsOnboarding bool              `json:"needs_onboarding"`
	Summary         summaryJSON       `json:"summary"`
	Categories      []categoryJSON    `json:"categories"`
	Budget          budgetJSON        `json:"budget"`
	Forecast        forecastJSON      `json:"forecast"`
	Panels          panelsJSON        `json:"panels"`
	Transactions    []transactionJSON `json:"transactions"`
}

func toDashboardJSON(d session.Dashboard) dashboardJSON {
	cats := make([]categoryJSON, 0, len(d.Categories))
	for _, c := range d.Categories {
		cats = append(cats, categoryJSON{
			Category:   c.Category,
			Total:      c.Total.Units(),
			Percentage: c.Percentage,
			Count:      c.Count,
		})
	}
	s, b := d.Summary, d.Budget
	return dashboardJSON{
		Username:        d.Username,
		State:           string(d.State),
		Message:         d.Message,
		NeedsOnboarding: d.NeedsOnboarding,
		Summary: summaryJSON{
			TotalIncome:        s.TotalIncome.Units(),
			TotalExpense:       s.TotalExpense.Units(),
			TotalBalance:       s.TotalBalance.Units(),
			AverageTransaction: s.AverageTransaction.Units(),
			TransactionCount:   s.TransactionCount,
			ObservedDays:       s.ObservedDays,
		},
		Categories: cats,
		Budget: budgetJSON{
			Budget:    b.Budget.Units(),
			Spent:     b.Spent.Units(),
			Remaining: b.Remaining.Units(),
			UsedRatio: b.UsedRatio,
			Level:     string(b.Level),
		},
		Forecast:     toForecastJSON(d.Forecast),
		Panels:       toPanelsJSON(d.Panels),
		Transactions: toTransactionsJSON(d.Transactions),
	}
}

type userJSON struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type calendarResponse struct {
	Year      int        `json:"year"`
	Month     int        `json:"month"`
	MonthName string     `json:"month_name"`
	WeekStart string     `json:"week_start"`
	Weekdays  []string   `json:"weekdays"`
	Weeks     [][]string `json:"weeks"`
}

func newCalendarResponse(year int, month time.Month, weekStart time.Weekday) calendarResponse {
	grid := core.MonthGrid(year, month, weekStart)
	weeks := make([][]string, 0, len(grid))
	for _, week := range grid {
		cells := make([]string, 0, len(week))
		for _, d := range week {
			cells = append(cells, d.String())
		}
		weeks = append(weeks, cells)
	}
	days := make([]string, 7)
	for i := range days {
		days[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return calendarResponse{
		Year:      year,
		Month:     int(month),
		MonthName: month.String(),
		WeekStart: weekStart.String(),
		Weekdays:  days,
		Weeks:     weeks,
	}
}

// Requests.

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type transactionRequest struct {
	Date          string      `json:"date"`
	Time          string      `json:"time"`
	Merchant      string      `json:"merchant"`
	Category      string      `json:"category"`
	Amount        amountField `json:"amount"`
	Mood          string      `json:"mood"`
	Location      string      `json:"location"`
	CalendarEvent string      `json:"calendar_event"`
}

func (r transactionRequest) toTransaction() (core.Transaction, error) {
	amount, err := core.ParseAmount(string(r.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Time:          sanitizeInput(r.Time),
		Merchant:      sanitizeInput(r.Merchant),
		Category:      sanitizeInput(r.Category),
		Amount:        amount,
		Mood:          sanitizeInput(r.Mood),
		Location:      sanitizeInput(r.Location),
		CalendarEvent: sanitizeInput(r.CalendarEvent),
	}
	if r.Date != "" {
		d, err := core.ParseDate(r.Date)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("invalid date %q", r.Date)
		}
		tx.Date = d
	}
	return tx, nil
}

// amountField accepts a JSON number or a numeric string such as "12,50".
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a number or a numeric string")
	}
	*a = amountField(n.String())
	return nil
}

type askRequest struct {
	Query string `json:"query"`
}
