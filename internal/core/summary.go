package core

// CategoryAggregate is the expense total of a single category.
type CategoryAggregate struct {
	Category   string
	Total      Money
	Percentage float64 // share of total expense, 0-100
	Count      int
}

// Summary holds the totals derived from a transaction list.
type Summary struct {
	TotalIncome        Money
	TotalExpense       Money
	TotalBalance       Money // TotalIncome - TotalExpense
	AverageTransaction Money
	TransactionCount   int
	// ObservedDays is the inclusive number of days spanned by expense
	// history, 0 when there are no expenses.
	ObservedDays int
}

// Surplus is the amount the advisor treats as investable.
func (s Summary) Surplus() Money {
	return s.TotalBalance.Sub(s.TotalExpense)
}

type BudgetLevel string

const (
	BudgetOnTrack BudgetLevel = "on_track"
	BudgetWarning BudgetLevel = "warning"
	BudgetOver    BudgetLevel = "over"
)

// BudgetStatus reports how much of the budget has been spent.
type BudgetStatus struct {
	Budget    Money
	Spent     Money
	Remaining Money
	UsedRatio float64
	Level     BudgetLevel
}
