package advisor

import (
	"fmt"
	"strings"

	"finsight/internal/core"
)

// Surplus tier boundaries in currency units.
const (
	smallSurplus  = 10_000
	mediumSurplus = 50_000
)

// emergencyMonths is the number of months of expenses an emergency fund
// should cover.
const emergencyMonths = 6

type allocation struct {
	label   string
	percent int64
}

// defaultRules lists the intents in priority order.
func defaultRules() []rule {
	return []rule{
		{IntentInvestment, []string{"invest", "extra money", "surplus", "where should i put", "grow my money"}, (*Advisor).investment},
		{IntentBudget, []string{"budget", "overspend", "spending limit", "afford"}, (*Advisor).budget},
		{IntentCategory, []string{"category", "categories", "breakdown", "where does my money go", "spent on", "spend most"}, (*Advisor).categories},
		{IntentBalance, []string{"balance", "how much do i have", "how much money", "month end", "month-end"}, (*Advisor).balance},
		{IntentSIP, []string{"sip", "mutual fund", "systematic"}, (*Advisor).sip},
		{IntentEmergency, []string{"emergency", "rainy day", "safety net"}, (*Advisor).emergency},
	}
}

func tierAllocations(surplus core.Money) []allocation {
	switch {
	case surplus.Cents < core.FromUnits(smallSurplus).Cents:
		return []allocation{
			{"Emergency fund", 50},
			{"Recurring deposit", 30},
			{"Index fund SIP", 20},
		}
	case surplus.Cents < core.FromUnits(mediumSurplus).Cents:
		return []allocation{
			{"Emergency / liquid fund", 40},
			{"Equity mutual fund SIP", 35},
			{"Debt fund", 25},
		}
	default:
		return []allocation{
			{"Equity (index and large-cap funds)", 40},
			{"Debt funds and bonds", 25},
			{"Emergency fund", 20},
			{"Gold", 15},
		}
	}
}

func (a *Advisor) investment(in Input) string {
	surplus := in.Summary.Surplus()
	var b strings.Builder
	if surplus.Cents <= 0 {
		fmt.Fprintf(&b, "Your balance of %s does not cover your expenses of %s, so there is no surplus to invest right now.\n",
			a.amount(in.Summary.TotalBalance), a.amount(in.Summary.TotalExpense))
		b.WriteString("Trim discretionary spending first and build an emergency fund before investing.")
		return b.String()
	}

	fmt.Fprintf(&b, "You have an investable surplus of %s. Suggested split:\n", a.amount(surplus))
	for _, al := range tierAllocations(surplus) {
		fmt.Fprintf(&b, "- %s: %s (%d%%)\n", al.label, a.amount(surplus.MulPercent(al.percent)), al.percent)
	}
	b.WriteString("Review the split every quarter and rebalance if one part drifts.")
	return b.String()
}

func (a *Advisor) budget(in Input) string {
	st := in.Budget
	var b strings.Builder
	if st.Budget.Cents <= 0 {
		fmt.Fprintf(&b, "No budget is set and no income is recorded yet. You have spent %s so far.\n", a.amount(st.Spent))
		b.WriteString("Add your salary or set a monthly budget to track how much is left.")
		return b.String()
	}
	fmt.Fprintf(&b, "You have spent %s of your %s budget (%.0f%%).\n", a.amount(st.Spent), a.amount(st.Budget), st.UsedRatio*100)
	switch st.Level {
	case core.BudgetOver:
		fmt.Fprintf(&b, "You are over budget by %s. Pause non-essential purchases until next month.", a.amount(st.Remaining.Abs()))
	case core.BudgetWarning:
		fmt.Fprintf(&b, "Only %s is left. Keep daily spending under %s for the rest of the month.",
			a.amount(st.Remaining), a.amount(perDay(st.Remaining, in.Forecast.DaysRemaining)))
	default:
		fmt.Fprintf(&b, "You are on track with %s remaining. At your current pace of %s a day you are projected to spend %s more this month.",
			a.amount(st.Remaining), a.amount(in.Forecast.DailyAverageExpense), a.amount(in.Forecast.ProjectedTotalExpense))
	}
	return b.String()
}

func (a *Advisor) categories(in Input) string {
	if len(in.Categories) == 0 {
		return "No expenses recorded yet, so there is no category breakdown to show."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your spending of %s breaks down as:\n", a.amount(in.Summary.TotalExpense))
	for _, c := range in.Categories {
		fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", c.Category, a.amount(c.Total), c.Percentage)
	}
	top := in.Categories[0]
	fmt.Fprintf(&b, "%s is your largest category. Cutting it by 10%% would save %s.", top.Category, a.amount(top.Total.MulPercent(10)))
	return b.String()
}

func (a *Advisor) balance(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your current balance is %s (income %s, expenses %s).\n",
		a.amount(in.Summary.TotalBalance), a.amount(in.Summary.TotalIncome), a.amount(in.Summary.TotalExpense))
	fmt.Fprintf(&b, "With %d day(s) left this month you are projected to end at %s, and your balance could dip to %s.",
		in.Forecast.DaysRemaining, a.amount(in.Forecast.ProjectedEndBalance), a.amount(in.Forecast.ProjectedMinimumBalance))
	if in.Forecast.ProjectedEndBalance.IsNegative() {
		b.WriteString("\nYou are heading for a negative balance. Reduce spending now.")
	}
	return b.String()
}

func (a *Advisor) sip(in Input) string {
	surplus := in.Summary.Surplus()
	if surplus.Cents <= 0 {
		return fmt.Sprintf("You can start a SIP with as little as %s a month once your expenses are below your balance.",
			a.amount(core.FromUnits(500)))
	}
	monthly := surplus.MulPercent(30)
	var b strings.Builder
	fmt.Fprintf(&b, "A monthly SIP of %s (30%% of your surplus) fits your current figures. Suggested funds:\n", a.amount(monthly))
	for _, al := range []allocation{{"Large-cap index fund", 50}, {"Flexi-cap fund", 30}, {"Small-cap fund", 20}} {
		fmt.Fprintf(&b, "- %s: %s\n", al.label, a.amount(monthly.MulPercent(al.percent)))
	}
	b.WriteString("Stay invested for at least five years to ride out market swings.")
	return b.String()
}

func (a *Advisor) emergency(in Input) string {
	target := core.Money{Cents: in.Summary.TotalExpense.Cents * emergencyMonths}
	if target.IsZero() {
		return "Record a month of expenses and I can size your emergency fund. Aim for six months of expenses."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "An emergency fund should cover %d months of expenses: %s.\n", emergencyMonths, a.amount(target))
	gap := target.Sub(in.Summary.TotalBalance)
	if gap.Cents <= 0 {
		b.WriteString("Your current balance already covers it. Keep it in a liquid fund or savings account.")
		return b.String()
	}
	fmt.Fprintf(&b, "You are %s short. ", a.amount(gap))
	if surplus := in.Summary.Surplus(); surplus.Cents > 0 {
		fmt.Fprintf(&b, "Setting aside %s a month (half your surplus) gets you there steadily.", a.amount(surplus.MulPercent(50)))
	} else {
		b.WriteString("Start with a small fixed amount each month.")
	}
	return b.String()
}

func (a *Advisor) help() string {
	return strings.Join([]string{
		"I can help with:",
		"- investing your surplus (\"How should I invest my extra money?\")",
		"- your budget (\"Am I within budget?\")",
		"- category breakdown (\"Where does my money go?\")",
		"- your balance and month-end projection",
		"- SIP suggestions",
		"- emergency fund planning",
	}, "\n")
}

func perDay(m core.Money, days int) core.Money {
	if days <= 0 || m.Cents <= 0 {
		return m
	}
	return core.Money{Cents: m.Cents / int64(days)}
}
