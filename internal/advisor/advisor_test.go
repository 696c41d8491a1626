package advisor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finsight/internal/core"
)

func TestCurrencyFormat(t *testing.T) {
	c := NewCurrency("")
	cases := []struct {
		in   core.Money
		want string
	}{
		{core.FromUnits(24000), "₹24,000"},
		{core.FromUnits(0), "₹0"},
		{core.Money{Cents: 123450}, "₹1,234.50"},
		{core.FromUnits(-4800), "-₹4,800"},
		{core.FromUnits(1234567), "₹1,234,567"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Format(tc.in))
	}
	assert.Equal(t, "$15", NewCurrency("$").Format(core.FromUnits(15)))
}

func TestClassify(t *testing.T) {
	a := New(NewCurrency(""))
	cases := []struct {
		query string
		want  Intent
	}{
		{"How should I invest my extra money?", IntentInvestment},
		{"INVESTMENT ideas", IntentInvestment},
		{"Am I within budget?", IntentBudget},
		{"show me the category breakdown", IntentCategory},
		{"What's my balance?", IntentBalance},
		{"Suggest a SIP", IntentSIP},
		{"emergency fund", IntentEmergency},
		{"hello", IntentHelp},
		{"", IntentHelp},
		{"   ", IntentHelp},
		// investment outranks budget
		{"can I invest within my budget", IntentInvestment},
		// budget outranks balance
		{"budget and balance", IntentBudget},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, a.Classify(tc.query), tc.query)
	}
}

func TestInvestmentTiers(t *testing.T) {
	a := New(NewCurrency("₹"))

	in := Input{Summary: core.Summary{
		TotalBalance: core.FromUnits(100000),
		TotalExpense: core.FromUnits(40000),
	}}
	out := a.Respond("How should I invest my extra money?", in)
	assert.Contains(t, out, "₹60,000")
	assert.Contains(t, out, "₹24,000")
	assert.Contains(t, out, "Debt funds and bonds: ₹15,000 (25%)")
	assert.Contains(t, out, "Emergency fund: ₹12,000 (20%)")
	assert.Contains(t, out, "Gold: ₹9,000 (15%)")

	in.Summary.TotalBalance = core.FromUnits(60000)
	out = a.Respond("invest", in)
	assert.Contains(t, out, "₹20,000")
	assert.Contains(t, out, "Equity mutual fund SIP: ₹7,000 (35%)")
	assert.NotContains(t, out, "Gold")

	in.Summary.TotalBalance = core.FromUnits(45000)
	out = a.Respond("invest", in)
	assert.Contains(t, out, "Emergency fund: ₹2,500 (50%)")
	assert.Contains(t, out, "Recurring deposit: ₹1,500 (30%)")

	in.Summary.TotalBalance = core.FromUnits(40000)
	out = a.Respond("invest", in)
	assert.Contains(t, out, "no surplus")
}

func TestRespondIsReproducible(t *testing.T) {
	a := New(NewCurrency(""))
	in := Input{
		Summary: core.Summary{
			TotalIncome:  core.FromUnits(60000),
			TotalExpense: core.FromUnits(43200),
			TotalBalance: core.FromUnits(16800),
		},
		Categories: []core.CategoryAggregate{
			{Category: "Food", Total: core.FromUnits(15000), Percentage: 34.72},
			{Category: "Bills", Total: core.FromUnits(6200), Percentage: 14.35},
		},
		Forecast: core.Forecast{DaysRemaining: 10, ProjectedEndBalance: core.FromUnits(-4800)},
		Budget:   core.BudgetStatus{Budget: core.FromUnits(60000), Spent: core.FromUnits(43200), Remaining: core.FromUnits(16800), UsedRatio: 0.72, Level: core.BudgetOnTrack},
	}
	for _, q := range []string{"invest", "budget", "breakdown", "balance", "sip", "emergency", "?"} {
		assert.Equal(t, a.Respond(q, in), a.Respond(q, in))
		assert.NotEmpty(t, a.Respond(q, in))
	}

	assert.Contains(t, a.Respond("breakdown", in), "Food: ₹15,000 (34.7%)")
	assert.Contains(t, a.Respond("balance", in), "negative balance")
	assert.Contains(t, a.Respond("budget", in), "72%")
	assert.Contains(t, a.Respond("nothing relevant", in), "I can help with")
}

func TestEmptyHistory(t *testing.T) {
	a := New(NewCurrency(""))
	var in Input
	assert.Contains(t, a.Respond("categories", in), "No expenses recorded yet")
	assert.Contains(t, a.Respond("budget", in), "No budget is set")
	assert.Contains(t, a.Respond("emergency", in), "six months")
}
