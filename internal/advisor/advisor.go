// Package advisor answers free-text questions with templated advice built
// from the current dashboard figures.
//
// Questions are matched against an ordered rule table using case-insensitive
// substring tests. The first rule that matches answers; anything else gets
// the help text.
package advisor

import (
	"strings"

	"finsight/internal/core"
)

// Intent names the kind of question that was asked.
type Intent string

const (
	IntentInvestment Intent = "investment-advice"
	IntentBudget     Intent = "budget-analysis"
	IntentCategory   Intent = "category-breakdown"
	IntentBalance    Intent = "balance-inquiry"
	IntentSIP        Intent = "sip-recommendation"
	IntentEmergency  Intent = "emergency-fund-planning"
	IntentHelp       Intent = "default-help"
)

// Input is everything a response may draw on.
type Input struct {
	Summary    core.Summary
	Categories []core.CategoryAggregate
	Forecast   core.Forecast
	Budget     core.BudgetStatus
}

type rule struct {
	intent   Intent
	keywords []string
	respond  func(a *Advisor, in Input) string
}

// Advisor is stateless apart from its currency formatter and is safe for
// concurrent use.
type Advisor struct {
	money Currency
	rules []rule
}

func New(currency Currency) *Advisor {
	return &Advisor{money: currency, rules: defaultRules()}
}

// Classify returns the intent of query. Blank queries are IntentHelp.
func (a *Advisor) Classify(query string) Intent {
	r := a.match(query)
	if r == nil {
		return IntentHelp
	}
	return r.intent
}

// Respond classifies query and renders the matching answer.
func (a *Advisor) Respond(query string, in Input) string {
	r := a.match(query)
	if r == nil {
		return a.help()
	}
	return r.respond(a, in)
}

func (a *Advisor) match(query string) *rule {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	for i := range a.rules {
		for _, kw := range a.rules[i].keywords {
			if strings.Contains(q, kw) {
				return &a.rules[i]
			}
		}
	}
	return nil
}

func (a *Advisor) amount(m core.Money) string { return a.money.Format(m) }
