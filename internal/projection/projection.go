// Package projection produces the month-end forecast. Values supplied by
// the analytics service are used as is; anything it leaves out is filled in
// by a local model, and every field records where it came from.
package projection

import (
	"hash/fnv"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// Engine projects month-end figures. An Engine is bound to one session: the
// synthesized daily average it falls back to is drawn once from the session
// seed and stays the same across renders.
type Engine struct {
	policy         Policy
	syntheticDaily core.Money
}

// NewEngine returns an engine using policy. seed identifies the session,
// typically the username.
func NewEngine(policy Policy, seed string) *Engine {
	return &Engine{
		policy:         policy,
		syntheticDaily: draw(policy.DailyFloor, policy.DailyCeil, seed),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

func draw(floor, ceil core.Money, seed string) core.Money {
	if ceil.Cents <= floor.Cents {
		return floor
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	sum := h.Sum64()
	r := rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
	// whole currency units inside the range
	lo, hi := (floor.Cents+99)/100, ceil.Cents/100
	if hi < lo {
		return floor
	}
	return core.FromUnits(lo + r.Int64N(hi-lo+1))
}

// Project builds the forecast for today from the summary and an optional
// remote payload. It never fails.
func (e *Engine) Project(s core.Summary, remote *core.RemoteForecast, today time.Time) core.Forecast {
	var f core.Forecast
	series := remote.Series()

	// days remaining
	f.DaysRemaining, f.Provenance.DaysRemaining = localDaysRemaining(today), core.SourceLocal
	if series != nil && series.HorizonDays != nil {
		f.DaysRemaining, f.Provenance.DaysRemaining = max(*series.HorizonDays, 0), core.SourceRemote
	}

	// daily average
	switch {
	case series != nil && series.AvgDaily != nil:
		f.DailyAverageExpense, f.Provenance.DailyAverage = nonNegative(*series.AvgDaily), core.SourceRemote
	case series != nil && f.DaysRemaining > 0:
		f.DailyAverageExpense = divide(nonNegative(*series.TotalAmount), int64(f.DaysRemaining))
		f.Provenance.DailyAverage = core.SourceLocal
	default:
		f.DailyAverageExpense, f.Provenance.DailyAverage = e.localDaily(s), core.SourceLocal
	}

	// projected total
	if series != nil {
		f.ProjectedTotalExpense, f.Provenance.ProjectedTotal = nonNegative(*series.TotalAmount), core.SourceRemote
	} else {
		f.ProjectedTotalExpense = core.Money{Cents: f.DailyAverageExpense.Cents * int64(f.DaysRemaining)}
		f.Provenance.ProjectedTotal = core.SourceLocal
	}

	// balances
	var bal *core.BalanceForecast
	if remote != nil && series != nil {
		bal = remote.Balance
	}
	if bal != nil && bal.EndBalance != nil {
		f.ProjectedEndBalance, f.Provenance.EndBalance = core.FromFloat(*bal.EndBalance), core.SourceRemote
	} else {
		f.ProjectedEndBalance, f.Provenance.EndBalance = s.TotalBalance.Sub(f.ProjectedTotalExpense), core.SourceLocal
	}
	if bal != nil && bal.MinBalance != nil {
		f.ProjectedMinimumBalance, f.Provenance.MinimumBalance = core.FromFloat(*bal.MinBalance), core.SourceRemote
	} else {
		f.ProjectedMinimumBalance, f.Provenance.MinimumBalance = e.minimumBalance(f.ProjectedEndBalance), core.SourceLocal
	}

	// categories
	if series != nil && len(remote.Categories) > 0 {
		f.Categories, f.Provenance.Categories = remoteCategories(remote.Categories), core.SourceRemote
	} else {
		f.Categories, f.Provenance.Categories = e.splitByWeight(f.ProjectedTotalExpense, f.DaysRemaining), core.SourceLocal
	}
	return f
}

func localDaysRemaining(today time.Time) int {
	d := core.DateOf(today)
	return max(d.DaysInMonth()-d.Day(), 0)
}

func (e *Engine) localDaily(s core.Summary) core.Money {
	if s.ObservedDays > 0 && !s.TotalExpense.IsZero() {
		return divide(s.TotalExpense, int64(s.ObservedDays))
	}
	return e.syntheticDaily
}

// minimumBalance takes the haircut off the absolute value so a negative end
// balance gets more negative rather than less.
func (e *Engine) minimumBalance(end core.Money) core.Money {
	cut := end.Abs().Decimal().Mul(decimal.NewFromFloat(e.policy.MinBalanceHaircut))
	return core.Money{Cents: end.Decimal().Sub(cut).Shift(2).Round(0).IntPart()}
}

// splitByWeight distributes total over the policy weights. Rounding
// leftovers go to the first category so the parts add up to total.
func (e *Engine) splitByWeight(total core.Money, days int) []core.CategoryForecast {
	out := make([]core.CategoryForecast, 0, len(e.policy.Weights))
	var assigned core.Money
	for _, w := range e.policy.Weights {
		part := total.MulPercent(int64(w.Percent))
		assigned = assigned.Add(part)
		out = append(out, core.CategoryForecast{Category: w.Category, Total: part})
	}
	if len(out) > 0 {
		out[0].Total = out[0].Total.Add(total.Sub(assigned))
	}
	for i := range out {
		if days > 0 {
			out[i].DailyAverage = divide(out[i].Total, int64(days))
		}
	}
	return out
}

func remoteCategories(m map[string]core.RemoteCategoryForecast) []core.CategoryForecast {
	out := make([]core.CategoryForecast, 0, len(m))
	for name, c := range m {
		out = append(out, core.CategoryForecast{
			Category:     name,
			Total:        nonNegative(c.Total),
			DailyAverage: nonNegative(c.DailyAvg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total.Cents > out[j].Total.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func nonNegative(units float64) core.Money {
	if units <= 0 {
		return core.Money{}
	}
	return core.FromFloat(units)
}

// divide rounds half up on cents. n must be positive.
func divide(m core.Money, n int64) core.Money {
	return core.Money{Cents: (m.Cents*2 + n) / (2 * n)}
}
