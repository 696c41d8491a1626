package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/core"
)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 30, 0, 0, time.UTC)
}

func TestDefaultPolicyIsValid(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	sum := 0
	for _, w := range p.Weights {
		sum += w.Percent
	}
	assert.Equal(t, 100, sum)
	assert.Equal(t, 0.15, p.MinBalanceHaircut)
}

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()
	p.Weights = append(p.Weights, CategoryWeight{Category: "Food", Percent: 1})
	p.MinBalanceHaircut = 1.5
	p.DailyCeil = core.FromUnits(1)

	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100, got 101")
	assert.Contains(t, err.Error(), `duplicate category weight "Food"`)
	assert.Contains(t, err.Error(), "haircut")
	assert.Contains(t, err.Error(), "ceiling")
}

func TestProjectLocalWithHistory(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "abc")
	s := core.Summary{
		TotalIncome:  core.FromUnits(60000),
		TotalExpense: core.FromUnits(43200),
		TotalBalance: core.FromUnits(16800),
		ObservedDays: 20,
	}
	f := e.Project(s, nil, day(2025, time.March, 21))

	assert.Equal(t, 10, f.DaysRemaining)
	assert.Equal(t, core.FromUnits(2160), f.DailyAverageExpense)
	assert.Equal(t, core.FromUnits(21600), f.ProjectedTotalExpense)
	assert.Equal(t, core.FromUnits(-4800), f.ProjectedEndBalance)
	assert.Equal(t, core.FromUnits(-5520), f.ProjectedMinimumBalance)
	assert.True(t, f.IsFallback())
	assert.Equal(t, core.SourceLocal, f.Provenance.Categories)

	require.Len(t, f.Categories, 6)
	var total core.Money
	for _, c := range f.Categories {
		total = total.Add(c.Total)
	}
	assert.Equal(t, f.ProjectedTotalExpense, total)
	assert.Equal(t, "Food", f.Categories[0].Category)
	assert.Equal(t, core.FromUnits(7560), f.Categories[0].Total)
	assert.Equal(t, core.FromUnits(756), f.Categories[0].DailyAverage)
}

func TestProjectPositiveBalanceHaircut(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "u")
	s := core.Summary{
		TotalIncome:  core.FromUnits(100000),
		TotalExpense: core.FromUnits(3000),
		TotalBalance: core.FromUnits(97000),
		ObservedDays: 3,
	}
	f := e.Project(s, nil, day(2025, time.April, 29))
	assert.Equal(t, 1, f.DaysRemaining)
	assert.Equal(t, core.FromUnits(96000), f.ProjectedEndBalance)
	assert.Equal(t, core.FromUnits(81600), f.ProjectedMinimumBalance)
}

func TestProjectWithoutHistoryIsStablePerSession(t *testing.T) {
	p := DefaultPolicy()
	e := NewEngine(p, "newbie")
	today := day(2025, time.June, 10)

	first := e.Project(core.Summary{}, nil, today)
	second := e.Project(core.Summary{}, nil, today)
	assert.Equal(t, first, second)

	again := NewEngine(p, "newbie").Project(core.Summary{}, nil, today)
	assert.Equal(t, first.DailyAverageExpense, again.DailyAverageExpense)

	assert.GreaterOrEqual(t, first.DailyAverageExpense.Cents, p.DailyFloor.Cents)
	assert.LessOrEqual(t, first.DailyAverageExpense.Cents, p.DailyCeil.Cents)
	assert.Equal(t, 20, first.DaysRemaining)
}

func TestProjectNeverNegative(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "x")
	summaries := []core.Summary{
		{},
		{TotalExpense: core.FromUnits(10), ObservedDays: 1},
		{TotalIncome: core.FromUnits(5), TotalBalance: core.FromUnits(5)},
	}
	remotes := []*core.RemoteForecast{
		nil,
		{},
		{Prophet: &core.SeriesForecast{TotalAmount: ptr(-50.0), AvgDaily: ptr(-3.0), HorizonDays: ptr(-2)}},
		{LSTM: &core.SeriesForecast{TotalAmount: ptr(900.0)}},
	}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := 0; d < 366; d += 7 {
		for _, s := range summaries {
			for _, r := range remotes {
				f := e.Project(s, r, start.AddDate(0, 0, d))
				require.GreaterOrEqual(t, f.DaysRemaining, 0)
				require.False(t, f.DailyAverageExpense.IsNegative())
				require.False(t, f.ProjectedTotalExpense.IsNegative())
			}
		}
	}
	last := e.Project(core.Summary{}, nil, day(2025, time.December, 31))
	assert.Equal(t, 0, last.DaysRemaining)
	assert.True(t, last.ProjectedTotalExpense.IsZero())
	for _, c := range last.Categories {
		assert.True(t, c.DailyAverage.IsZero())
	}
}

func TestProjectPrefersRemote(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "abc")
	remote := &core.RemoteForecast{
		Prophet: &core.SeriesForecast{TotalAmount: ptr(12000.5), AvgDaily: ptr(1200.05), HorizonDays: ptr(10)},
		Balance: &core.BalanceForecast{EndBalance: ptr(4800.0), MinBalance: ptr(1000.0)},
		Categories: map[string]core.RemoteCategoryForecast{
			"Food":  {Total: 5000, DailyAvg: 500},
			"Bills": {Total: 7000.5, DailyAvg: 700.05},
		},
	}
	f := e.Project(core.Summary{TotalBalance: core.FromUnits(16800)}, remote, day(2025, time.March, 5))

	assert.False(t, f.IsFallback())
	assert.Equal(t, 10, f.DaysRemaining)
	assert.Equal(t, int64(1200050), f.ProjectedTotalExpense.Cents)
	assert.Equal(t, int64(120005), f.DailyAverageExpense.Cents)
	assert.Equal(t, core.FromUnits(4800), f.ProjectedEndBalance)
	assert.Equal(t, core.FromUnits(1000), f.ProjectedMinimumBalance)
	require.Len(t, f.Categories, 2)
	assert.Equal(t, "Bills", f.Categories[0].Category)
}

func TestProjectBackfillsMissingRemoteFields(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "abc")
	remote := &core.RemoteForecast{
		Prophet: &core.SeriesForecast{TotalAmount: ptr(3000.0)},
	}
	f := e.Project(core.Summary{TotalBalance: core.FromUnits(10000)}, remote, day(2025, time.March, 21))

	assert.Equal(t, core.SourceRemote, f.Provenance.ProjectedTotal)
	assert.Equal(t, core.SourceLocal, f.Provenance.DaysRemaining)
	assert.Equal(t, core.SourceLocal, f.Provenance.DailyAverage)
	assert.Equal(t, core.SourceLocal, f.Provenance.EndBalance)
	assert.Equal(t, core.SourceLocal, f.Provenance.Categories)
	assert.Equal(t, 10, f.DaysRemaining)
	assert.Equal(t, core.FromUnits(300), f.DailyAverageExpense)
	assert.Equal(t, core.FromUnits(7000), f.ProjectedEndBalance)
	assert.Equal(t, core.FromUnits(5950), f.ProjectedMinimumBalance)
}

func TestProjectIgnoresPayloadWithoutTotal(t *testing.T) {
	e := NewEngine(DefaultPolicy(), "abc")
	remote := &core.RemoteForecast{
		Prophet: &core.SeriesForecast{AvgDaily: ptr(99.0)},
		Balance: &core.BalanceForecast{EndBalance: ptr(1.0)},
	}
	s := core.Summary{TotalExpense: core.FromUnits(1000), ObservedDays: 10}
	f := e.Project(s, remote, day(2025, time.March, 21))
	assert.Equal(t, core.FromUnits(100), f.DailyAverageExpense)
	assert.Equal(t, core.SourceLocal, f.Provenance.EndBalance)
	assert.Equal(t, core.SourceLocal, f.Provenance.ProjectedTotal)
}
