package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finsight/internal/core"
)

func TestRows(t *testing.T) {
	r := Report{
		Username:    "abc",
		GeneratedAt: time.Date(2025, 3, 21, 9, 30, 0, 0, time.UTC),
		Summary: core.Summary{
			TotalIncome:  core.FromUnits(60000),
			TotalExpense: core.FromUnits(43200),
			TotalBalance: core.FromUnits(16800),
		},
		Categories: []core.CategoryAggregate{
			{Category: "Food", Total: core.FromUnits(15000), Percentage: 34.7222},
			{Category: "Others", Total: core.FromUnits(100), Percentage: 0.23},
		},
		Forecast: core.Forecast{
			ProjectedTotalExpense: core.FromUnits(21600),
			ProjectedEndBalance:   core.FromUnits(-4800),
			Categories: []core.CategoryForecast{
				{Category: "Food", Total: core.FromUnits(7560)},
			},
			Provenance: core.Provenance{ProjectedTotal: core.SourceLocal, Categories: core.SourceLocal},
		},
	}

	rows := Rows(r)
	require.Len(t, rows, 6)
	for _, row := range rows {
		assert.Len(t, row, len(Header))
		assert.Equal(t, "2025-03-21T09:30:00Z", row[0])
		assert.Equal(t, "abc", row[1])
	}

	assert.Equal(t, []any{"2025-03-21T09:30:00Z", "abc", KindIncome, "", 60000.0, "", "", ""}, rows[0])
	assert.Equal(t, KindBalance, rows[2][2])
	assert.Equal(t, 16800.0, rows[2][4])

	assert.Equal(t, []any{"2025-03-21T09:30:00Z", "abc", KindCategory, "Food", 15000.0, 34.7, 7560.0, "local"}, rows[3])
	assert.Equal(t, "", rows[4][6], "category without projection")
	assert.Equal(t, 0.2, rows[4][5])

	assert.Equal(t, []any{"2025-03-21T09:30:00Z", "abc", KindForecast, "", 21600.0, "", -4800.0, "local"}, rows[5])
}

func TestRows_Empty(t *testing.T) {
	rows := Rows(Report{Username: "new"})
	require.Len(t, rows, 4)
	assert.Equal(t, KindForecast, rows[3][2])
	assert.Equal(t, 0.0, rows[3][4])
}
