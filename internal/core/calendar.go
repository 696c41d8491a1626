package core

import "time"

// MonthGrid lays out a month as weeks of seven cells starting on weekStart.
// Cells outside the month hold the zero Date.
func MonthGrid(year int, month time.Month, weekStart time.Weekday) [][]Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := Date{Time: first}.DaysInMonth()
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7

	cells := make([]Date, 0, 42)
	for i := 0; i < lead; i++ {
		cells = append(cells, Date{})
	}
	for d := 1; d <= days; d++ {
		cells = append(cells, Date{Time: first.AddDate(0, 0, d-1)})
	}
	for len(cells)%7 != 0 {
		cells = append(cells, Date{})
	}

	weeks := make([][]Date, 0, len(cells)/7)
	for i := 0; i < len(cells); i += 7 {
		weeks = append(weeks, cells[i:i+7])
	}
	return weeks
}
