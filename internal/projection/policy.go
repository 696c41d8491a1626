package projection

import (
	"errors"
	"fmt"
	"strings"

	"finsight/internal/core"
)

// CategoryWeight is the share of the projected total assigned to a category
// when the analytics service supplies no per-category forecast.
type CategoryWeight struct {
	Category string `mapstructure:"category"`
	Percent  int    `mapstructure:"percent"`
}

// Policy holds the constants of the local forecast model.
type Policy struct {
	// MinBalanceHaircut is the safety margin taken off the projected end
	// balance to obtain the projected minimum balance.
	MinBalanceHaircut float64
	Weights           []CategoryWeight
	// DailyFloor and DailyCeil bound the synthesized daily average used when
	// there is no expense history.
	DailyFloor core.Money
	DailyCeil  core.Money
}

// DefaultPolicy returns the built-in forecast constants.
func DefaultPolicy() Policy {
	return Policy{
		MinBalanceHaircut: 0.15,
		Weights: []CategoryWeight{
			{Category: "Food", Percent: 35},
			{Category: "Transport", Percent: 20},
			{Category: "Shopping", Percent: 18},
			{Category: "Bills", Percent: 15},
			{Category: "Entertainment", Percent: 8},
			{Category: "Others", Percent: 4},
		},
		DailyFloor: core.FromUnits(800),
		DailyCeil:  core.FromUnits(2500),
	}
}

// Validate checks the policy and reports every problem found.
func (p Policy) Validate() error {
	var errs []string

	if p.MinBalanceHaircut < 0 || p.MinBalanceHaircut >= 1 {
		errs = append(errs, fmt.Sprintf("min balance haircut must be in [0, 1), got %v", p.MinBalanceHaircut))
	}
	if len(p.Weights) == 0 {
		errs = append(errs, "at least one category weight is required")
	}
	sum := 0
	seen := make(map[string]bool, len(p.Weights))
	for _, w := range p.Weights {
		if strings.TrimSpace(w.Category) == "" {
			errs = append(errs, "category weight with empty category")
		}
		if seen[w.Category] {
			errs = append(errs, fmt.Sprintf("duplicate category weight %q", w.Category))
		}
		seen[w.Category] = true
		if w.Percent < 0 {
			errs = append(errs, fmt.Sprintf("category %q has negative weight %d", w.Category, w.Percent))
		}
		sum += w.Percent
	}
	if len(p.Weights) > 0 && sum != 100 {
		errs = append(errs, fmt.Sprintf("category weights must sum to 100, got %d", sum))
	}
	if p.DailyFloor.IsNegative() {
		errs = append(errs, "daily floor must not be negative")
	}
	if p.DailyCeil.Cents < p.DailyFloor.Cents {
		errs = append(errs, "daily ceiling must not be below the floor")
	}

	if len(errs) > 0 {
		return errors.New("forecast policy validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
