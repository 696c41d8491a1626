package config

import (
	"fmt"

	"github.com/spf13/viper"

	"finsight/internal/core"
	"finsight/internal/projection"
)

// policyFile is the TOML layout of the forecast policy:
//
//	min_balance_haircut = 0.15
//	daily_floor = 800
//	daily_ceil = 2500
//
//	[[weights]]
//	category = "Food"
//	percent = 35
type policyFile struct {
	MinBalanceHaircut float64                     `mapstructure:"min_balance_haircut"`
	DailyFloor        float64                     `mapstructure:"daily_floor"`
	DailyCeil         float64                     `mapstructure:"daily_ceil"`
	Weights           []projection.CategoryWeight `mapstructure:"weights"`
}

// LoadPolicy reads the forecast policy from a TOML file. Keys missing from
// the file keep their default value; an empty path returns the defaults.
func LoadPolicy(path string) (projection.Policy, error) {
	def := projection.DefaultPolicy()
	if path == "" {
		return def, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("min_balance_haircut", def.MinBalanceHaircut)
	v.SetDefault("daily_floor", def.DailyFloor.Units())
	v.SetDefault("daily_ceil", def.DailyCeil.Units())

	if err := v.ReadInConfig(); err != nil {
		return projection.Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}

	var f policyFile
	if err := v.Unmarshal(&f); err != nil {
		return projection.Policy{}, fmt.Errorf("failed to unmarshal policy: %w", err)
	}

	p := projection.Policy{
		MinBalanceHaircut: f.MinBalanceHaircut,
		Weights:           f.Weights,
		DailyFloor:        core.FromFloat(f.DailyFloor),
		DailyCeil:         core.FromFloat(f.DailyCeil),
	}
	if len(p.Weights) == 0 {
		p.Weights = def.Weights
	}
	if err := p.Validate(); err != nil {
		return projection.Policy{}, err
	}
	return p, nil
}
