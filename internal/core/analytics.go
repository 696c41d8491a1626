package core

import "encoding/json"

// Source marks where a forecast value came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// CategoryForecast is the projected spend of one category until month end.
type CategoryForecast struct {
	Category     string
	Total        Money
	DailyAverage Money
}

// Provenance records, per forecast field, whether the value was taken from
// the analytics service or synthesized locally.
type Provenance struct {
	DaysRemaining  Source
	ProjectedTotal Source
	DailyAverage   Source
	EndBalance     Source
	MinimumBalance Source
	Categories     Source
}

// Forecast is the month-end projection shown on the dashboard.
type Forecast struct {
	DaysRemaining           int
	ProjectedTotalExpense   Money
	DailyAverageExpense     Money
	ProjectedEndBalance     Money
	ProjectedMinimumBalance Money
	Categories              []CategoryForecast
	Provenance              Provenance
}

// IsFallback reports whether any field was synthesized locally.
func (f Forecast) IsFallback() bool {
	p := f.Provenance
	for _, s := range []Source{p.DaysRemaining, p.ProjectedTotal, p.DailyAverage, p.EndBalance, p.MinimumBalance, p.Categories} {
		if s == SourceLocal {
			return true
		}
	}
	return false
}

// SeriesForecast is one model's expense series as returned by the
// forecasts endpoint. Pointer fields are absent when nil.
type SeriesForecast struct {
	Dates       []string  `json:"dates,omitempty"`
	Predicted   []float64 `json:"predicted,omitempty"`
	TotalAmount *float64  `json:"total_forecast,omitempty"`
	AvgDaily    *float64  `json:"avg_daily,omitempty"`
	HorizonDays *int      `json:"horizon_days,omitempty"`
}

// BalanceForecast is the projected balance block of the forecasts payload.
type BalanceForecast struct {
	EndBalance     *float64 `json:"end_balance,omitempty"`
	MinBalance     *float64 `json:"min_balance,omitempty"`
	RiskOfNegative *float64 `json:"risk_of_negative,omitempty"`
}

// RemoteCategoryForecast is a per-category entry of the forecasts payload.
type RemoteCategoryForecast struct {
	Total    float64 `json:"total"`
	DailyAvg float64 `json:"daily_avg"`
}

// RemoteForecast is the data block of GET /forecasts/{username}.
type RemoteForecast struct {
	Prophet    *SeriesForecast                   `json:"prophet,omitempty"`
	LSTM       *SeriesForecast                   `json:"lstm,omitempty"`
	Balance    *BalanceForecast                  `json:"balance,omitempty"`
	Categories map[string]RemoteCategoryForecast `json:"categories,omitempty"`
}

// Series returns the expense series used for projection: Prophet when it
// carries a total, else LSTM. Nil when neither is usable.
func (r *RemoteForecast) Series() *SeriesForecast {
	if r == nil {
		return nil
	}
	if r.Prophet != nil && r.Prophet.TotalAmount != nil {
		return r.Prophet
	}
	if r.LSTM != nil && r.LSTM.TotalAmount != nil {
		return r.LSTM
	}
	return nil
}

// Usable reports whether the payload carries at least a total projection.
func (r *RemoteForecast) Usable() bool {
	return r.Series() != nil
}

// RiskAnalysis is the data block of GET /risk-analysis/{username}.
type RiskAnalysis struct {
	AverageRisk        float64            `json:"average_risk"`
	RecentRisk         float64            `json:"recent_risk"`
	HighRiskCount      int                `json:"high_risk_count"`
	HighRiskPercentage float64            `json:"high_risk_percentage"`
	RiskTrend          string             `json:"risk_trend"`
	RiskByCategory     map[string]float64 `json:"risk_by_category"`
}

// BehavioralInsights is the data block of GET /insights/{username}.
type BehavioralInsights struct {
	Insights        []string `json:"behavioral_insights"`
	Recommendations []string `json:"recommendations"`
	StabilityScore  float64  `json:"financial_stability_score"`
}

// Panel is one independently fetched analytics result. A failed panel keeps
// its error and leaves Data at the zero value.
type Panel[T any] struct {
	Data T
	Err  error
}

// OK reports whether the panel loaded.
func (p Panel[T]) OK() bool { return p.Err == nil }

// InsightPanels groups the four analytics panels of the dashboard.
type InsightPanels struct {
	Analysis Panel[json.RawMessage]
	Insights Panel[BehavioralInsights]
	Forecast Panel[*RemoteForecast]
	Risk     Panel[RiskAnalysis]
}
