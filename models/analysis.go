package models

import "time"

// InsufficientData is the explicit result variant for degenerate input
type InsufficientData struct {
	Stage    string `json:"stage"`
	Reason   string `json:"reason"`
	Required int    `json:"required,omitempty"`
	Got      int    `json:"got"`
}

// NewInsufficientData builds the variant for a stage
func NewInsufficientData(stage, reason string, required, got int) *InsufficientData {
	return &InsufficientData{Stage: stage, Reason: reason, Required: required, Got: got}
}

// TrendDirection labels a linear trend
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendSummary describes one metric over the analysis window
type TrendSummary struct {
	Direction      TrendDirection `json:"direction"`
	Slope          float64        `json:"slope"`
	CurrentAverage float64        `json:"current_average"`
	ChangePercent  float64        `json:"change_percent"`
	MinValue       float64        `json:"min_value"`
	MaxValue       float64        `json:"max_value"`
	StdDeviation   float64        `json:"std_deviation"`
	DataPoints     int            `json:"data_points"`
}

// TrendReport is either insufficient or a per-metric summary
type TrendReport struct {
	Insufficient *InsufficientData       `json:"insufficient_data,omitempty"`
	WindowDays   int                     `json:"window_days"`
	Metrics      map[Metric]TrendSummary `json:"metrics,omitempty"`
}

// OK reports whether the trend analysis produced data
func (r TrendReport) OK() bool { return r.Insufficient == nil }

// RiskLevel classifies a value against optimal bands and risk thresholds
type RiskLevel string

const (
	RiskOptimal    RiskLevel = "optimal"
	RiskSuboptimal RiskLevel = "suboptimal"
	RiskWarning    RiskLevel = "warning"
	RiskCritical   RiskLevel = "critical"
	RiskUnknown    RiskLevel = "unknown"
)

// Forecast is the short-horizon prediction for one metric
type Forecast struct {
	ForecastValue float64        `json:"forecast_value"`
	Confidence    float64        `json:"confidence"`
	HoursAhead    int            `json:"hours_ahead"`
	RiskLevel     RiskLevel      `json:"risk_level"`
	CurrentValue  float64        `json:"current_value"`
	Trend         TrendDirection `json:"trend"`
}

// ForecastReport is either insufficient or a per-metric forecast
type ForecastReport struct {
	Insufficient *InsufficientData   `json:"insufficient_data,omitempty"`
	HoursAhead   int                 `json:"hours_ahead"`
	Metrics      map[Metric]Forecast `json:"metrics,omitempty"`
}

// OK reports whether forecasts were produced
func (r ForecastReport) OK() bool { return r.Insufficient == nil }

// MetricScore is the per-metric part of the storage quality score
type MetricScore struct {
	Score        float64   `json:"score"`
	Status       RiskLevel `json:"status"`
	OptimalRange string    `json:"optimal_range"`
	CurrentValue float64   `json:"current_value"`
}

// QualityScore is the weighted 0-100 storage quality composite
type QualityScore struct {
	Insufficient     *InsufficientData      `json:"insufficient_data,omitempty"`
	OverallScore     float64                `json:"overall_score"`
	IndividualScores map[Metric]MetricScore `json:"individual_scores,omitempty"`
	Grade            string                 `json:"grade"`
	Timestamp        time.Time              `json:"timestamp"`
}

// EfficiencyScore grades the stability of controlled conditions
type EfficiencyScore struct {
	Insufficient           *InsufficientData  `json:"insufficient_data,omitempty"`
	OverallEfficiencyScore float64            `json:"overall_efficiency_score"`
	StabilityScores        map[Metric]float64 `json:"stability_scores,omitempty"`
	Grade                  string             `json:"grade"`
	Interpretation         string             `json:"interpretation"`
}
