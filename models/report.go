package models

import "time"

// FlaggedReading is a reading the isolation forest marked as anomalous
type FlaggedReading struct {
	Index        int        `json:"index"`
	Timestamp    time.Time  `json:"timestamp"`
	Values       Conditions `json:"values"`
	AnomalyScore float64    `json:"anomaly_score"`
	Severity     string     `json:"severity"`
}

// PredictionSummary is the model output for one metric
type PredictionSummary struct {
	Value      float64 `json:"predicted_value"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback,omitempty"`
}

// Report is the output of one pipeline run
type Report struct {
	ID                 string                       `json:"id"`
	DeviceID           string                       `json:"device_id,omitempty"`
	GeneratedAt        time.Time                    `json:"generated_at"`
	DurationMillis     int64                        `json:"duration_ms"`
	Readings           int                          `json:"readings"`
	OutliersRemoved    int                          `json:"outliers_removed"`
	DuplicatesDropped  int                          `json:"duplicates_dropped"`
	Insufficient       *InsufficientData            `json:"insufficient_data,omitempty"`
	Conditions         Conditions                   `json:"current_conditions"`
	Predictions        map[Metric]PredictionSummary `json:"predictions,omitempty"`
	FlaggedReadings    []FlaggedReading             `json:"flagged_readings,omitempty"`
	ThresholdAnomalies []Anomaly                    `json:"threshold_anomalies,omitempty"`
	Patterns           PatternSet                   `json:"patterns"`
	Insights           []Insight                    `json:"insights,omitempty"`
	Trends             TrendReport                  `json:"trends"`
	Forecasts          ForecastReport               `json:"forecasts"`
	Quality            QualityScore                 `json:"quality"`
	Efficiency         EfficiencyScore              `json:"efficiency"`
	Optimization       []Recommendation             `json:"optimization,omitempty"`
	Recommendations    []Recommendation             `json:"recommendations,omitempty"`
	SmartInsights      *SmartInsights               `json:"smart_insights,omitempty"`
}

// HasUrgent reports whether any recommendation is urgent
func (r *Report) HasUrgent() bool {
	for _, rec := range r.Recommendations {
		if rec.Priority == PriorityUrgent {
			return true
		}
	}
	for _, rec := range r.Optimization {
		if rec.Priority == PriorityUrgent {
			return true
		}
	}
	return false
}

// ReportSummary is the compact form published to lightweight subscribers
type ReportSummary struct {
	ID              string            `json:"id"`
	DeviceID        string            `json:"device_id,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Readings        int               `json:"readings"`
	Conditions      Conditions        `json:"current_conditions"`
	QualityScore    float64           `json:"quality_score"`
	QualityGrade    string            `json:"quality_grade"`
	OverallRisk     RiskLabel         `json:"overall_risk,omitempty"`
	ThresholdAlerts int               `json:"threshold_alerts"`
	Urgent          bool              `json:"urgent"`
	TopActions      []string          `json:"top_actions,omitempty"`
	Insufficient    *InsufficientData `json:"insufficient_data,omitempty"`
}

// Summary condenses the report, keeping at most topN recommendation actions
func (r *Report) Summary(topN int) ReportSummary {
	s := ReportSummary{
		ID:              r.ID,
		DeviceID:        r.DeviceID,
		GeneratedAt:     r.GeneratedAt,
		Readings:        r.Readings,
		Conditions:      r.Conditions,
		QualityScore:    r.Quality.OverallScore,
		QualityGrade:    r.Quality.Grade,
		ThresholdAlerts: len(r.ThresholdAnomalies),
		Urgent:          r.HasUrgent(),
		Insufficient:    r.Insufficient,
	}
	if r.SmartInsights != nil {
		s.OverallRisk = r.SmartInsights.RiskAssessment.OverallRisk
	}
	for i, rec := range r.Recommendations {
		if i >= topN {
			break
		}
		s.TopActions = append(s.TopActions, rec.Action)
	}
	return s
}
