package predictive

import (
	"fmt"
	"sort"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var efficiencyMetrics = []models.Metric{models.MetricTemperature, models.MetricHumidity}

// EnergyEfficiencyScore grades the stability of the trailing day of
// temperature and humidity. Lower dispersion means less HVAC effort.
func (e *Engine) EnergyEfficiencyScore(rows []models.FeatureRow) models.EfficiencyScore {
	if len(rows) < dayWindow {
		return models.EfficiencyScore{
			Insufficient: models.NewInsufficientData("energy_efficiency", "insufficient data for energy efficiency calculation", dayWindow, len(rows)),
		}
	}

	recent := sortedRows(rows)
	recent = recent[len(recent)-dayWindow:]

	scores := make(map[models.Metric]float64)
	var all []float64
	for _, m := range efficiencyMetrics {
		values := stats.Present(models.MetricValues(recent, m))
		if len(values) == 0 {
			continue
		}
		score := stabilityScore(values)
		scores[m] = score
		all = append(all, score)
	}

	overall := 0.0
	if len(all) > 0 {
		overall = stats.Mean(all)
	}
	return models.EfficiencyScore{
		OverallEfficiencyScore: overall,
		StabilityScores:        scores,
		Grade:                  stats.Grade(overall),
		Interpretation:         interpretEfficiency(overall),
	}
}

func stabilityScore(values []float64) float64 {
	return max(0, 100-stats.CV(values)*100)
}

func interpretEfficiency(score float64) string {
	switch {
	case score >= 90:
		return "Excellent - Very stable conditions with minimal energy waste"
	case score >= 80:
		return "Good - Stable conditions with reasonable energy usage"
	case score >= 70:
		return "Fair - Some fluctuations, room for efficiency improvements"
	case score >= 60:
		return "Poor - Significant fluctuations, high energy usage likely"
	default:
		return "Critical - Very unstable conditions, major efficiency issues"
	}
}

// OptimizationRecommendations applies the fixed band, forecast and trend
// rules to the current conditions. The result is stable-sorted by priority.
func (e *Engine) OptimizationRecommendations(
	c models.Conditions,
	forecasts map[models.Metric]models.Forecast,
	trends map[models.Metric]models.TrendSummary,
) []models.Recommendation {
	recs := []models.Recommendation{}
	add := func(kind string, p models.Priority, action, message, impact string) {
		recs = append(recs, models.Recommendation{
			Type:           kind,
			Category:       kind,
			Priority:       p,
			Action:         action,
			Message:        message,
			ExpectedImpact: impact,
		})
	}

	if temp, ok := c.Get(models.MetricTemperature); ok {
		band := OptimalRanges[models.MetricTemperature]
		switch {
		case temp > band.Max:
			add("temperature", models.PriorityHigh, "cooling",
				fmt.Sprintf("Temperature is %.1f°C, above optimal range. Consider increasing ventilation or cooling.", temp),
				"Prevent coffee bean deterioration and maintain quality")
		case temp < band.Min:
			add("temperature", models.PriorityMedium, "heating",
				fmt.Sprintf("Temperature is %.1f°C, below optimal range. Consider reducing cooling or adding heating.", temp),
				"Optimize storage conditions for coffee preservation")
		}
		if f, ok := forecasts[models.MetricTemperature]; ok && f.RiskLevel == models.RiskCritical {
			add("temperature", models.PriorityUrgent, "immediate_intervention",
				fmt.Sprintf("Temperature forecast shows critical levels in %d hours. Take immediate action.", f.HoursAhead),
				"Prevent severe coffee quality degradation")
		}
	}

	if humidity, ok := c.Get(models.MetricHumidity); ok {
		band := OptimalRanges[models.MetricHumidity]
		switch {
		case humidity > band.Max:
			add("humidity", models.PriorityHigh, "dehumidification",
				fmt.Sprintf("Humidity is %.1f%%, above optimal range. Increase dehumidification or ventilation.", humidity),
				"Prevent mold growth and maintain coffee bean quality")
		case humidity < band.Min:
			add("humidity", models.PriorityMedium, "humidification",
				fmt.Sprintf("Humidity is %.1f%%, below optimal range. Consider reducing dehumidification.", humidity),
				"Prevent coffee beans from becoming too dry")
		}
	}

	if dust, ok := c.Get(models.MetricDust); ok && dust > OptimalRanges[models.MetricDust].Max {
		add("air_quality", models.PriorityHigh, "air_filtration",
			fmt.Sprintf("Dust level is %.1f µg/m³, above optimal range. Improve air filtration and cleaning.", dust),
			"Maintain clean storage environment and coffee quality")
	}

	for _, m := range models.AllMetrics {
		t, ok := trends[m]
		if !ok || t.Direction != models.TrendIncreasing || t.ChangePercent <= 10 {
			continue
		}
		add(string(m), models.PriorityMedium, "trend_monitoring",
			fmt.Sprintf("%s showing increasing trend (%.1f%% change). Monitor closely.", m.Title(), t.ChangePercent),
			"Early intervention to prevent optimal range violations")
	}

	SortByPriority(recs)
	return recs
}

// SortByPriority orders urgent first and keeps insertion order within a level
func SortByPriority(recs []models.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority.Rank() < recs[j].Priority.Rank() })
}
