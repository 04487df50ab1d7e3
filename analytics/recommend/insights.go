package recommend

import (
	"math"
	"sort"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const (
	insufficientMessage = "Insufficient data"
	trendWindow         = 24
	trendBand           = 0.05
	idealTemperature    = 21.0
	idealHumidity       = 62.0
	baseEnergyCost      = 100.0
	baseQualityCost     = 50.0
	savingsShare        = 0.2
)

var riskCostMultiplier = map[models.RiskLabel]float64{
	models.RiskLow:    1.0,
	models.RiskMedium: 1.2,
	models.RiskHigh:   1.5,
}

// SmartInsights builds the composite report for the current conditions and history
func (e *Engine) SmartInsights(c models.Conditions, history []models.Reading) models.SmartInsights {
	return models.SmartInsights{
		EfficiencyScore:       efficiencySummary(history),
		OptimizationPotential: e.estimator.Estimate(c, history),
		RiskAssessment:        AssessRisks(c),
		PerformanceTrends:     performanceTrends(history),
		CostImpact:            costImpact(c),
	}
}

func efficiencySummary(history []models.Reading) models.EfficiencySummary {
	if len(history) == 0 {
		return models.EfficiencySummary{Score: 0, Grade: stats.Grade(0), Message: insufficientMessage}
	}
	var scores []float64
	for _, m := range models.AllMetrics {
		values := stats.Present(readingValues(history, m))
		if len(values) == 0 {
			continue
		}
		scores = append(scores, math.Max(0, 100-stats.CV(values)*100))
	}
	score := stats.Mean(scores)
	return models.EfficiencySummary{Score: score, Grade: stats.Grade(score), Message: interpretSystemEfficiency(score)}
}

func interpretSystemEfficiency(score float64) string {
	switch {
	case score >= 90:
		return "Excellent system performance with optimal stability"
	case score >= 80:
		return "Good performance with minor optimization opportunities"
	case score >= 70:
		return "Acceptable performance with room for improvement"
	case score >= 60:
		return "Below average performance requiring attention"
	default:
		return "Poor performance requiring immediate optimization"
	}
}

// AssessRisks grades the current conditions; missing values take neutral readings
func AssessRisks(c models.Conditions) models.RiskAssessment {
	temp := c.GetOr(models.MetricTemperature, 20)
	humidity := c.GetOr(models.MetricHumidity, 60)
	dust := c.GetOr(models.MetricDust, 30)

	risks := []models.RiskItem{}
	switch {
	case temp > 27:
		risks = append(risks, models.RiskItem{Type: "temperature", Level: models.RiskHigh, Impact: "coffee_degradation"})
	case temp > 25:
		risks = append(risks, models.RiskItem{Type: "temperature", Level: models.RiskMedium, Impact: "quality_reduction"})
	}
	switch {
	case humidity > 75:
		risks = append(risks, models.RiskItem{Type: "humidity", Level: models.RiskHigh, Impact: "mold_growth"})
	case humidity > 70:
		risks = append(risks, models.RiskItem{Type: "humidity", Level: models.RiskMedium, Impact: "quality_issues"})
	}
	if dust > 75 {
		risks = append(risks, models.RiskItem{Type: "air_quality", Level: models.RiskHigh, Impact: "contamination"})
	}

	overall := models.RiskLow
	for _, r := range risks {
		if r.Level == models.RiskHigh {
			overall = models.RiskHigh
			break
		}
		overall = models.RiskMedium
	}
	return models.RiskAssessment{OverallRisk: overall, IndividualRisks: risks, RiskCount: len(risks)}
}

// performanceTrends compares the newest day of history with the oldest
func performanceTrends(history []models.Reading) models.PerformanceTrends {
	if len(history) == 0 {
		return models.PerformanceTrends{OverallTrend: "unknown", Message: insufficientMessage}
	}
	sorted := append([]models.Reading(nil), history...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	n := min(trendWindow, len(sorted))
	recent, older := sorted[len(sorted)-n:], sorted[:n]

	trends := make(map[models.Metric]models.TrendDirection)
	stable := 0
	for _, m := range models.AllMetrics {
		recentValues := stats.Present(readingValues(recent, m))
		olderValues := stats.Present(readingValues(older, m))
		if len(recentValues) == 0 || len(olderValues) == 0 {
			continue
		}
		recentAvg, olderAvg := stats.Mean(recentValues), stats.Mean(olderValues)
		switch {
		case recentAvg > olderAvg*(1+trendBand):
			trends[m] = models.TrendIncreasing
		case recentAvg < olderAvg*(1-trendBand):
			trends[m] = models.TrendDecreasing
		default:
			trends[m] = models.TrendStable
			stable++
		}
	}

	overall := "variable"
	if stable > 1 {
		overall = "improving"
	}
	return models.PerformanceTrends{IndividualTrends: trends, OverallTrend: overall}
}

func costImpact(c models.Conditions) models.CostImpact {
	tempDeviation := math.Abs(c.GetOr(models.MetricTemperature, idealTemperature) - idealTemperature)
	humidityDeviation := math.Abs(c.GetOr(models.MetricHumidity, idealHumidity) - idealHumidity)

	energy := baseEnergyCost * (1 + tempDeviation*0.05 + humidityDeviation*0.02)
	quality := baseQualityCost * riskCostMultiplier[AssessRisks(c).OverallRisk]
	total := energy + quality
	return models.CostImpact{
		MonthlyEnergyCost:  energy,
		MonthlyQualityCost: quality,
		TotalMonthlyCost:   total,
		PotentialSavings:   total * savingsShare,
		CostDrivers:        []string{"temperature_deviation", "humidity_control", "quality_risk"},
	}
}
