package predictive

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const (
	dayWindow     = 24
	stableSlope   = 0.01
	minForecastIn = 24
)

// AnalyzeTrends fits a linear trend per metric over the window that trails the
// latest reading. A non-positive window uses the configured default.
func (e *Engine) AnalyzeTrends(rows []models.FeatureRow, windowDays int) models.TrendReport {
	if windowDays <= 0 {
		windowDays = e.cfg.WindowDays
	}
	report := models.TrendReport{WindowDays: windowDays}

	window := trailingWindow(sortedRows(rows), time.Duration(windowDays)*24*time.Hour)
	if len(window) == 0 {
		report.Insufficient = models.NewInsufficientData("trend_analysis", "no data available for trend analysis", 1, 0)
		return report
	}

	report.Metrics = make(map[models.Metric]models.TrendSummary)
	for _, m := range models.AllMetrics {
		values := stats.Present(models.MetricValues(window, m))
		if len(values) < 2 {
			continue
		}

		slope := stats.Slope(values)
		current := stats.Mean(tail(values, dayWindow))
		previous := stats.Mean(values)
		if len(values) >= 2*dayWindow {
			previous = stats.Mean(values[:dayWindow])
		}
		change := 0.0
		if previous != 0 {
			change = (current - previous) / previous * 100
		}
		lo, hi := stats.MinMax(values)

		report.Metrics[m] = models.TrendSummary{
			Direction:      direction(slope, stableSlope),
			Slope:          slope,
			CurrentAverage: current,
			ChangePercent:  change,
			MinValue:       lo,
			MaxValue:       hi,
			StdDeviation:   stats.SampleStd(values),
			DataPoints:     len(values),
		}
	}
	return report
}

// Forecast projects each metric hoursAhead into the future from the trailing
// day average, the day-over-day trend and a fixed diurnal cycle.
func (e *Engine) Forecast(rows []models.FeatureRow, hoursAhead int) models.ForecastReport {
	if hoursAhead <= 0 {
		hoursAhead = e.cfg.HoursAhead
	}
	report := models.ForecastReport{HoursAhead: hoursAhead}
	if len(rows) < minForecastIn {
		report.Insufficient = models.NewInsufficientData("forecast", "insufficient data for forecasting", minForecastIn, len(rows))
		return report
	}

	sorted := sortedRows(rows)
	latest := sorted[len(sorted)-1]
	futureHour := (latest.Timestamp.Hour() + hoursAhead) % 24

	report.Metrics = make(map[models.Metric]models.Forecast)
	for _, m := range models.AllMetrics {
		values := stats.Present(models.MetricValues(sorted, m))
		if len(values) < minForecastIn {
			continue
		}

		recent := tail(values, dayWindow)
		movingAvg := stats.Mean(recent)
		hourlyTrend := 0.0
		if len(values) >= 2*dayWindow {
			before := values[len(values)-2*dayWindow : len(values)-dayWindow]
			hourlyTrend = (movingAvg - stats.Mean(before)) / dayWindow
		}

		value := movingAvg + hourlyTrend*float64(hoursAhead) + diurnalAdjustment(m, futureHour)

		confidence := 0.5
		if movingAvg != 0 {
			confidence = stats.Clamp(math.Max(0.5, 1-stats.SampleStd(recent)/movingAvg), 0, 1)
		}

		report.Metrics[m] = models.Forecast{
			ForecastValue: value,
			Confidence:    confidence,
			HoursAhead:    hoursAhead,
			RiskLevel:     e.AssessRisk(m, value),
			CurrentValue:  values[len(values)-1],
			Trend:         direction(hourlyTrend, 0),
		}
	}

	e.logger.Debug("Forecast conditions",
		zap.Int("rows", len(rows)),
		zap.Int("hours_ahead", hoursAhead),
		zap.Int("metrics", len(report.Metrics)))
	return report
}

// diurnalAdjustment peaks temperature in the afternoon and humidity at night
func diurnalAdjustment(m models.Metric, hour int) float64 {
	phase := math.Sin(float64(hour-6) * math.Pi / 12)
	switch m {
	case models.MetricTemperature:
		return 2 * phase
	case models.MetricHumidity:
		return -3 * phase
	default:
		return 0
	}
}

func direction(slope, tolerance float64) models.TrendDirection {
	switch {
	case math.Abs(slope) < tolerance || slope == 0:
		return models.TrendStable
	case slope > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}

func sortedRows(rows []models.FeatureRow) []models.FeatureRow {
	out := append([]models.FeatureRow(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func trailingWindow(rows []models.FeatureRow, span time.Duration) []models.FeatureRow {
	if len(rows) == 0 {
		return nil
	}
	cutoff := rows[len(rows)-1].Timestamp.Add(-span)
	i := sort.Search(len(rows), func(i int) bool { return !rows[i].Timestamp.Before(cutoff) })
	return rows[i:]
}

func tail(xs []float64, n int) []float64 {
	if len(xs) <= n {
		return xs
	}
	return xs[len(xs)-n:]
}
