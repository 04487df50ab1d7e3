package patterns

import (
	"math"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// minAnomalySamples is the sample count a metric must exceed before z-scores are trusted
const minAnomalySamples = 10

// AnomalyPatterns finds |z| above the threshold per metric and summarizes when
// they happen. Metrics without anomalies are omitted.
func (r *Recognizer) AnomalyPatterns(rows []models.FeatureRow) map[models.Metric]models.AnomalyPattern {
	out := make(map[models.Metric]models.AnomalyPattern)
	for _, m := range models.AllMetrics {
		var present []models.FeatureRow
		var values []float64
		for _, row := range rows {
			if v := row.Value(m); !math.IsNaN(v) {
				present = append(present, row)
				values = append(values, v)
			}
		}
		if len(values) <= minAnomalySamples {
			continue
		}

		var anomalous []float64
		hourly := make(map[int]int)
		daily := make(map[string]int)
		dayCounts := make([]int, len(dayNames))
		for i, z := range stats.ZScores(values) {
			if math.Abs(z) <= r.cfg.ZThreshold {
				continue
			}
			anomalous = append(anomalous, values[i])
			hourly[present[i].Hour]++
			daily[dayNames[present[i].DayOfWeek]]++
			dayCounts[present[i].DayOfWeek]++
		}
		if len(anomalous) == 0 {
			continue
		}

		lo, hi := stats.MinMax(anomalous)
		out[m] = models.AnomalyPattern{
			TotalAnomalies:      len(anomalous),
			AnomalyPercentage:   float64(len(anomalous)) / float64(len(values)) * 100,
			MostCommonHour:      mostCommonHour(hourly),
			MostCommonDay:       dayNames[argMax(dayCounts)],
			AnomalyValueRange:   [2]float64{lo, hi},
			AverageAnomalyValue: stats.Mean(anomalous),
			HourlyDistribution:  hourly,
			DailyDistribution:   daily,
		}
	}
	return out
}

// mostCommonHour breaks ties toward the earliest hour
func mostCommonHour(counts map[int]int) int {
	best, bestCount := 0, 0
	for h := 0; h < 24; h++ {
		if counts[h] > bestCount {
			best, bestCount = h, counts[h]
		}
	}
	return best
}

func argMax(xs []int) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}
