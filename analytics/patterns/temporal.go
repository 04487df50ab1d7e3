package patterns

import (
	"math"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// DailyPatterns profiles each metric by hour of day. Hourly statistics are rounded to 2 places.
func (r *Recognizer) DailyPatterns(rows []models.FeatureRow) map[models.Metric]models.DailyPattern {
	out := make(map[models.Metric]models.DailyPattern)
	for _, m := range models.AllMetrics {
		byHour := make(map[int][]float64)
		for _, row := range rows {
			v := row.Value(m)
			if math.IsNaN(v) {
				continue
			}
			byHour[row.Hour] = append(byHour[row.Hour], v)
		}
		if len(byHour) == 0 {
			continue
		}

		p := models.DailyPattern{
			HourlyAverages: make(map[int]float64, len(byHour)),
			HourlyStats:    make(map[int]models.HourlyStats, len(byHour)),
			StableHours:    []int{},
		}
		var hours []int
		var means, stds []float64
		for h := 0; h < 24; h++ {
			vals, ok := byHour[h]
			if !ok {
				continue
			}
			lo, hi := stats.MinMax(vals)
			hs := models.HourlyStats{
				Mean:  stats.Round(stats.Mean(vals), 2),
				Std:   stats.Round(stats.SampleStd(vals), 2),
				Min:   stats.Round(lo, 2),
				Max:   stats.Round(hi, 2),
				Count: len(vals),
			}
			p.HourlyStats[h] = hs
			p.HourlyAverages[h] = hs.Mean
			hours = append(hours, h)
			means = append(means, hs.Mean)
			stds = append(stds, hs.Std)
		}

		peak, low := 0, 0
		for i := range means {
			if means[i] > means[peak] {
				peak = i
			}
			if means[i] < means[low] {
				low = i
			}
		}
		p.PeakHour, p.PeakValue = hours[peak], means[peak]
		p.LowHour, p.LowValue = hours[low], means[low]
		p.DailyRange = means[peak] - means[low]
		if avg := stats.Mean(means); avg != 0 {
			p.VariationCoefficient = p.DailyRange / avg * 100
		}

		cutoff := stats.Quantile(0.25, stds)
		for i, s := range stds {
			if s < cutoff {
				p.StableHours = append(p.StableHours, hours[i])
			}
		}
		out[m] = p
	}
	return out
}

// WeeklyPatterns compares weekday and weekend levels with a pooled two-sample t-test.
// A metric is omitted when either group is empty.
func (r *Recognizer) WeeklyPatterns(rows []models.FeatureRow) map[models.Metric]models.WeeklyPattern {
	out := make(map[models.Metric]models.WeeklyPattern)
	for _, m := range models.AllMetrics {
		var weekday, weekend []float64
		byDay := make(map[int][]float64)
		for _, row := range rows {
			v := row.Value(m)
			if math.IsNaN(v) {
				continue
			}
			if row.IsWeekend {
				weekend = append(weekend, v)
			} else {
				weekday = append(weekday, v)
			}
			byDay[row.DayOfWeek] = append(byDay[row.DayOfWeek], v)
		}
		if len(weekday) == 0 || len(weekend) == 0 {
			continue
		}

		weekdayMean, weekendMean := stats.Mean(weekday), stats.Mean(weekend)
		_, p := stats.TTest(weekday, weekend)
		diff := weekendMean - weekdayMean

		daily := make(map[string]float64, len(byDay))
		for d, vals := range byDay {
			daily[dayNames[d]] = stats.Mean(vals)
		}

		strength := 0.0
		if weekdayMean != 0 {
			strength = math.Abs(diff) / weekdayMean
		}

		out[m] = models.WeeklyPattern{
			WeekdayAverage:        weekdayMean,
			WeekendAverage:        weekendMean,
			Difference:            diff,
			SignificantDifference: p < 0.05,
			PValue:                p,
			DailyAverages:         daily,
			PatternStrength:       strength,
		}
	}
	return out
}

// seasonOrder fixes the tie-break when two seasons share a mean
var seasonOrder = []models.Season{models.SeasonFall, models.SeasonSpring, models.SeasonSummer, models.SeasonWinter}

// SeasonalPatterns aggregates each metric by calendar season and month
func (r *Recognizer) SeasonalPatterns(rows []models.FeatureRow) map[models.Metric]models.SeasonalPattern {
	out := make(map[models.Metric]models.SeasonalPattern)
	for _, m := range models.AllMetrics {
		bySeason := make(map[models.Season][]float64)
		byMonth := make(map[int][]float64)
		for _, row := range rows {
			v := row.Value(m)
			if math.IsNaN(v) {
				continue
			}
			bySeason[models.SeasonForMonth(row.Month)] = append(bySeason[models.SeasonForMonth(row.Month)], v)
			byMonth[row.Month] = append(byMonth[row.Month], v)
		}
		if len(bySeason) == 0 {
			continue
		}

		p := models.SeasonalPattern{
			SeasonalAverages: make(map[models.Season]float64, len(bySeason)),
			MonthlyAverages:  make(map[int]float64, len(byMonth)),
			SeasonalStats:    make(map[models.Season]models.SeasonStats, len(bySeason)),
		}
		for month, vals := range byMonth {
			p.MonthlyAverages[month] = stats.Mean(vals)
		}

		first := true
		for _, s := range seasonOrder {
			vals, ok := bySeason[s]
			if !ok {
				continue
			}
			lo, hi := stats.MinMax(vals)
			ss := models.SeasonStats{
				Mean:  stats.Round(stats.Mean(vals), 2),
				Std:   stats.Round(stats.SampleStd(vals), 2),
				Min:   stats.Round(lo, 2),
				Max:   stats.Round(hi, 2),
				Count: len(vals),
			}
			p.SeasonalStats[s] = ss
			p.SeasonalAverages[s] = ss.Mean
			if first || ss.Mean > p.SeasonalAverages[p.HighestSeason] {
				p.HighestSeason = s
			}
			if first || ss.Mean < p.SeasonalAverages[p.LowestSeason] {
				p.LowestSeason = s
			}
			first = false
		}
		p.SeasonalRange = p.SeasonalAverages[p.HighestSeason] - p.SeasonalAverages[p.LowestSeason]
		out[m] = p
	}
	return out
}
