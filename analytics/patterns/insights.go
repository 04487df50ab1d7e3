package patterns

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const multipleMetrics = "multiple"

// GenerateInsights turns pattern summaries into narrative findings. Metrics
// are visited in fixed order so the output is stable.
func (r *Recognizer) GenerateInsights(
	daily map[models.Metric]models.DailyPattern,
	weekly map[models.Metric]models.WeeklyPattern,
	seasonal map[models.Metric]models.SeasonalPattern,
	operational models.OperationalReport,
) []models.Insight {
	insights := []models.Insight{}

	for _, m := range models.AllMetrics {
		p, ok := daily[m]
		if !ok {
			continue
		}
		if p.VariationCoefficient > 20 {
			severity := models.SeverityMedium
			if p.VariationCoefficient > 30 {
				severity = models.SeverityHigh
			}
			insights = append(insights, models.Insight{
				Type:     "daily_variation",
				Metric:   string(m),
				Severity: severity,
				Message: fmt.Sprintf("%s shows high daily variation (%.1f%%). Peak at %d:00, low at %d:00.",
					m.Title(), p.VariationCoefficient, p.PeakHour, p.LowHour),
				Recommendation: fmt.Sprintf("Consider adjusting HVAC scheduling around peak hours (%d:00) to reduce variation.", p.PeakHour),
			})
		}
		if len(p.StableHours) >= 6 {
			hours := make([]string, len(p.StableHours))
			for i, h := range p.StableHours {
				hours[i] = strconv.Itoa(h)
			}
			insights = append(insights, models.Insight{
				Type:           "stability_window",
				Metric:         string(m),
				Severity:       models.SeverityInfo,
				Message:        fmt.Sprintf("%s is most stable during hours: %s", m.Title(), strings.Join(hours, ", ")),
				Recommendation: "Schedule maintenance and inspections during stable hours to minimize disruption.",
			})
		}
	}

	for _, m := range models.AllMetrics {
		p, ok := weekly[m]
		if !ok {
			continue
		}
		if p.SignificantDifference && math.Abs(p.Difference) > 2 {
			insights = append(insights, models.Insight{
				Type:           "weekend_effect",
				Metric:         string(m),
				Severity:       models.SeverityMedium,
				Message:        fmt.Sprintf("%s differs significantly between weekdays and weekends (%.1f difference).", m.Title(), p.Difference),
				Recommendation: "Adjust weekend operational parameters to maintain consistency.",
			})
		}
	}

	for _, m := range models.AllMetrics {
		p, ok := seasonal[m]
		if !ok || len(p.SeasonalAverages) < 2 {
			continue
		}
		if p.SeasonalRange > 5 {
			insights = append(insights, models.Insight{
				Type:     "seasonal_variation",
				Metric:   string(m),
				Severity: models.SeverityMedium,
				Message: fmt.Sprintf("%s varies by %.1f between %s and %s.",
					m.Title(), p.SeasonalRange, p.HighestSeason, p.LowestSeason),
				Recommendation: fmt.Sprintf("Plan HVAC capacity ahead of %s to keep conditions within range.", p.HighestSeason),
			})
		}
	}

	for _, p := range operational.Patterns {
		switch {
		case p.Type == models.ArchetypeHighStress && p.Percentage > 20:
			insights = append(insights, models.Insight{
				Type:           "operational_concern",
				Metric:         multipleMetrics,
				Severity:       models.SeverityHigh,
				Message:        fmt.Sprintf("High-stress conditions occur %.1f%% of the time.", p.Percentage),
				Recommendation: "Review HVAC settings and consider system upgrades to reduce stress conditions.",
			})
		case p.Type == models.ArchetypeOptimal && p.Percentage > 60:
			insights = append(insights, models.Insight{
				Type:           "operational_success",
				Metric:         multipleMetrics,
				Severity:       models.SeverityInfo,
				Message:        fmt.Sprintf("Optimal conditions maintained %.1f%% of the time.", p.Percentage),
				Recommendation: "Current operational parameters are working well. Document settings for consistency.",
			})
		}
	}

	return insights
}
