package recommend

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const (
	patternVariationLimit = 25.0
	stressShareLimit      = 15.0
	cyclingStdLimit       = 2.0
	anomalyRateLimit      = 5.0
)

// neutral set-points used when a current value is missing
const (
	defaultTemperature = 20.0
	defaultHumidity    = 60.0
)

func (e *Engine) coffeeRecommendations(in Input, _ time.Time) []models.Recommendation {
	if in.Profile == nil {
		return nil
	}
	profile := *in.Profile
	spec, coffee := e.kb.Coffee(profile.Type)
	processing := profile.Processing
	if processing == "" {
		processing = models.ProcessingWashed
	}
	months := profile.StorageMonths
	if months == 0 {
		months = spec.MaxStorageMonths
	}

	var recs []models.Recommendation
	add := func(category string, p models.Priority, action, message, details, impact string) {
		recs = append(recs, models.Recommendation{
			Type:             "coffee_specific",
			Category:         category,
			Priority:         p,
			Action:           action,
			Message:          message,
			TechnicalDetails: details,
			ExpectedImpact:   impact,
			CoffeeSpecific:   true,
		})
	}

	temp := in.Conditions.GetOr(models.MetricTemperature, defaultTemperature)
	tempBand := spec.Temperature
	tempDetails := fmt.Sprintf("Current: %g°C, Optimal range: %g-%g°C", temp, tempBand.Min, tempBand.Max)
	switch {
	case temp < tempBand.Min:
		add("temperature", models.PriorityHigh, "increase_temperature",
			fmt.Sprintf("Temperature too low for %s coffee. Increase to %g°C for optimal preservation.", coffee, tempBand.Ideal),
			tempDetails,
			fmt.Sprintf("Improved %s bean preservation and flavor retention", coffee))
	case temp > tempBand.Max:
		add("temperature", models.PriorityHigh, "decrease_temperature",
			fmt.Sprintf("Temperature too high for %s coffee. Reduce to %g°C to prevent degradation.", coffee, tempBand.Ideal),
			tempDetails,
			fmt.Sprintf("Prevent %s bean deterioration and maintain quality", coffee))
	}

	humidity := in.Conditions.GetOr(models.MetricHumidity, defaultHumidity)
	humBand := spec.Humidity
	humDetails := fmt.Sprintf("Processing: %s, Current: %g%%, Optimal: %g%%", processing, humidity, humBand.Ideal)
	switch tolerance := e.kb.Processing(processing).HumidityTolerance; {
	case humidity > humBand.Max && tolerance == ToleranceLow:
		add("humidity", models.PriorityUrgent, "reduce_humidity",
			fmt.Sprintf("%s-processed coffee is sensitive to humidity. Reduce to %g%% immediately.", title(string(processing)), humBand.Ideal),
			humDetails,
			"Prevent mold growth and maintain coffee quality for humidity-sensitive processing method")
	case humidity > humBand.Max:
		add("humidity", models.PriorityHigh, "reduce_humidity",
			fmt.Sprintf("Humidity above the %s band. Reduce to %g%% for %s-processed beans.", coffee, humBand.Ideal, title(string(processing))),
			humDetails,
			"Limit moisture uptake and mold risk")
	case humidity < humBand.Min:
		add("humidity", models.PriorityMedium, "increase_humidity",
			fmt.Sprintf("Humidity too low for %s coffee. Raise to %g%% to prevent beans drying out.", coffee, humBand.Ideal),
			humDetails,
			"Prevent weight loss and brittle beans")
	}

	if months > spec.MaxStorageMonths {
		add("inventory", models.PriorityMedium, "inventory_rotation",
			fmt.Sprintf("Coffee has been stored for %d months. Consider rotation for %s (recommended max: %d months).", months, coffee, spec.MaxStorageMonths),
			fmt.Sprintf("Storage duration: %d months, Recommended max: %d months", months, spec.MaxStorageMonths),
			"Maintain coffee freshness and prevent quality degradation")
	}

	if c, ok := e.kb.Container(profile.Container); ok && c.MoistureProtection == ToleranceLow && humidity > humBand.Max {
		add("storage", models.PriorityMedium, "add_moisture_barrier",
			fmt.Sprintf("%s offer little moisture protection at %g%% humidity. Line or move the lot to hermetic storage.", title(string(profile.Container)), humidity),
			fmt.Sprintf("Container: %s, Moisture protection: %s, Breathability: %s", profile.Container, c.MoistureProtection, c.Breathability),
			"Reduce moisture exchange between beans and storage air")
	}
	return recs
}

func (e *Engine) predictiveRecommendations(in Input, _ time.Time) []models.Recommendation {
	var recs []models.Recommendation
	for _, m := range models.AllMetrics {
		f, ok := in.Forecasts[m]
		if !ok || (f.RiskLevel != models.RiskWarning && f.RiskLevel != models.RiskCritical) {
			continue
		}
		priority, actionTime := models.PriorityHigh, fmt.Sprintf("within %d hours", f.HoursAhead)
		if f.RiskLevel == models.RiskCritical {
			priority, actionTime = models.PriorityUrgent, "immediate"
		}
		confidence := f.Confidence
		recs = append(recs, models.Recommendation{
			Type:     "predictive",
			Category: string(m),
			Priority: priority,
			Action:   fmt.Sprintf("preventive_%s_adjustment", m),
			Message: fmt.Sprintf("Forecast shows %s will reach %s levels (%.1f) in %d hours. Take %s action.",
				m, f.RiskLevel, f.ForecastValue, f.HoursAhead, actionTime),
			TechnicalDetails: fmt.Sprintf("Predicted: %.1f, Confidence: %.1f%%, Time frame: %dh", f.ForecastValue, confidence*100, f.HoursAhead),
			ExpectedImpact:   fmt.Sprintf("Prevent %s %s conditions and maintain storage quality", f.RiskLevel, m),
			Confidence:       &confidence,
			Predictive:       true,
		})
	}
	return recs
}

func (e *Engine) patternRecommendations(in Input, _ time.Time) []models.Recommendation {
	var recs []models.Recommendation
	for _, m := range models.AllMetrics {
		p, ok := in.Patterns.Daily[m]
		if !ok || p.VariationCoefficient <= patternVariationLimit {
			continue
		}
		hours := hourList(p.StableHours)
		recs = append(recs, models.Recommendation{
			Type:     "pattern_based",
			Category: "scheduling",
			Priority: models.PriorityMedium,
			Action:   "optimize_hvac_schedule",
			Message: fmt.Sprintf("High %s variation detected. Adjust HVAC scheduling around peak hour (%d:00) and utilize stable hours %s.",
				m, p.PeakHour, hours),
			TechnicalDetails: fmt.Sprintf("Variation coefficient: %.1f%%, Peak hour: %d, Stable hours: %s", p.VariationCoefficient, p.PeakHour, hours),
			ExpectedImpact:   fmt.Sprintf("Reduce %s fluctuations and improve storage stability", m),
			PatternBased:     true,
		})
	}

	for _, p := range in.Patterns.Operational.Patterns {
		if p.Type != models.ArchetypeHighStress || p.Percentage <= stressShareLimit {
			continue
		}
		recs = append(recs, models.Recommendation{
			Type:             "pattern_based",
			Category:         "operational",
			Priority:         models.PriorityHigh,
			Action:           "reduce_stress_conditions",
			Message:          fmt.Sprintf("High-stress operational pattern detected %.1f%% of the time. Review and adjust system parameters.", p.Percentage),
			TechnicalDetails: fmt.Sprintf("Pattern type: %s, Frequency: %.1f%%", p.Type, p.Percentage),
			ExpectedImpact:   "Reduce equipment stress and improve coffee storage conditions",
			PatternBased:     true,
		})
	}
	return recs
}

func (e *Engine) seasonalRecommendations(in Input, now time.Time) []models.Recommendation {
	season := models.SeasonForMonth(int(now.Month()))
	adj := e.kb.Seasonal(season)
	name := strings.ToLower(string(season))

	var recs []models.Recommendation
	if adj.TempOffset != 0 {
		temp := in.Conditions.GetOr(models.MetricTemperature, defaultTemperature)
		recs = append(recs, models.Recommendation{
			Type:             "seasonal",
			Category:         "temperature",
			Priority:         models.PriorityMedium,
			Action:           fmt.Sprintf("seasonal_%s_temp_adjustment", name),
			Message:          fmt.Sprintf("Apply %s temperature adjustment: %+.1f°C from current settings for optimal seasonal storage.", name, adj.TempOffset),
			TechnicalDetails: fmt.Sprintf("Season: %s, Current temp: %g°C, Suggested adjustment: %+.1f°C", name, temp, adj.TempOffset),
			ExpectedImpact:   fmt.Sprintf("Optimize storage conditions for %s weather patterns", name),
			Seasonal:         true,
		})
	}
	if adj.HumidityOffset != 0 {
		humidity := in.Conditions.GetOr(models.MetricHumidity, defaultHumidity)
		recs = append(recs, models.Recommendation{
			Type:             "seasonal",
			Category:         "humidity",
			Priority:         models.PriorityMedium,
			Action:           fmt.Sprintf("seasonal_%s_humidity_adjustment", name),
			Message:          fmt.Sprintf("Apply %s humidity adjustment: %+.1f%% from current settings for seasonal optimization.", name, adj.HumidityOffset),
			TechnicalDetails: fmt.Sprintf("Season: %s, Current humidity: %g%%, Suggested adjustment: %+.1f%%", name, humidity, adj.HumidityOffset),
			ExpectedImpact:   fmt.Sprintf("Adapt to %s humidity patterns and maintain optimal storage", name),
			Seasonal:         true,
		})
	}
	return recs
}

func (e *Engine) energyRecommendations(in Input, now time.Time) []models.Recommendation {
	var recs []models.Recommendation
	for _, m := range models.AllMetrics {
		t, ok := in.Trends[m]
		if !ok || t.StdDeviation <= cyclingStdLimit {
			continue
		}
		recs = append(recs, models.Recommendation{
			Type:             "energy_optimization",
			Category:         "efficiency",
			Priority:         models.PriorityMedium,
			Action:           "reduce_system_cycling",
			Message:          fmt.Sprintf("High %s variation detected (σ=%.1f). Optimize system cycling to reduce energy consumption.", m, t.StdDeviation),
			TechnicalDetails: fmt.Sprintf("Standard deviation: %.1f, Trend: %s", t.StdDeviation, t.Direction),
			ExpectedImpact:   "Reduce energy consumption while maintaining storage quality",
			EnergyFocused:    true,
		})
	}

	if hour := now.Hour(); e.isNight(hour) {
		recs = append(recs, models.Recommendation{
			Type:             "energy_optimization",
			Category:         "scheduling",
			Priority:         models.PriorityLow,
			Action:           "implement_night_setback",
			Message:          "Consider implementing night setback schedules to reduce energy consumption during low-activity hours.",
			TechnicalDetails: fmt.Sprintf("Current time: %d:00, Night hours: %02d:00-%02d:00", hour, e.cfg.NightStartHour, e.cfg.NightEndHour),
			ExpectedImpact:   "Reduce overnight energy consumption by 15-25%",
			EnergyFocused:    true,
		})
	}
	return recs
}

func (e *Engine) maintenanceRecommendations(in Input, now time.Time) []models.Recommendation {
	var recs []models.Recommendation
	for _, m := range models.AllMetrics {
		a, ok := in.Patterns.Anomaly[m]
		if !ok || a.AnomalyPercentage <= anomalyRateLimit {
			continue
		}
		recs = append(recs, models.Recommendation{
			Type:               "maintenance",
			Category:           "preventive",
			Priority:           models.PriorityMedium,
			Action:             fmt.Sprintf("inspect_%s_system", m),
			Message:            fmt.Sprintf("High %s anomaly rate (%.1f%%) detected. Schedule system inspection and maintenance.", m, a.AnomalyPercentage),
			TechnicalDetails:   fmt.Sprintf("Anomaly rate: %.1f%%, Most common time: %d:00", a.AnomalyPercentage, a.MostCommonHour),
			ExpectedImpact:     "Prevent system failures and maintain consistent storage conditions",
			MaintenanceFocused: true,
		})
	}

	var season string
	switch now.Month() {
	case time.March:
		season = "spring"
	case time.September:
		season = "fall"
	}
	if season != "" {
		recs = append(recs, models.Recommendation{
			Type:               "maintenance",
			Category:           "seasonal",
			Priority:           models.PriorityMedium,
			Action:             season + "_maintenance_check",
			Message:            fmt.Sprintf("Schedule %s maintenance: filter replacement, system calibration, and performance optimization.", season),
			TechnicalDetails:   fmt.Sprintf("Season: %s, Recommended maintenance items: filters, sensors, HVAC components", season),
			ExpectedImpact:     "Ensure optimal system performance for upcoming season",
			MaintenanceFocused: true,
		})
	}
	return recs
}

func hourList(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = strconv.Itoa(h)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// title upper-cases the first letter of each underscore-separated word
func title(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
