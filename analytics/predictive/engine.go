// Package predictive computes trends, short-horizon forecasts, storage
// quality and energy efficiency scores, and rule-based optimization actions.
package predictive

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// Range is the optimal band of a metric
type Range struct {
	Min, Max, Ideal float64
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r Range) String() string { return fmt.Sprintf("%g-%g", r.Min, r.Max) }

// Thresholds are the forecast risk cutoffs of a metric
type Thresholds struct {
	Critical, Warning float64
}

var (
	OptimalRanges = map[models.Metric]Range{
		models.MetricTemperature: {Min: 18, Max: 25, Ideal: 21.5},
		models.MetricHumidity:    {Min: 55, Max: 70, Ideal: 62.5},
		models.MetricDust:        {Min: 0, Max: 50, Ideal: 25},
	}

	RiskThresholds = map[models.Metric]Thresholds{
		models.MetricTemperature: {Critical: 30, Warning: 27},
		models.MetricHumidity:    {Critical: 80, Warning: 75},
		models.MetricDust:        {Critical: 100, Warning: 75},
	}

	qualityWeights = map[models.Metric]float64{
		models.MetricTemperature: 0.4,
		models.MetricHumidity:    0.4,
		models.MetricDust:        0.2,
	}
)

type Config struct {
	WindowDays int
	HoursAhead int
}

func DefaultConfig() Config {
	return Config{WindowDays: 7, HoursAhead: 24}
}

type Engine struct {
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

func New(cfg Config, logger *zap.Logger) *Engine {
	def := DefaultConfig()
	if cfg.WindowDays < 1 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.HoursAhead < 1 {
		cfg.HoursAhead = def.HoursAhead
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger, now: time.Now}
}

// AssessRisk classifies a value: risk thresholds first, then the optimal band
func (e *Engine) AssessRisk(m models.Metric, value float64) models.RiskLevel {
	if t, ok := RiskThresholds[m]; ok {
		if value >= t.Critical {
			return models.RiskCritical
		}
		if value >= t.Warning {
			return models.RiskWarning
		}
	}
	r, ok := OptimalRanges[m]
	if !ok {
		return models.RiskUnknown
	}
	if r.Contains(value) {
		return models.RiskOptimal
	}
	return models.RiskSuboptimal
}

// StorageQualityScore blends per-metric closeness to the ideal into a 0-100 score
func (e *Engine) StorageQualityScore(c models.Conditions) models.QualityScore {
	result := models.QualityScore{
		IndividualScores: make(map[models.Metric]models.MetricScore),
		Timestamp:        e.now(),
	}

	total, weightSum := 0.0, 0.0
	for _, m := range models.AllMetrics {
		value, ok := c.Get(m)
		if !ok {
			continue
		}
		score := metricQuality(OptimalRanges[m], value)
		result.IndividualScores[m] = models.MetricScore{
			Score:        stats.Clamp(score, 0, 100),
			Status:       e.AssessRisk(m, value),
			OptimalRange: OptimalRanges[m].String(),
			CurrentValue: value,
		}
		total += score * qualityWeights[m]
		weightSum += qualityWeights[m]
	}

	if weightSum == 0 {
		result.Insufficient = models.NewInsufficientData("storage_quality", "no metric values in conditions", 1, 0)
		result.Grade = stats.Grade(0)
		return result
	}
	overall := total / weightSum
	result.OverallScore = stats.Clamp(overall, 0, 100)
	result.Grade = stats.Grade(overall)
	return result
}

// metricQuality is 100 at the ideal, 80 at the band edge, and loses 10 per unit outside
func metricQuality(r Range, value float64) float64 {
	switch {
	case r.Contains(value):
		halfRange := (r.Max - r.Min) / 2
		return 100 - math.Abs(value-r.Ideal)/halfRange*20
	case value < r.Min:
		return math.Max(0, 80-(r.Min-value)*10)
	default:
		return math.Max(0, 80-(value-r.Max)*10)
	}
}
