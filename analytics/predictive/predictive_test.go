package predictive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func series(n int, f func(i int) (float64, float64, float64)) []models.FeatureRow {
	rows := make([]models.FeatureRow, n)
	for i := range rows {
		t, h, d := f(i)
		ts := start.Add(time.Duration(i) * time.Hour)
		rows[i] = models.FeatureRow{
			Reading: models.Reading{Timestamp: ts, Temperature: t, Humidity: h, DustLevel: d},
			Hour:    ts.Hour(),
			Month:   int(ts.Month()),
		}
	}
	return rows
}

func constant(n int, t, h, d float64) []models.FeatureRow {
	return series(n, func(int) (float64, float64, float64) { return t, h, d })
}

func newTestEngine() *Engine {
	e := New(DefaultConfig(), zap.NewNop())
	e.now = func() time.Time { return start }
	return e
}

func TestAssessRisk(t *testing.T) {
	e := newTestEngine()
	tests := []struct {
		metric models.Metric
		value  float64
		want   models.RiskLevel
	}{
		{models.MetricTemperature, 31, models.RiskCritical},
		{models.MetricTemperature, 30, models.RiskCritical},
		{models.MetricTemperature, 27.5, models.RiskWarning},
		{models.MetricTemperature, 26, models.RiskSuboptimal},
		{models.MetricTemperature, 21, models.RiskOptimal},
		{models.MetricTemperature, 10, models.RiskSuboptimal},
		{models.MetricHumidity, 76, models.RiskWarning},
		{models.MetricHumidity, 50, models.RiskSuboptimal},
		{models.MetricDust, 100, models.RiskCritical},
		{models.MetricDust, 60, models.RiskSuboptimal},
		{models.Metric("pressure"), 1, models.RiskUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, e.AssessRisk(tt.metric, tt.value), "%s=%v", tt.metric, tt.value)
	}
}

func TestStorageQualityScoreAtIdeal(t *testing.T) {
	q := newTestEngine().StorageQualityScore(models.NewConditions(21.5, 62.5, 25))

	require.Nil(t, q.Insufficient)
	assert.Equal(t, 100.0, q.OverallScore)
	assert.Equal(t, "A", q.Grade)
	assert.Equal(t, start, q.Timestamp)
	for _, m := range models.AllMetrics {
		assert.Equal(t, 100.0, q.IndividualScores[m].Score, m)
		assert.Equal(t, models.RiskOptimal, q.IndividualScores[m].Status, m)
	}
	assert.Equal(t, "18-25", q.IndividualScores[models.MetricTemperature].OptimalRange)
	assert.Equal(t, "0-50", q.IndividualScores[models.MetricDust].OptimalRange)
}

func TestStorageQualityScoreAtBounds(t *testing.T) {
	e := newTestEngine()

	upper := e.StorageQualityScore(models.NewConditions(25, 70, 50))
	lower := e.StorageQualityScore(models.NewConditions(18, 55, 0))
	for _, q := range []models.QualityScore{upper, lower} {
		for _, m := range models.AllMetrics {
			assert.InDelta(t, 80.0, q.IndividualScores[m].Score, 1e-9, m)
		}
		assert.InDelta(t, 80.0, q.OverallScore, 1e-9)
		assert.Equal(t, "B", q.Grade)
	}
}

func TestStorageQualityScoreOutsideBand(t *testing.T) {
	temp := 26.5
	q := newTestEngine().StorageQualityScore(models.Conditions{Temperature: &temp})

	require.Nil(t, q.Insufficient)
	assert.Len(t, q.IndividualScores, 1)
	assert.InDelta(t, 65.0, q.IndividualScores[models.MetricTemperature].Score, 1e-9)
	assert.Equal(t, models.RiskSuboptimal, q.IndividualScores[models.MetricTemperature].Status)
	assert.InDelta(t, 65.0, q.OverallScore, 1e-9)
	assert.Equal(t, "D", q.Grade)

	far := newTestEngine().StorageQualityScore(models.NewConditions(45, 62.5, 25))
	assert.Zero(t, far.IndividualScores[models.MetricTemperature].Score)
	assert.InDelta(t, 60.0, far.OverallScore, 1e-9)
}

func TestStorageQualityScoreNoValues(t *testing.T) {
	q := newTestEngine().StorageQualityScore(models.Conditions{})
	require.NotNil(t, q.Insufficient)
	assert.Zero(t, q.OverallScore)
	assert.Equal(t, "F", q.Grade)
}

func TestForecastIncreasingSeries(t *testing.T) {
	rows := series(48, func(i int) (float64, float64, float64) {
		return 20 + 0.01*float64(i), 60 + 0.01*float64(i), 30 + 0.01*float64(i)
	})

	// latest reading is at 23:00, so seven hours ahead lands on 06:00 where the diurnal term is zero
	report := newTestEngine().Forecast(rows, 7)
	require.True(t, report.OK())
	require.Len(t, report.Metrics, 3)

	for _, m := range models.AllMetrics {
		f := report.Metrics[m]
		movingAvg := models.MetricValues(rows, m)[47] - 0.115
		assert.GreaterOrEqual(t, f.ForecastValue, movingAvg, m)
		assert.InDelta(t, movingAvg+0.07, f.ForecastValue, 1e-9, m)
		assert.Equal(t, models.TrendIncreasing, f.Trend, m)
		assert.Equal(t, 7, f.HoursAhead)
		assert.InDelta(t, models.MetricValues(rows, m)[47], f.CurrentValue, 1e-12)
	}
	assert.Equal(t, models.RiskOptimal, report.Metrics[models.MetricTemperature].RiskLevel)
}

func TestForecastDiurnalAdjustment(t *testing.T) {
	rows := constant(24, 20, 60, 30)

	report := newTestEngine().Forecast(rows, 1) // 23:00 + 1h is midnight
	require.True(t, report.OK())

	temp := report.Metrics[models.MetricTemperature]
	assert.InDelta(t, 18.0, temp.ForecastValue, 1e-9)
	assert.Equal(t, 1.0, temp.Confidence)
	assert.Equal(t, models.TrendStable, temp.Trend)
	assert.InDelta(t, 63.0, report.Metrics[models.MetricHumidity].ForecastValue, 1e-9)
	assert.InDelta(t, 30.0, report.Metrics[models.MetricDust].ForecastValue, 1e-9)
}

func TestForecastCriticalRisk(t *testing.T) {
	rows := constant(24, 29, 60, 30)

	report := newTestEngine().Forecast(rows, 13) // lands on 12:00, the diurnal peak
	f := report.Metrics[models.MetricTemperature]
	assert.InDelta(t, 31.0, f.ForecastValue, 1e-9)
	assert.Equal(t, models.RiskCritical, f.RiskLevel)
}

func TestForecastConfidenceFloor(t *testing.T) {
	rows := series(24, func(i int) (float64, float64, float64) {
		if i%2 == 0 {
			return 1, 60, 30
		}
		return 39, 60, 30
	})
	f := newTestEngine().Forecast(rows, 24).Metrics[models.MetricTemperature]
	assert.Equal(t, 0.5, f.Confidence)

	zero := newTestEngine().Forecast(constant(24, 20, 60, 0), 24).Metrics[models.MetricDust]
	assert.Equal(t, 0.5, zero.Confidence)
}

func TestForecastInsufficient(t *testing.T) {
	report := newTestEngine().Forecast(constant(23, 20, 60, 30), 24)
	require.False(t, report.OK())
	assert.Equal(t, 24, report.Insufficient.Required)
	assert.Equal(t, 23, report.Insufficient.Got)
	assert.Equal(t, 24, report.HoursAhead)
}

func TestAnalyzeTrendsWindowTrailsLatestReading(t *testing.T) {
	rows := series(240, func(i int) (float64, float64, float64) { return 20 + 0.05*float64(i), 60, 30 })

	report := newTestEngine().AnalyzeTrends(rows, 7)
	require.True(t, report.OK())

	temp := report.Metrics[models.MetricTemperature]
	assert.Equal(t, 169, temp.DataPoints)
	assert.Equal(t, models.TrendIncreasing, temp.Direction)
	assert.InDelta(t, 0.05, temp.Slope, 1e-9)
	assert.InDelta(t, 20+0.05*71, temp.MinValue, 1e-9)
	assert.InDelta(t, 20+0.05*239, temp.MaxValue, 1e-9)

	hum := report.Metrics[models.MetricHumidity]
	assert.Equal(t, models.TrendStable, hum.Direction)
	assert.Zero(t, hum.ChangePercent)
	assert.Zero(t, hum.StdDeviation)
}

func TestAnalyzeTrendsChangePercent(t *testing.T) {
	e := newTestEngine()
	ramp := func(i int) (float64, float64, float64) { return 10 + float64(i), 60, 30 }

	// below 48 samples the older window is the whole series
	short := e.AnalyzeTrends(series(20, ramp), 7).Metrics[models.MetricTemperature]
	assert.Zero(t, short.ChangePercent)
	assert.InDelta(t, 19.5, short.CurrentAverage, 1e-9)

	mid := e.AnalyzeTrends(series(30, ramp), 7).Metrics[models.MetricTemperature]
	assert.InDelta(t, (27.5-24.5)/24.5*100, mid.ChangePercent, 1e-9)

	long := e.AnalyzeTrends(series(48, ramp), 7).Metrics[models.MetricTemperature]
	assert.InDelta(t, (45.5-21.5)/21.5*100, long.ChangePercent, 1e-9)
}

func TestAnalyzeTrendsEmpty(t *testing.T) {
	report := newTestEngine().AnalyzeTrends(nil, 0)
	require.False(t, report.OK())
	assert.Equal(t, 7, report.WindowDays)
	assert.Empty(t, report.Metrics)
}

func TestEnergyEfficiencyScore(t *testing.T) {
	e := newTestEngine()

	steady := e.EnergyEfficiencyScore(constant(30, 21, 60, 30))
	require.Nil(t, steady.Insufficient)
	assert.Equal(t, 100.0, steady.OverallEfficiencyScore)
	assert.Equal(t, "A", steady.Grade)
	assert.Equal(t, "Excellent - Very stable conditions with minimal energy waste", steady.Interpretation)
	assert.Len(t, steady.StabilityScores, 2)

	zeroMean := e.EnergyEfficiencyScore(constant(24, 0, 60, 30))
	assert.Zero(t, zeroMean.StabilityScores[models.MetricTemperature])
	assert.Equal(t, 50.0, zeroMean.OverallEfficiencyScore)
	assert.Equal(t, "F", zeroMean.Grade)
	assert.Equal(t, "Critical - Very unstable conditions, major efficiency issues", zeroMean.Interpretation)

	short := e.EnergyEfficiencyScore(constant(23, 21, 60, 30))
	require.NotNil(t, short.Insufficient)
	assert.Equal(t, 24, short.Insufficient.Required)
}

func TestInterpretEfficiencyBands(t *testing.T) {
	assert.Equal(t, "Good - Stable conditions with reasonable energy usage", interpretEfficiency(85))
	assert.Equal(t, "Fair - Some fluctuations, room for efficiency improvements", interpretEfficiency(70))
	assert.Equal(t, "Poor - Significant fluctuations, high energy usage likely", interpretEfficiency(60))
}

func TestOptimizationRecommendations(t *testing.T) {
	forecasts := map[models.Metric]models.Forecast{
		models.MetricTemperature: {RiskLevel: models.RiskCritical, HoursAhead: 12},
	}
	trends := map[models.Metric]models.TrendSummary{
		models.MetricHumidity: {Direction: models.TrendIncreasing, ChangePercent: 12.5},
		models.MetricDust:     {Direction: models.TrendIncreasing, ChangePercent: 8},
	}

	recs := newTestEngine().OptimizationRecommendations(models.NewConditions(26.5, 72.3, 60), forecasts, trends)

	var actions []string
	for _, r := range recs {
		actions = append(actions, r.Action)
	}
	assert.Equal(t, []string{"immediate_intervention", "cooling", "dehumidification", "air_filtration", "trend_monitoring"}, actions)
	assert.Equal(t, models.PriorityUrgent, recs[0].Priority)
	assert.Equal(t, "Temperature forecast shows critical levels in 12 hours. Take immediate action.", recs[0].Message)
	assert.Equal(t, "Temperature is 26.5°C, above optimal range. Consider increasing ventilation or cooling.", recs[1].Message)
	assert.Equal(t, "air_quality", recs[3].Type)
	assert.Equal(t, "Humidity showing increasing trend (12.5% change). Monitor closely.", recs[4].Message)
}

func TestOptimizationRecommendationsBelowBand(t *testing.T) {
	recs := newTestEngine().OptimizationRecommendations(models.NewConditions(15, 50, 10), nil, nil)
	require.Len(t, recs, 2)
	assert.Equal(t, "heating", recs[0].Action)
	assert.Equal(t, "humidification", recs[1].Action)
	for _, r := range recs {
		assert.Equal(t, models.PriorityMedium, r.Priority)
	}

	assert.Empty(t, newTestEngine().OptimizationRecommendations(models.NewConditions(21, 60, 20), nil, nil))
}
