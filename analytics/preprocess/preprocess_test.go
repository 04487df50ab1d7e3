package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday

func hourly(n int, f func(i int) (float64, float64, float64)) []models.Reading {
	out := make([]models.Reading, n)
	for i := range out {
		t, h, d := f(i)
		out[i] = models.Reading{Timestamp: start.Add(time.Duration(i) * time.Hour), Temperature: t, Humidity: h, DustLevel: d}
	}
	return out
}

func newTestPreprocessor() *Preprocessor {
	return New(DefaultConfig(), zap.NewNop())
}

func TestCleanRemovesOutliers(t *testing.T) {
	readings := hourly(10, func(i int) (float64, float64, float64) { return 21, 60, 30 })
	readings[2].Temperature = 60
	readings[4].Humidity = -5
	readings[6].DustLevel = 2000
	readings[8].Temperature = -10 // on the boundary, kept

	result, err := newTestPreprocessor().Clean(readings)
	require.NoError(t, err)
	require.Nil(t, result.Insufficient)

	assert.Equal(t, 3, result.OutliersRemoved)
	assert.Equal(t, len(readings)-len(result.Rows), result.OutliersRemoved)
	for _, row := range result.Rows {
		for _, m := range models.AllMetrics {
			assert.True(t, SensorBounds[m].Contains(row.Value(m)), "%s=%v out of bounds", m, row.Value(m))
		}
	}
}

func TestCleanIsIdempotent(t *testing.T) {
	readings := hourly(60, func(i int) (float64, float64, float64) {
		return 20 + math.Sin(float64(i)/4), 60 + float64(i%5), 30 + float64(i%7)
	})
	p := newTestPreprocessor()

	first, err := p.Clean(readings)
	require.NoError(t, err)
	second, err := p.Clean(models.Readings(first.Rows))
	require.NoError(t, err)

	assert.Equal(t, first.Rows, second.Rows)
	assert.Zero(t, second.OutliersRemoved)
	assert.Zero(t, second.DuplicatesDropped)
}

func TestCleanSortsAndDeduplicates(t *testing.T) {
	readings := hourly(4, func(i int) (float64, float64, float64) { return float64(20 + i), 60, 30 })
	shuffled := []models.Reading{readings[3], readings[1], readings[0], readings[2]}
	dup := readings[1]
	dup.Temperature = 23.5
	shuffled = append(shuffled, dup)

	result, err := newTestPreprocessor().Clean(shuffled)
	require.NoError(t, err)

	require.Len(t, result.Rows, 4)
	assert.Equal(t, 1, result.DuplicatesDropped)
	assert.Zero(t, result.OutliersRemoved)
	assert.Equal(t, 1, result.Removed)
	for i, row := range result.Rows {
		assert.Equal(t, float64(20+i), row.Temperature)
	}
}

func TestCleanKeepsValidDuplicateAfterOutlier(t *testing.T) {
	readings := hourly(5, func(i int) (float64, float64, float64) { return 21, 60, 30 })
	bad := readings[2]
	bad.Temperature = 99
	input := append([]models.Reading{}, readings[:2]...)
	input = append(input, bad)
	input = append(input, readings[2:]...)

	result, err := newTestPreprocessor().Clean(input)
	require.NoError(t, err)

	require.Len(t, result.Rows, 5)
	assert.Equal(t, start.Add(2*time.Hour), result.Rows[2].Timestamp)
	assert.Equal(t, 21.0, result.Rows[2].Temperature)
	assert.Equal(t, 1, result.OutliersRemoved)
	assert.Zero(t, result.DuplicatesDropped)
}

func TestCleanRemovedCount(t *testing.T) {
	readings := hourly(12, func(i int) (float64, float64, float64) { return 21, 60, 30 })
	readings[1].DustLevel = 5000
	readings[7].Humidity = 120
	input := append([]models.Reading{}, readings...)
	input = append(input, readings[3], readings[3], readings[9])
	outlierDup := readings[5]
	outlierDup.Temperature = -40
	input = append(input, outlierDup)

	result, err := newTestPreprocessor().Clean(input)
	require.NoError(t, err)

	assert.Equal(t, 3, result.OutliersRemoved)
	assert.Equal(t, 3, result.DuplicatesDropped)
	assert.Equal(t, len(input)-len(result.Rows), result.Removed)
	assert.Equal(t, result.OutliersRemoved+result.DuplicatesDropped, result.Removed)
	assert.Len(t, result.Rows, 10)
}

func TestCleanFillsGaps(t *testing.T) {
	nan := math.NaN()
	readings := hourly(12, func(i int) (float64, float64, float64) { return float64(10 + i), 60, 30 })
	readings[0].Humidity = nan // leading, backward-filled
	readings[1].Humidity = nan
	readings[3].Temperature = nan // short interior gap, forward-filled
	readings[4].Temperature = nan
	for i := 6; i <= 9; i++ { // long interior gap, interpolated
		readings[i].DustLevel = nan
	}
	readings[5].DustLevel = 20
	readings[10].DustLevel = 70
	readings[11].DustLevel = nan // trailing, forward-filled

	result, err := newTestPreprocessor().Clean(readings)
	require.NoError(t, err)
	rows := result.Rows
	require.Len(t, rows, 12)

	assert.Equal(t, 60.0, rows[0].Humidity)
	assert.Equal(t, 60.0, rows[1].Humidity)
	assert.Equal(t, 12.0, rows[3].Temperature)
	assert.Equal(t, 12.0, rows[4].Temperature)
	assert.InDelta(t, 30.0, rows[6].DustLevel, 1e-9)
	assert.InDelta(t, 60.0, rows[9].DustLevel, 1e-9)
	assert.Equal(t, 70.0, rows[11].DustLevel)

	assert.Equal(t, 2, result.Filled[models.MetricTemperature])
	assert.Equal(t, 2, result.Filled[models.MetricHumidity])
	assert.Equal(t, 5, result.Filled[models.MetricDust])
}

func TestCleanAddsFeatures(t *testing.T) {
	readings := hourly(30, func(i int) (float64, float64, float64) { return float64(i), 50, 10 })
	readings = append(readings, models.Reading{Timestamp: time.Date(2024, 1, 6, 15, 0, 0, 0, time.UTC), Temperature: 40, Humidity: 50, DustLevel: 10})

	result, err := newTestPreprocessor().Clean(readings)
	require.NoError(t, err)
	rows := result.Rows

	assert.Equal(t, 0, rows[0].Hour)
	assert.Equal(t, 0, rows[0].DayOfWeek)
	assert.False(t, rows[0].IsWeekend)
	assert.Equal(t, 1, rows[0].Month)
	assert.Equal(t, models.MetricTriple{}, rows[0].ChangeRate, "first row change rate is zero")

	assert.Equal(t, 1.0, rows[5].ChangeRate.Temperature)
	assert.InDelta(t, 2.5, rows[5].Rolling.Temperature, 1e-12)   // mean of 0..5
	assert.InDelta(t, 17.5, rows[29].Rolling.Temperature, 1e-12) // mean of 6..29

	last := rows[len(rows)-1]
	assert.Equal(t, 5, last.DayOfWeek)
	assert.True(t, last.IsWeekend)
	assert.Equal(t, 15, last.Hour)
}

func TestCleanErrors(t *testing.T) {
	p := newTestPreprocessor()

	result, err := p.Clean(nil)
	require.NoError(t, err)
	require.NotNil(t, result.Insufficient)
	assert.Equal(t, "preprocess", result.Insufficient.Stage)

	readings := hourly(3, func(i int) (float64, float64, float64) { return 20, 60, 30 })
	readings[1].Timestamp = time.Time{}
	_, err = p.Clean(readings)
	assert.ErrorIs(t, err, models.ErrMissingTimestamp)
	assert.Contains(t, err.Error(), "reading 1")

	readings = hourly(3, func(i int) (float64, float64, float64) { return 20, 60, math.NaN() })
	_, err = p.Clean(readings)
	assert.ErrorIs(t, err, ErrNoValues)
	assert.Contains(t, err.Error(), "dust_level")

	readings = hourly(2, func(i int) (float64, float64, float64) { return 80, 60, 30 })
	result, err = p.Clean(readings)
	require.NoError(t, err)
	assert.NotNil(t, result.Insufficient)
	assert.Equal(t, 2, result.OutliersRemoved)
}

func TestFeaturesForPrediction(t *testing.T) {
	rows := []models.FeatureRow{{
		Reading:    models.Reading{Temperature: 21, Humidity: math.NaN(), DustLevel: 30},
		Hour:       5,
		DayOfWeek:  6,
		Month:      3,
		IsWeekend:  true,
		Rolling:    models.MetricTriple{Temperature: 20, Humidity: 61, DustLevel: 29},
		ChangeRate: models.MetricTriple{Temperature: 0.5},
	}}

	m := FeaturesForPrediction(rows)
	r, c := m.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, len(FeatureColumns), c)
	assert.Equal(t, []float64{21, 0, 30, 5, 6, 3, 1, 20, 61, 29, 0.5, 0, 0}, mat.Row(nil, 0, m))

	assert.Nil(t, FeaturesForPrediction(nil))
}

func TestNormalize(t *testing.T) {
	m := mat.NewDense(4, 3, []float64{
		1, 10, 5,
		2, 20, 5,
		3, 30, 5,
		4, 40, 5,
	})

	norm, params, err := Normalize(m)
	require.NoError(t, err)

	col := mat.Col(nil, 0, norm)
	assert.InDelta(t, 0, col[0]+col[1]+col[2]+col[3], 1e-12)
	assert.InDelta(t, 1.118033989, params.Scale[0], 1e-9)
	assert.Equal(t, 1.0, params.Scale[2], "constant column keeps unit scale")
	assert.Equal(t, []float64{0, 0, 0, 0}, mat.Col(nil, 2, norm))

	back, err := params.Inverse(norm)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(m, back, 1e-12))

	again, err := params.Apply(m)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(norm, again, 1e-12))

	_, _, err = Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptyMatrix)
	_, err = params.Apply(mat.NewDense(1, 2, nil))
	assert.Error(t, err)
}
