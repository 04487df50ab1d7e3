package mltrain

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/preprocess"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Trees = 10
	cfg.IsolationTrees = 50
	return cfg
}

func diurnalRows(t *testing.T, n int) []models.FeatureRow {
	t.Helper()
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	readings := make([]models.Reading, n)
	for i := range readings {
		phase := 2 * math.Pi * float64(i%24) / 24
		readings[i] = models.Reading{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: 22 + 3*math.Sin(phase),
			Humidity:    60 - 5*math.Sin(phase),
			DustLevel:   30 + float64(i%7),
		}
	}
	result, err := preprocess.New(preprocess.DefaultConfig(), zap.NewNop()).Clean(readings)
	require.NoError(t, err)
	return result.Rows
}

func TestFitForestStepFunction(t *testing.T) {
	var X [][]float64
	var y []float64
	for i := 0; i < 100; i++ {
		X = append(X, []float64{float64(i), float64(i % 3)})
		if i < 50 {
			y = append(y, 0)
		} else {
			y = append(y, 10)
		}
	}

	forest := FitForest(X, y, ForestConfig{Trees: 20, MaxDepth: 4, MinSamplesSplit: 2, Seed: 42})

	assert.InDelta(t, 0, forest.Predict([]float64{10, 1}), 1)
	assert.InDelta(t, 10, forest.Predict([]float64{90, 1}), 1)
	assert.InDelta(t, 1.0, forest.Importances[0]+forest.Importances[1], 1e-9)
	assert.Greater(t, forest.Importances[0], 0.9)

	again := FitForest(X, y, ForestConfig{Trees: 20, MaxDepth: 4, MinSamplesSplit: 2, Seed: 42})
	assert.Equal(t, forest, again, "same seed grows identical forests")
}

func TestR2Score(t *testing.T) {
	assert.Equal(t, 1.0, r2Score([]float64{1, 2, 3}, []float64{1, 2, 3}))
	assert.InDelta(t, 0.0, r2Score([]float64{1, 2, 3}, []float64{2, 2, 2}), 1e-12)
	assert.Equal(t, 1.0, r2Score([]float64{5, 5}, []float64{5, 5}))
	assert.Equal(t, 0.0, r2Score([]float64{5, 5}, []float64{4, 6}))
	assert.InDelta(t, 0.5, meanSquaredError([]float64{1, 2}, []float64{2, 2}), 1e-12)
}

func TestTrainPredictionModels(t *testing.T) {
	rows := diurnalRows(t, 240)
	trainer := New(testConfig(), zap.NewNop())

	results, err := trainer.TrainPredictionModels(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, m := range models.AllMetrics {
		assert.True(t, results[m].ModelTrained, m)
	}
	assert.Greater(t, results[models.MetricTemperature].R2Score, 0.8)
	assert.Greater(t, results[models.MetricTemperature].CrossValScore, 0.5)

	metrics := trainer.Metrics()[models.MetricTemperature]
	assert.Equal(t, 48, metrics.TestRows)
	assert.Equal(t, 192, metrics.TrainRows)
	total := 0.0
	for _, name := range ModelFeatures {
		total += metrics.FeatureImportance[name]
	}
	assert.InDelta(t, 1.0, total, 1e-9)

	hour := 6
	pred := trainer.Predict(models.CurrentFeatures{
		Conditions: models.NewConditions(24.5, 55.5, 33),
		Hour:       &hour,
		Rolling:    map[models.Metric]float64{models.MetricTemperature: 22, models.MetricHumidity: 60, models.MetricDust: 33},
	})
	require.Len(t, pred, 3)
	assert.InDelta(t, 25, pred[models.MetricTemperature].PredictedValue, 1.5)
	assert.False(t, pred[models.MetricTemperature].Fallback)
	assert.InDelta(t, math.Max(0, math.Min(1, metrics.R2)), pred[models.MetricTemperature].Confidence, 1e-12)
}

func TestTrainPredictionModelsIsDeterministic(t *testing.T) {
	rows := diurnalRows(t, 120)

	a := New(testConfig(), zap.NewNop())
	b := New(testConfig(), zap.NewNop())
	ra, err := a.TrainPredictionModels(context.Background(), rows)
	require.NoError(t, err)
	rb, err := b.TrainPredictionModels(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, ra, rb)
}

func TestTrainPredictionModelsErrors(t *testing.T) {
	trainer := New(testConfig(), zap.NewNop())

	_, err := trainer.TrainPredictionModels(context.Background(), diurnalRows(t, 5))
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = trainer.TrainPredictionModels(ctx, diurnalRows(t, 48))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, trainer.HasModels())
}

func TestPredictWithoutModelsEchoesCurrentValue(t *testing.T) {
	trainer := New(testConfig(), zap.NewNop())
	temp := 23.4
	pred := trainer.Predict(models.CurrentFeatures{Conditions: models.Conditions{Temperature: &temp}})

	assert.Equal(t, Prediction{PredictedValue: 23.4, Confidence: 0, Fallback: true}, pred[models.MetricTemperature])
	assert.Equal(t, Prediction{PredictedValue: 0, Confidence: 0, Fallback: true}, pred[models.MetricHumidity])
}

func TestCurrentVectorDefaults(t *testing.T) {
	assert.Equal(t, []float64{12, 1, 1, 0, 20, 60, 50, 0, 0, 0}, currentVector(models.CurrentFeatures{}))

	weekend := true
	month := 7
	v := currentVector(models.CurrentFeatures{
		Conditions: models.NewConditions(26, 70, 40),
		Month:      &month,
		IsWeekend:  &weekend,
		ChangeRate: map[models.Metric]float64{models.MetricHumidity: -1.5},
	})
	assert.Equal(t, []float64{12, 1, 7, 1, 26, 70, 40, 0, -1.5, 0}, v)
}

func anomalyRows() []models.FeatureRow {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	var rows []models.FeatureRow
	for i := 0; i < 180; i++ {
		rows = append(rows, models.FeatureRow{Reading: models.Reading{
			Timestamp:   start.Add(time.Duration(i) * time.Hour),
			Temperature: 21 + float64(i%5)*0.2,
			Humidity:    60 + float64(i%7)*0.3,
			DustLevel:   30 + float64(i%3)*0.5,
		}})
	}
	for i := 0; i < 20; i++ {
		rows = append(rows, models.FeatureRow{Reading: models.Reading{
			Timestamp:   start.Add(time.Duration(180+i) * time.Hour),
			Temperature: 35 + float64(i),
			Humidity:    10 + float64(i)*4,
			DustLevel:   500 + float64(i)*20,
		}})
	}
	return rows
}

func TestTrainAnomalyDetector(t *testing.T) {
	trainer := New(testConfig(), zap.NewNop())
	assert.Empty(t, trainer.DetectAnomalies([]models.Reading{{Temperature: 49}}))
	assert.NotNil(t, trainer.DetectAnomalies(nil))

	summary, err := trainer.TrainAnomalyDetector(anomalyRows())
	require.NoError(t, err)
	assert.True(t, summary.ModelTrained)
	assert.InDelta(t, 10, summary.AnomalyPercentage, 3)

	flagged := trainer.DetectAnomalies([]models.Reading{
		{Temperature: 21.4, Humidity: 60.9, DustLevel: 30.5},
		{Temperature: 49, Humidity: 95, DustLevel: 990},
	})
	require.Len(t, flagged, 1)
	assert.Equal(t, 1, flagged[0].Index)
	assert.Less(t, flagged[0].AnomalyScore, 0.0)
	assert.Contains(t, []string{"high", "medium"}, flagged[0].Severity)

	_, err = trainer.TrainAnomalyDetector(nil)
	assert.ErrorIs(t, err, ErrInsufficientTrainingData)
}

func TestAveragePathLength(t *testing.T) {
	assert.Equal(t, 0.0, averagePathLength(1))
	assert.Equal(t, 1.0, averagePathLength(2))
	assert.InDelta(t, 10.244770, averagePathLength(256), 1e-4)
}

type memoryStore struct {
	saved map[time.Time][]byte
	last  time.Time
}

func (s *memoryStore) Save(_ context.Context, a *Artifacts) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	s.saved[a.TrainedAt] = data
	s.last = a.TrainedAt
	return nil
}

func (s *memoryStore) Load(_ context.Context, trainedAt time.Time) (*Artifacts, error) {
	data, ok := s.saved[trainedAt]
	if !ok {
		return nil, ErrArtifactsNotFound
	}
	var a Artifacts
	return &a, json.Unmarshal(data, &a)
}

func (s *memoryStore) Latest(ctx context.Context) (*Artifacts, error) {
	return s.Load(ctx, s.last)
}

func TestPersistAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{saved: map[time.Time][]byte{}}

	trainer := New(testConfig(), zap.NewNop())
	assert.ErrorIs(t, trainer.Persist(ctx, store), ErrNoModel)

	trainer.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	_, err := trainer.TrainPredictionModels(ctx, diurnalRows(t, 96))
	require.NoError(t, err)
	_, err = trainer.TrainAnomalyDetector(anomalyRows())
	require.NoError(t, err)
	require.NoError(t, trainer.Persist(ctx, store))

	restored := New(testConfig(), zap.NewNop())
	require.NoError(t, restored.LoadLatest(ctx, store))

	in := models.CurrentFeatures{Conditions: models.NewConditions(22, 60, 30)}
	assert.Equal(t, trainer.Predict(in), restored.Predict(in))
	assert.Equal(t, trainer.Metrics(), restored.Metrics())
	assert.Equal(t, trainer.Snapshot().TrainedAt, restored.Snapshot().TrainedAt)

	extreme := []models.Reading{{Temperature: 49, Humidity: 95, DustLevel: 990}}
	assert.Equal(t, trainer.DetectAnomalies(extreme), restored.DetectAnomalies(extreme))
	assert.True(t, trainer.Window().Equal(restored.Window()))
}

func TestTrainerRecordsWindow(t *testing.T) {
	assert.Zero(t, WindowOf(nil))

	rows := diurnalRows(t, 96)
	trainer := New(testConfig(), zap.NewNop())
	assert.Zero(t, trainer.Window())
	assert.True(t, trainer.TrainedAt().IsZero())

	_, err := trainer.TrainPredictionModels(context.Background(), rows)
	require.NoError(t, err)

	w := trainer.Window()
	assert.Equal(t, 96, w.Rows)
	assert.True(t, w.From.Equal(rows[0].Timestamp))
	assert.True(t, w.To.Equal(rows[95].Timestamp))
	assert.True(t, w.Equal(WindowOf(rows)))
	assert.False(t, w.Equal(WindowOf(rows[1:])))
	assert.False(t, trainer.TrainedAt().IsZero())
}
