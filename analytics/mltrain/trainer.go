// Package mltrain fits the per-metric regression forests and the shared
// isolation forest, and serves predictions from them.
package mltrain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sajari/regression"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var (
	ErrInsufficientTrainingData = errors.New("insufficient training data")
	ErrNoModel                  = errors.New("no trained model")
)

// ModelFeatures is the input schema of the regression models. Raw targets are excluded.
var ModelFeatures = []string{
	"hour", "day_of_week", "month", "is_weekend",
	"temp_rolling_24h", "humidity_rolling_24h", "dust_rolling_24h",
	"temp_change_rate", "humidity_change_rate", "dust_change_rate",
}

// rawDefaults stand in for missing current values when building a prediction vector
var rawDefaults = map[models.Metric]float64{
	models.MetricTemperature: 20,
	models.MetricHumidity:    60,
	models.MetricDust:        50,
}

type Config struct {
	Trees            int
	MaxDepth         int
	MinSamplesSplit  int
	TestFraction     float64
	Folds            int
	Seed             int64
	Contamination    float64
	IsolationTrees   int
	IsolationSamples int
}

func DefaultConfig() Config {
	return Config{
		Trees:            100,
		MaxDepth:         10,
		MinSamplesSplit:  2,
		TestFraction:     0.2,
		Folds:            5,
		Seed:             42,
		Contamination:    0.10,
		IsolationTrees:   100,
		IsolationSamples: 256,
	}
}

// ModelMetrics is the bookkeeping stored next to each fitted model
type ModelMetrics struct {
	MSE               float64            `json:"mse"`
	R2                float64            `json:"r2"`
	CVMean            float64            `json:"cv_mean"`
	CVStd             float64            `json:"cv_std"`
	BaselineR2        float64            `json:"baseline_r2"`
	FeatureImportance map[string]float64 `json:"feature_importance"`
	TrainRows         int                `json:"train_rows"`
	TestRows          int                `json:"test_rows"`
}

// TrainedModel is a fitted forest with its evaluation metrics
type TrainedModel struct {
	Forest  *RandomForest `json:"forest"`
	Metrics ModelMetrics  `json:"metrics"`
}

// TrainingResult is the per-target summary returned by TrainPredictionModels
type TrainingResult struct {
	ModelTrained  bool    `json:"model_trained"`
	R2Score       float64 `json:"r2_score"`
	CrossValScore float64 `json:"cross_val_score"`
	BaselineR2    float64 `json:"baseline_r2"`
}

// AnomalySummary reports how the detector labels its own training set
type AnomalySummary struct {
	ModelTrained      bool    `json:"model_trained"`
	AnomalyCount      int     `json:"anomaly_count"`
	AnomalyPercentage float64 `json:"anomaly_percentage"`
}

// Prediction is the model output for one metric
type Prediction struct {
	PredictedValue float64 `json:"predicted_value"`
	Confidence     float64 `json:"confidence"`
	Fallback       bool    `json:"fallback,omitempty"`
}

type Trainer struct {
	cfg    Config
	logger *zap.Logger

	mu        sync.RWMutex
	models    map[models.Metric]*TrainedModel
	detector  *IsolationForest
	trainedAt time.Time
	window    Window
	now       func() time.Time
}

func New(cfg Config, logger *zap.Logger) *Trainer {
	def := DefaultConfig()
	if cfg.Folds < 2 {
		cfg.Folds = def.Folds
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = def.TestFraction
	}
	if cfg.Contamination <= 0 || cfg.Contamination > 0.5 {
		cfg.Contamination = def.Contamination
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trainer{
		cfg:    cfg,
		logger: logger,
		models: make(map[models.Metric]*TrainedModel),
		now:    time.Now,
	}
}

// TrainPredictionModels fits one forest per metric on the same shuffled split
// and swaps the new models in once every target has finished.
func (t *Trainer) TrainPredictionModels(ctx context.Context, rows []models.FeatureRow) (map[models.Metric]TrainingResult, error) {
	minRows := 2 * t.cfg.Folds
	if len(rows) < minRows {
		return nil, fmt.Errorf("%w: need %d rows, got %d", ErrInsufficientTrainingData, minRows, len(rows))
	}

	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = modelVector(r)
	}

	perm := rand.New(rand.NewSource(t.cfg.Seed)).Perm(len(rows))
	nTest := int(math.Ceil(float64(len(rows)) * t.cfg.TestFraction))
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	var (
		mu      sync.Mutex
		trained = make(map[models.Metric]*TrainedModel, len(models.AllMetrics))
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, target := range models.AllMetrics {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			y := targetValues(rows, target)
			model := t.fitTarget(target, X, y, trainIdx, testIdx)
			mu.Lock()
			trained[target] = model
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to train prediction models: %w", err)
	}

	t.mu.Lock()
	t.models = trained
	t.trainedAt = t.now().UTC()
	t.window = WindowOf(rows)
	t.mu.Unlock()

	results := make(map[models.Metric]TrainingResult, len(trained))
	for target, m := range trained {
		results[target] = TrainingResult{
			ModelTrained:  true,
			R2Score:       m.Metrics.R2,
			CrossValScore: m.Metrics.CVMean,
			BaselineR2:    m.Metrics.BaselineR2,
		}
		t.logger.Info("Trained prediction model",
			zap.String("target", string(target)),
			zap.Float64("r2", m.Metrics.R2),
			zap.Float64("cv_mean", m.Metrics.CVMean),
			zap.Float64("baseline_r2", m.Metrics.BaselineR2))
	}
	return results, nil
}

func (t *Trainer) forestConfig() ForestConfig {
	return ForestConfig{
		Trees:           t.cfg.Trees,
		MaxDepth:        t.cfg.MaxDepth,
		MinSamplesSplit: t.cfg.MinSamplesSplit,
		Seed:            t.cfg.Seed,
	}
}

func (t *Trainer) fitTarget(target models.Metric, X [][]float64, y []float64, trainIdx, testIdx []int) *TrainedModel {
	trainX, trainY := subset(X, y, trainIdx)
	testX, testY := subset(X, y, testIdx)

	forest := FitForest(trainX, trainY, t.forestConfig())
	pred := make([]float64, len(testX))
	for i, x := range testX {
		pred[i] = forest.Predict(x)
	}

	cvScores := t.crossValidate(X, y)
	importance := make(map[string]float64, len(ModelFeatures))
	for i, name := range ModelFeatures {
		importance[name] = forest.Importances[i]
	}

	return &TrainedModel{
		Forest: forest,
		Metrics: ModelMetrics{
			MSE:               meanSquaredError(testY, pred),
			R2:                r2Score(testY, pred),
			CVMean:            stats.Mean(cvScores),
			CVStd:             stats.PopStd(cvScores),
			BaselineR2:        t.baseline(target, trainX, trainY, testX, testY),
			FeatureImportance: importance,
			TrainRows:         len(trainX),
			TestRows:          len(testX),
		},
	}
}

// crossValidate runs k-fold CV over contiguous folds and returns the R² of each fold
func (t *Trainer) crossValidate(X [][]float64, y []float64) []float64 {
	k := t.cfg.Folds
	n := len(X)
	scores := make([]float64, 0, k)
	start := 0
	for fold := 0; fold < k; fold++ {
		size := n / k
		if fold < n%k {
			size++
		}
		end := start + size

		var trainIdx, testIdx []int
		for i := 0; i < n; i++ {
			if i >= start && i < end {
				testIdx = append(testIdx, i)
			} else {
				trainIdx = append(trainIdx, i)
			}
		}
		trainX, trainY := subset(X, y, trainIdx)
		testX, testY := subset(X, y, testIdx)

		forest := FitForest(trainX, trainY, t.forestConfig())
		pred := make([]float64, len(testX))
		for i, x := range testX {
			pred[i] = forest.Predict(x)
		}
		scores = append(scores, r2Score(testY, pred))
		start = end
	}
	return scores
}

// baseline fits an OLS model on the same split. Collinear inputs (a constant
// month column, say) make the fit fail; the baseline is then reported as 0.
func (t *Trainer) baseline(target models.Metric, trainX [][]float64, trainY []float64, testX [][]float64, testY []float64) float64 {
	r := new(regression.Regression)
	r.SetObserved(string(target))
	for i, name := range ModelFeatures {
		r.SetVar(i, name)
	}
	for i, x := range trainX {
		r.Train(regression.DataPoint(trainY[i], x))
	}
	if err := r.Run(); err != nil {
		t.logger.Debug("Linear baseline unavailable", zap.String("target", string(target)), zap.Error(err))
		return 0
	}

	pred := make([]float64, len(testX))
	for i, x := range testX {
		p, err := r.Predict(x)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return 0
		}
		pred[i] = p
	}
	return r2Score(testY, pred)
}

// TrainAnomalyDetector fits the isolation forest over the three raw metrics
func (t *Trainer) TrainAnomalyDetector(rows []models.FeatureRow) (*AnomalySummary, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: need 2 rows, got %d", ErrInsufficientTrainingData, len(rows))
	}

	X := make([][]float64, len(rows))
	for i, r := range rows {
		X[i] = rawVector(r.Reading)
	}
	detector := FitIsolationForest(X, IsolationConfig{
		Trees:         t.cfg.IsolationTrees,
		MaxSamples:    t.cfg.IsolationSamples,
		Contamination: t.cfg.Contamination,
		Seed:          t.cfg.Seed,
	})

	count := 0
	for _, x := range X {
		if detector.Decision(x) < 0 {
			count++
		}
	}

	t.mu.Lock()
	t.detector = detector
	if t.trainedAt.IsZero() {
		t.trainedAt = t.now().UTC()
	}
	if len(t.models) == 0 {
		t.window = WindowOf(rows)
	}
	t.mu.Unlock()

	summary := &AnomalySummary{
		ModelTrained:      true,
		AnomalyCount:      count,
		AnomalyPercentage: float64(count) / float64(len(X)) * 100,
	}
	t.logger.Info("Trained anomaly detector",
		zap.Int("anomalies", summary.AnomalyCount),
		zap.Float64("percentage", summary.AnomalyPercentage))
	return summary, nil
}

// Predict queries each metric's model. A metric without a model echoes its
// current value with zero confidence.
func (t *Trainer) Predict(in models.CurrentFeatures) map[models.Metric]Prediction {
	x := currentVector(in)

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[models.Metric]Prediction, len(models.AllMetrics))
	for _, m := range models.AllMetrics {
		model, ok := t.models[m]
		if !ok || model.Forest == nil {
			t.logger.Warn("No trained model, echoing current value", zap.String("target", string(m)))
			out[m] = Prediction{PredictedValue: in.GetOr(m, 0), Confidence: 0, Fallback: true}
			continue
		}
		out[m] = Prediction{
			PredictedValue: model.Forest.Predict(x),
			Confidence:     stats.Clamp(model.Metrics.R2, 0, 1),
		}
	}
	return out
}

// DetectAnomalies flags readings below the detector's decision threshold
func (t *Trainer) DetectAnomalies(readings []models.Reading) []models.FlaggedReading {
	t.mu.RLock()
	detector := t.detector
	t.mu.RUnlock()

	flagged := []models.FlaggedReading{}
	if detector == nil {
		return flagged
	}

	for i, r := range readings {
		score := detector.Decision(rawVector(r))
		if score >= 0 {
			continue
		}
		severity := "medium"
		if score < -0.5 {
			severity = "high"
		}
		flagged = append(flagged, models.FlaggedReading{
			Index:        i,
			Timestamp:    r.Timestamp,
			Values:       r.Conditions(),
			AnomalyScore: score,
			Severity:     severity,
		})
	}
	return flagged
}

// Metrics returns a copy of the stored metrics per target
func (t *Trainer) Metrics() map[models.Metric]ModelMetrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[models.Metric]ModelMetrics, len(t.models))
	for m, model := range t.models {
		out[m] = model.Metrics
	}
	return out
}

// TrainedAt is when the current models were fitted, zero when untrained
func (t *Trainer) TrainedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.trainedAt
}

// Window is the span of rows the current models were fitted on
func (t *Trainer) Window() Window {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.window
}

// HasModels reports whether any prediction model or the detector is loaded
func (t *Trainer) HasModels() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.models) > 0 || t.detector != nil
}

func modelVector(r models.FeatureRow) []float64 {
	weekend := 0.0
	if r.IsWeekend {
		weekend = 1
	}
	v := []float64{
		float64(r.Hour), float64(r.DayOfWeek), float64(r.Month), weekend,
		r.Rolling.Temperature, r.Rolling.Humidity, r.Rolling.DustLevel,
		r.ChangeRate.Temperature, r.ChangeRate.Humidity, r.ChangeRate.DustLevel,
	}
	for i := range v {
		v[i] = stats.Finite(v[i], 0)
	}
	return v
}

// currentVector applies the inference defaults for absent fields
func currentVector(in models.CurrentFeatures) []float64 {
	intOr := func(p *int, def int) float64 {
		if p == nil {
			return float64(def)
		}
		return float64(*p)
	}
	weekend := 0.0
	if in.IsWeekend != nil && *in.IsWeekend {
		weekend = 1
	}
	v := []float64{intOr(in.Hour, 12), intOr(in.DayOfWeek, 1), intOr(in.Month, 1), weekend}
	for _, m := range models.AllMetrics {
		rolling, ok := in.Rolling[m]
		if !ok || math.IsNaN(rolling) {
			rolling = in.GetOr(m, rawDefaults[m])
		}
		v = append(v, rolling)
	}
	for _, m := range models.AllMetrics {
		v = append(v, stats.Finite(in.ChangeRate[m], 0))
	}
	return v
}

// rawVector feeds the detector; missing values become 0
func rawVector(r models.Reading) []float64 {
	return []float64{
		stats.Finite(r.Temperature, 0),
		stats.Finite(r.Humidity, 0),
		stats.Finite(r.DustLevel, 0),
	}
}

// targetValues extracts y and fills missing values with the column mean
func targetValues(rows []models.FeatureRow, m models.Metric) []float64 {
	y := models.MetricValues(rows, m)
	mean := stats.Mean(stats.Present(y))
	for i, v := range y {
		if math.IsNaN(v) {
			y[i] = mean
		}
	}
	return y
}

func subset(X [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	sx := make([][]float64, len(idx))
	sy := make([]float64, len(idx))
	for i, j := range idx {
		sx[i] = X[j]
		sy[i] = y[j]
	}
	return sx, sy
}

func meanSquaredError(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	sum := 0.0
	for i := range y {
		d := y[i] - pred[i]
		sum += d * d
	}
	return sum / float64(len(y))
}

// r2Score is the coefficient of determination. A constant target scores 1 for
// a perfect fit and 0 otherwise.
func r2Score(y, pred []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	mean := stats.Mean(y)
	ssRes, ssTot := 0.0, 0.0
	for i := range y {
		ssRes += (y[i] - pred[i]) * (y[i] - pred[i])
		ssTot += (y[i] - mean) * (y[i] - mean)
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}
