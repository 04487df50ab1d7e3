package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/mltrain"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/patterns"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/predictive"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/preprocess"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/recommend"
	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// Analyzer runs the whole analytics pipeline over a batch of readings
type Analyzer struct {
	config  *config.Config
	logger  *zap.Logger
	metrics *Metrics
	store   mltrain.ModelStore
	history *recommend.RingHistory
	now     func() time.Time

	preprocessor *preprocess.Preprocessor
	trainer      *mltrain.Trainer
	recognizer   *patterns.Recognizer
	predictor    *predictive.Engine
	recommender  *recommend.Engine
	monitor      *ThresholdMonitor
}

type AnalyzerOption func(*analyzerOptions)

type analyzerOptions struct {
	metrics   *Metrics
	store     mltrain.ModelStore
	now       func() time.Time
	estimator recommend.OptimizationEstimator
}

func WithMetrics(m *Metrics) AnalyzerOption {
	return func(o *analyzerOptions) { o.metrics = m }
}

func WithModelStore(store mltrain.ModelStore) AnalyzerOption {
	return func(o *analyzerOptions) { o.store = store }
}

func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(o *analyzerOptions) { o.now = now }
}

func WithOptimizationEstimator(est recommend.OptimizationEstimator) AnalyzerOption {
	return func(o *analyzerOptions) { o.estimator = est }
}

func NewAnalyzer(cfg *config.Config, logger *zap.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := analyzerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	a := cfg.Analysis
	trainerCfg := mltrain.DefaultConfig()
	trainerCfg.Trees = a.ForestTrees
	trainerCfg.Seed = a.RandomSeed
	trainerCfg.Contamination = a.Contamination

	patternCfg := patterns.DefaultConfig()
	patternCfg.MaxClusters = a.MaxClusters
	patternCfg.Seed = a.RandomSeed

	recommendCfg := recommend.DefaultConfig()
	recommendCfg.MaxRecommendations = a.MaxRecommendations

	history := recommend.NewRingHistory(a.HistoryCapacity)
	recOpts := []recommend.Option{
		recommend.WithLogger(logger.Named("recommend")),
		recommend.WithClock(o.now),
		recommend.WithHistory(history),
	}
	if o.estimator != nil {
		recOpts = append(recOpts, recommend.WithEstimator(o.estimator))
	}

	return &Analyzer{
		config:  cfg,
		logger:  logger,
		metrics: o.metrics,
		store:   o.store,
		history: history,
		now:     o.now,

		preprocessor: preprocess.New(preprocess.Config{RollingWindow: a.RollingWindow, ShortGapLimit: preprocess.DefaultConfig().ShortGapLimit}, logger.Named("preprocess")),
		trainer:      mltrain.New(trainerCfg, logger.Named("mltrain")),
		recognizer:   patterns.New(patternCfg, logger.Named("patterns")),
		predictor:    predictive.New(predictive.Config{WindowDays: a.WindowDays, HoursAhead: a.ForecastHoursAhead}, logger.Named("predictive")),
		recommender:  recommend.New(recommendCfg, recOpts...),
		monitor:      NewThresholdMonitor(cfg),
	}
}

// Run cleans the readings and produces a full report. Degenerate input yields
// a report marked insufficient rather than an error.
func (a *Analyzer) Run(ctx context.Context, readings []models.Reading) (*models.Report, error) {
	start := a.now()
	report, err := a.run(ctx, readings, start)
	elapsed := a.now().Sub(start)
	if err != nil {
		a.metrics.ObserveFailure()
		return nil, err
	}
	report.DurationMillis = elapsed.Milliseconds()
	a.metrics.ObserveReport(report, elapsed)

	a.logger.Info("Analysis complete",
		zap.String("report_id", report.ID),
		zap.Int("readings", report.Readings),
		zap.Int("recommendations", len(report.Recommendations)),
		zap.Int("threshold_alerts", len(report.ThresholdAnomalies)),
		zap.Duration("elapsed", elapsed))
	return report, nil
}

func (a *Analyzer) run(ctx context.Context, readings []models.Reading, start time.Time) (*models.Report, error) {
	report := &models.Report{
		ID:          uuid.NewString(),
		GeneratedAt: start,
	}

	clean, err := a.preprocessor.Clean(readings)
	if err != nil {
		return nil, fmt.Errorf("failed to clean readings: %w", err)
	}
	report.Readings = len(clean.Rows)
	report.OutliersRemoved = clean.OutliersRemoved
	report.DuplicatesDropped = clean.DuplicatesDropped
	if clean.Insufficient != nil {
		report.Insufficient = clean.Insufficient
		a.logger.Warn("Not enough data to analyze",
			zap.String("reason", clean.Insufficient.Reason),
			zap.Int("input", clean.Input))
		return report, nil
	}

	rows := clean.Rows
	latest := rows[len(rows)-1]
	report.DeviceID = latest.DeviceID
	report.Conditions = latest.Reading.Conditions()

	if err := a.prepareModels(ctx, rows); err != nil {
		return nil, err
	}
	if a.trainer.HasModels() {
		report.Predictions = make(map[models.Metric]models.PredictionSummary, len(models.AllMetrics))
		for m, p := range a.trainer.Predict(models.CurrentFeaturesFromRow(latest)) {
			report.Predictions[m] = models.PredictionSummary{Value: p.PredictedValue, Confidence: p.Confidence, Fallback: p.Fallback}
		}
		report.FlaggedReadings = a.trainer.DetectAnomalies(models.Readings(rows))
	}

	set := a.recognizer.Analyze(rows)
	report.Patterns = set
	report.Insights = a.recognizer.GenerateInsights(set.Daily, set.Weekly, set.Seasonal, set.Operational)

	report.Trends = a.predictor.AnalyzeTrends(rows, a.config.Analysis.WindowDays)
	report.Forecasts = a.predictor.Forecast(rows, a.config.Analysis.ForecastHoursAhead)
	report.Quality = a.predictor.StorageQualityScore(report.Conditions)
	report.Efficiency = a.predictor.EnergyEfficiencyScore(rows)
	report.Optimization = a.predictor.OptimizationRecommendations(report.Conditions, report.Forecasts.Metrics, report.Trends.Metrics)

	report.ThresholdAnomalies = a.monitor.Check(latest.Reading)

	report.Recommendations = a.recommender.Generate(recommend.Input{
		Conditions: report.Conditions,
		Forecasts:  report.Forecasts.Metrics,
		Trends:     report.Trends.Metrics,
		Patterns:   set,
		Profile:    a.profile(),
	})
	insights := a.recommender.SmartInsights(report.Conditions, models.Readings(rows))
	report.SmartInsights = &insights

	return report, nil
}

// prepareModels trains on the batch when enabled, otherwise loads the last
// stored artifacts once. Models already fitted on the same window, or younger
// than the retrain interval, are reused. Too little data is logged and skipped.
func (a *Analyzer) prepareModels(ctx context.Context, rows []models.FeatureRow) error {
	if a.store != nil && !a.trainer.HasModels() {
		if err := a.trainer.LoadLatest(ctx, a.store); err != nil {
			if a.config.Analysis.TrainModels {
				a.logger.Debug("No stored models to reuse", zap.Error(err))
			} else {
				a.logger.Warn("No stored models available", zap.Error(err))
			}
		}
	}
	if !a.config.Analysis.TrainModels {
		return nil
	}

	if reason, ok := a.reusableModels(rows); ok {
		a.logger.Debug("Reusing fitted models", zap.String("reason", reason))
		return nil
	}

	trained := false
	if _, err := a.trainer.TrainPredictionModels(ctx, rows); err != nil {
		if !errors.Is(err, mltrain.ErrInsufficientTrainingData) {
			return err
		}
		a.logger.Warn("Skipping prediction models", zap.Error(err))
	} else {
		trained = true
	}
	if _, err := a.trainer.TrainAnomalyDetector(rows); err != nil {
		a.logger.Warn("Skipping anomaly detector", zap.Error(err))
	} else {
		trained = true
	}

	if trained && a.store != nil {
		if err := a.trainer.Persist(ctx, a.store); err != nil {
			a.logger.Warn("Failed to persist models", zap.Error(err))
		}
	}
	return nil
}

func (a *Analyzer) reusableModels(rows []models.FeatureRow) (string, bool) {
	if !a.trainer.HasModels() {
		return "", false
	}
	if a.trainer.Window().Equal(mltrain.WindowOf(rows)) {
		return "training window unchanged", true
	}
	interval := a.config.Analysis.RetrainInterval
	if interval > 0 && a.now().Sub(a.trainer.TrainedAt()) < interval {
		return "within retrain interval", true
	}
	return "", false
}

func (a *Analyzer) profile() *models.CoffeeProfile {
	cfg := a.config.Analysis
	if cfg.CoffeeType == "" {
		return nil
	}
	return &models.CoffeeProfile{
		Type:          models.CoffeeType(cfg.CoffeeType),
		Processing:    models.ProcessingMethod(cfg.Processing),
		StorageMonths: cfg.StorageMonths,
		Container:     models.StorageContainer(cfg.Container),
	}
}

// RecommendationHistory returns the recorded recommendation calls, oldest first
func (a *Analyzer) RecommendationHistory() []models.HistoryRecord {
	return a.history.Records()
}

// Trainer exposes the model trainer for tooling that trains offline
func (a *Analyzer) Trainer() *mltrain.Trainer {
	return a.trainer
}
