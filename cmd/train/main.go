package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/mltrain"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/preprocess"
	"github.com/MfrankUg/Coffee-Storage-TDMS/log"
	"github.com/MfrankUg/Coffee-Storage-TDMS/services"
)

var (
	readingsFile  = pflag.String("readings", "", "JSON file of sensor readings to train on (required)")
	storePath     = pflag.String("store", "models.db", "Bolt database the fitted models are saved to")
	trees         = pflag.Int("trees", 100, "Trees per random forest")
	seed          = pflag.Int64("seed", 42, "Random seed for splits and forests")
	contamination = pflag.Float64("contamination", 0.10, "Expected share of anomalous readings")
	rollingWindow = pflag.Int("rolling-window", 24, "Samples in the rolling mean features")
	prune         = pflag.Int("prune", 0, "Keep only the newest N artifact sets (0 keeps all)")
)

type trainingOutput struct {
	TrainedAt  time.Time                         `json:"trained_at"`
	Readings   int                               `json:"readings"`
	Outliers   int                               `json:"outliers_removed"`
	Prediction map[string]mltrain.TrainingResult `json:"prediction_models,omitempty"`
	Anomaly    *mltrain.AnomalySummary           `json:"anomaly_detector,omitempty"`
	Metrics    map[string]mltrain.ModelMetrics   `json:"metrics,omitempty"`
	Pruned     int                               `json:"pruned,omitempty"`
}

func main() {
	pflag.Parse()

	logger := log.GetInstance()
	defer logger.Sync()

	if *readingsFile == "" {
		logger.Fatal("--readings is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	readings, err := services.LoadReadingsFile(*readingsFile)
	if err != nil {
		logger.Fatal("Failed to load readings", zap.String("path", *readingsFile), zap.Error(err))
	}

	clean, err := preprocess.New(preprocess.Config{RollingWindow: *rollingWindow, ShortGapLimit: preprocess.DefaultConfig().ShortGapLimit}, logger.Named("preprocess")).Clean(readings)
	if err != nil {
		logger.Fatal("Failed to clean readings", zap.Error(err))
	}
	if clean.Insufficient != nil {
		logger.Fatal("Not enough data to train", zap.String("reason", clean.Insufficient.Reason))
	}

	cfg := mltrain.DefaultConfig()
	cfg.Trees = *trees
	cfg.Seed = *seed
	cfg.Contamination = *contamination
	trainer := mltrain.New(cfg, logger.Named("mltrain"))

	out := trainingOutput{Readings: len(clean.Rows), Outliers: clean.OutliersRemoved}

	results, err := trainer.TrainPredictionModels(ctx, clean.Rows)
	switch {
	case errors.Is(err, mltrain.ErrInsufficientTrainingData):
		logger.Warn("Skipping prediction models", zap.Error(err))
	case err != nil:
		logger.Fatal("Failed to train prediction models", zap.Error(err))
	default:
		out.Prediction = make(map[string]mltrain.TrainingResult, len(results))
		for m, r := range results {
			out.Prediction[string(m)] = r
		}
	}

	summary, err := trainer.TrainAnomalyDetector(clean.Rows)
	if err != nil {
		logger.Warn("Skipping anomaly detector", zap.Error(err))
	} else {
		out.Anomaly = summary
	}

	store, err := services.NewBoltModelStore(*storePath, logger.Named("model_store"))
	if err != nil {
		logger.Fatal("Failed to open model store", zap.Error(err))
	}
	defer store.Close()

	if err := trainer.Persist(ctx, store); err != nil {
		logger.Fatal("Failed to persist models", zap.Error(err))
	}

	snapshot := trainer.Snapshot()
	out.TrainedAt = snapshot.TrainedAt
	out.Metrics = make(map[string]mltrain.ModelMetrics, len(snapshot.Models))
	for m, metrics := range snapshot.Metrics() {
		out.Metrics[string(m)] = metrics
	}

	if *prune > 0 {
		removed, err := store.Prune(*prune)
		if err != nil {
			logger.Error("Failed to prune model store", zap.Error(err))
		}
		out.Pruned = removed
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		logger.Fatal("Failed to write training summary", zap.Error(err))
	}
}
