package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Analysis.WindowDays)
	assert.Equal(t, 24, cfg.Analysis.ForecastHoursAhead)
	assert.InDelta(t, 0.10, cfg.Analysis.Contamination, 1e-9)
	assert.Equal(t, 5, cfg.Analysis.MaxClusters)
	assert.Equal(t, int64(42), cfg.Analysis.RandomSeed)
	assert.Equal(t, 10, cfg.Analysis.MaxRecommendations)
	assert.Equal(t, time.Hour, cfg.AnalysisInterval)
	assert.Equal(t, 2*time.Hour, cfg.DeviceTimeout)
	assert.Zero(t, cfg.Analysis.RetrainInterval)
	assert.Equal(t, 25.0, cfg.TemperatureMax)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANALYSIS_WINDOW_DAYS", "14")
	t.Setenv("ANOMALY_CONTAMINATION", "0.05")
	t.Setenv("TRAIN_MODELS", "false")
	t.Setenv("ANALYSIS_INTERVAL", "15m")
	t.Setenv("MAX_CLUSTERS", "not-a-number")
	t.Setenv("MODEL_RETRAIN_INTERVAL", "6h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Analysis.WindowDays)
	assert.InDelta(t, 0.05, cfg.Analysis.Contamination, 1e-9)
	assert.False(t, cfg.Analysis.TrainModels)
	assert.Equal(t, 15*time.Minute, cfg.AnalysisInterval)
	assert.Equal(t, 6*time.Hour, cfg.Analysis.RetrainInterval)
	assert.Equal(t, 5, cfg.Analysis.MaxClusters, "unparseable values fall back to the default")
}

func TestLoadConfigYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte("forecast_hours_ahead: 12\ncoffee_type: robusta\nstorage_months: 9\nretrain_interval: 12h\n"), 0o600))
	t.Setenv("ANALYSIS_CONFIG_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Analysis.ForecastHoursAhead)
	assert.Equal(t, "robusta", cfg.Analysis.CoffeeType)
	assert.Equal(t, 9, cfg.Analysis.StorageMonths)
	assert.Equal(t, 12*time.Hour, cfg.Analysis.RetrainInterval)
	assert.Equal(t, 7, cfg.Analysis.WindowDays, "keys absent from the file keep their env value")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ANOMALY_CONTAMINATION", "0.9")
	t.Setenv("TEMPERATURE_MIN", "30")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anomaly_contamination")
	assert.Contains(t, err.Error(), "temperature thresholds inverted")
}

func TestLoadFileMissing(t *testing.T) {
	var a AnalysisConfig
	err := a.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
