// Package patterns derives daily, weekly, seasonal, operational and anomaly
// patterns from a cleaned feature series and turns them into insights.
package patterns

import (
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

type Config struct {
	MaxClusters   int
	ZThreshold    float64
	Seed          int64
	KMeansInit    int
	KMeansMaxIter int
}

func DefaultConfig() Config {
	return Config{
		MaxClusters:   5,
		ZThreshold:    2.5,
		Seed:          42,
		KMeansInit:    10,
		KMeansMaxIter: 300,
	}
}

type Recognizer struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Recognizer {
	def := DefaultConfig()
	if cfg.MaxClusters < 1 {
		cfg.MaxClusters = def.MaxClusters
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = def.ZThreshold
	}
	if cfg.KMeansInit < 1 {
		cfg.KMeansInit = def.KMeansInit
	}
	if cfg.KMeansMaxIter < 1 {
		cfg.KMeansMaxIter = def.KMeansMaxIter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recognizer{cfg: cfg, logger: logger}
}

// Analyze runs every pattern family over the series
func (r *Recognizer) Analyze(rows []models.FeatureRow) models.PatternSet {
	set := models.PatternSet{
		Daily:       r.DailyPatterns(rows),
		Weekly:      r.WeeklyPatterns(rows),
		Seasonal:    r.SeasonalPatterns(rows),
		Operational: r.OperationalPatterns(rows),
		Anomaly:     r.AnomalyPatterns(rows),
	}
	r.logger.Debug("Recognized patterns",
		zap.Int("rows", len(rows)),
		zap.Int("clusters", set.Operational.Clusters),
		zap.Int("anomalous_metrics", len(set.Anomaly)))
	return set
}
