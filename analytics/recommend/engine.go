// Package recommend merges coffee profile rules, forecast risk, patterns,
// seasonal knowledge, energy heuristics and maintenance triggers into one
// ranked recommendation list, and builds the smart insights report.
package recommend

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/predictive"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

type Config struct {
	MaxRecommendations int
	NightStartHour     int
	NightEndHour       int
}

func DefaultConfig() Config {
	return Config{MaxRecommendations: 10, NightStartHour: 22, NightEndHour: 6}
}

// Input is everything the generators look at for one call
type Input struct {
	Conditions models.Conditions
	Forecasts  map[models.Metric]models.Forecast
	Trends     map[models.Metric]models.TrendSummary
	Patterns   models.PatternSet
	Profile    *models.CoffeeProfile
}

type generator func(in Input, now time.Time) []models.Recommendation

type Engine struct {
	cfg       Config
	kb        *KnowledgeBase
	history   HistorySink
	estimator OptimizationEstimator
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithHistory(sink HistorySink) Option {
	return func(e *Engine) { e.history = sink }
}

func WithEstimator(est OptimizationEstimator) Option {
	return func(e *Engine) { e.estimator = est }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithKnowledgeBase(kb *KnowledgeBase) Option {
	return func(e *Engine) { e.kb = kb }
}

func New(cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.MaxRecommendations < 1 {
		cfg.MaxRecommendations = def.MaxRecommendations
	}
	if cfg.NightStartHour <= 0 && cfg.NightEndHour <= 0 {
		cfg.NightStartHour, cfg.NightEndHour = def.NightStartHour, def.NightEndHour
	}

	e := &Engine{
		cfg:       cfg,
		kb:        DefaultKnowledgeBase(),
		history:   NopHistory{},
		estimator: VarianceEstimator{},
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate runs every generator, keeps the first recommendation per
// (category, action), orders by priority and caps the list. The call is
// recorded to the history sink.
func (e *Engine) Generate(in Input) []models.Recommendation {
	now := e.now()
	generators := []generator{
		e.coffeeRecommendations,
		e.predictiveRecommendations,
		e.patternRecommendations,
		e.seasonalRecommendations,
		e.energyRecommendations,
		e.maintenanceRecommendations,
	}

	var all []models.Recommendation
	for _, gen := range generators {
		all = append(all, gen(in, now)...)
	}
	final := e.prioritize(all)

	e.history.Record(models.HistoryRecord{
		ID:              uuid.NewString(),
		Timestamp:       now,
		Conditions:      in.Conditions,
		Recommendations: final,
	})
	e.logger.Debug("Generated recommendations",
		zap.Int("candidates", len(all)),
		zap.Int("returned", len(final)))
	return final
}

func (e *Engine) prioritize(recs []models.Recommendation) []models.Recommendation {
	seen := make(map[models.RecommendationKey]bool, len(recs))
	unique := make([]models.Recommendation, 0, len(recs))
	for _, r := range recs {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		unique = append(unique, r)
	}

	predictive.SortByPriority(unique)
	if len(unique) > e.cfg.MaxRecommendations {
		unique = unique[:e.cfg.MaxRecommendations]
	}
	return unique
}

func (e *Engine) isNight(hour int) bool {
	if e.cfg.NightStartHour > e.cfg.NightEndHour {
		return hour >= e.cfg.NightStartHour || hour <= e.cfg.NightEndHour
	}
	return hour >= e.cfg.NightStartHour && hour <= e.cfg.NightEndHour
}
