// Package preprocess turns raw sensor readings into a chronologically ordered,
// gap-free feature series.
package preprocess

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const stage = "preprocess"

var ErrNoValues = errors.New("metric has no values")

// Bounds is the physically plausible sensor range of a metric, inclusive
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the bounds
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// SensorBounds are the fixed plausibility limits of the storage sensors
var SensorBounds = map[models.Metric]Bounds{
	models.MetricTemperature: {Min: -10, Max: 50},
	models.MetricHumidity:    {Min: 0, Max: 100},
	models.MetricDust:        {Min: 0, Max: 1000},
}

type Config struct {
	// RollingWindow is the trailing sample count of the rolling means
	RollingWindow int
	// ShortGapLimit is the longest interior run of missing samples that is
	// forward-filled; longer runs are interpolated over time
	ShortGapLimit int
}

func DefaultConfig() Config {
	return Config{RollingWindow: 24, ShortGapLimit: 3}
}

type Preprocessor struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Preprocessor {
	if cfg.RollingWindow < 1 {
		cfg.RollingWindow = DefaultConfig().RollingWindow
	}
	if cfg.ShortGapLimit < 0 {
		cfg.ShortGapLimit = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preprocessor{cfg: cfg, logger: logger}
}

// CleanResult is the cleaned feature series plus bookkeeping of what was dropped or filled
type CleanResult struct {
	Rows              []models.FeatureRow `json:"rows"`
	Input             int                 `json:"input"`
	OutliersRemoved   int                 `json:"outliers_removed"`
	DuplicatesDropped int                 `json:"duplicates_dropped"`
	// Removed is Input minus len(Rows): outliers plus duplicates
	Removed      int                      `json:"removed"`
	Filled       map[models.Metric]int    `json:"filled"`
	Insufficient *models.InsufficientData `json:"insufficient_data,omitempty"`
}

// Clean sorts, bounds-filters, deduplicates and gap-fills the readings and
// derives the time, rolling and change-rate features.
func (p *Preprocessor) Clean(readings []models.Reading) (*CleanResult, error) {
	result := &CleanResult{Input: len(readings), Filled: make(map[models.Metric]int, len(models.AllMetrics))}
	if len(readings) == 0 {
		result.Insufficient = models.NewInsufficientData(stage, "no readings", 1, 0)
		return result, nil
	}

	for i, r := range readings {
		if r.Timestamp.IsZero() {
			return nil, fmt.Errorf("reading %d: %w", i, models.ErrMissingTimestamp)
		}
	}

	sorted := make([]models.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	// Bounds first, so an out-of-range duplicate never shadows a valid reading
	inBounds := make([]models.Reading, 0, len(sorted))
	for _, r := range sorted {
		if withinBounds(r) {
			inBounds = append(inBounds, r)
		}
	}
	result.OutliersRemoved = len(sorted) - len(inBounds)

	kept := inBounds[:0:0]
	for i, r := range inBounds {
		if i > 0 && r.Timestamp.Equal(inBounds[i-1].Timestamp) {
			result.DuplicatesDropped++
			continue
		}
		kept = append(kept, r)
	}
	result.Removed = result.OutliersRemoved + result.DuplicatesDropped

	if result.OutliersRemoved > 0 {
		p.logger.Info("Removed outlier readings", zap.Int("count", result.OutliersRemoved))
	}
	if len(kept) == 0 {
		result.Insufficient = models.NewInsufficientData(stage, "no readings within sensor bounds", 1, 0)
		return result, nil
	}

	for _, m := range models.AllMetrics {
		filled, err := p.fillGaps(kept, m)
		if err != nil {
			return nil, err
		}
		result.Filled[m] = filled
	}

	result.Rows = p.addFeatures(kept)

	p.logger.Debug("Cleaned sensor readings",
		zap.Int("input", result.Input),
		zap.Int("output", len(result.Rows)),
		zap.Int("duplicates", result.DuplicatesDropped),
		zap.Int("outliers", result.OutliersRemoved))

	return result, nil
}

// withinBounds checks present values only; missing values are filled later
func withinBounds(r models.Reading) bool {
	for _, m := range models.AllMetrics {
		v := r.Value(m)
		if math.IsNaN(v) {
			continue
		}
		if !SensorBounds[m].Contains(v) {
			return false
		}
	}
	return true
}

// fillGaps fills NaN runs in place and returns the number of filled samples
func (p *Preprocessor) fillGaps(rs []models.Reading, m models.Metric) (int, error) {
	n := len(rs)
	filled := 0
	present := 0
	for _, r := range rs {
		if !math.IsNaN(r.Value(m)) {
			present++
		}
	}
	if present == 0 {
		return 0, fmt.Errorf("%s: %w", m, ErrNoValues)
	}
	if present == n {
		return 0, nil
	}

	for start := 0; start < n; {
		if !math.IsNaN(rs[start].Value(m)) {
			start++
			continue
		}
		end := start
		for end < n && math.IsNaN(rs[end].Value(m)) {
			end++
		}

		switch {
		case start == 0:
			fillRun(rs, m, start, end, func(int) float64 { return rs[end].Value(m) })
		case end == n:
			fillRun(rs, m, start, end, func(int) float64 { return rs[start-1].Value(m) })
		case end-start <= p.cfg.ShortGapLimit:
			fillRun(rs, m, start, end, func(int) float64 { return rs[start-1].Value(m) })
		default:
			before, after := rs[start-1], rs[end]
			span := after.Timestamp.Sub(before.Timestamp)
			fillRun(rs, m, start, end, func(i int) float64 {
				return interpolate(before.Value(m), after.Value(m), rs[i].Timestamp.Sub(before.Timestamp), span)
			})
		}

		filled += end - start
		start = end
	}

	return filled, nil
}

func fillRun(rs []models.Reading, m models.Metric, start, end int, value func(i int) float64) {
	for i := start; i < end; i++ {
		rs[i].SetValue(m, value(i))
	}
}

func interpolate(from, to float64, offset, span time.Duration) float64 {
	if span <= 0 {
		return from
	}
	frac := float64(offset) / float64(span)
	return from + (to-from)*frac
}

// addFeatures derives calendar fields, trailing rolling means and first differences
func (p *Preprocessor) addFeatures(rs []models.Reading) []models.FeatureRow {
	rows := make([]models.FeatureRow, len(rs))
	window := p.cfg.RollingWindow

	for i, r := range rs {
		ts := r.Timestamp
		dow := (int(ts.Weekday()) + 6) % 7
		row := models.FeatureRow{
			Reading:   r,
			Hour:      ts.Hour(),
			DayOfWeek: dow,
			Month:     int(ts.Month()),
			IsWeekend: dow >= 5,
		}

		from := i - window + 1
		if from < 0 {
			from = 0
		}
		for _, m := range models.AllMetrics {
			sum := 0.0
			for j := from; j <= i; j++ {
				sum += rs[j].Value(m)
			}
			row.Rolling.Set(m, sum/float64(i-from+1))

			if i > 0 {
				row.ChangeRate.Set(m, r.Value(m)-rs[i-1].Value(m))
			}
		}
		rows[i] = row
	}
	return rows
}
