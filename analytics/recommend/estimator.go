package recommend

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/predictive"
	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// OptimizationEstimator estimates savings potential in percent
type OptimizationEstimator interface {
	Estimate(c models.Conditions, history []models.Reading) models.OptimizationPotential
}

// Savings bands in percent: energy, quality, maintenance
var (
	energyBand      = [2]float64{10, 30}
	qualityBand     = [2]float64{5, 20}
	maintenanceBand = [2]float64{15, 25}
)

const zAnomalyThreshold = 2.5

// VarianceEstimator derives potential from the history: energy from the
// dispersion of controlled metrics, quality from the share of readings outside
// the optimal bands, maintenance from the z-score anomaly rate.
type VarianceEstimator struct{}

func (VarianceEstimator) Estimate(_ models.Conditions, history []models.Reading) models.OptimizationPotential {
	energyFrac, qualityFrac, maintenanceFrac := 0.0, 0.0, 0.0
	if len(history) > 0 {
		var cvs []float64
		for _, m := range []models.Metric{models.MetricTemperature, models.MetricHumidity} {
			if values := stats.Present(readingValues(history, m)); len(values) > 1 {
				cvs = append(cvs, stats.CV(values))
			}
		}
		// a 20% coefficient of variation saturates the energy band
		energyFrac = stats.Clamp(stats.Mean(cvs)/0.2, 0, 1)
		qualityFrac = 1 - bandOccupancy(history)
		// 10% anomalous samples saturates the maintenance band
		maintenanceFrac = stats.Clamp(anomalyRate(history)/0.1, 0, 1)
	}

	energy := lerp(energyBand, energyFrac)
	quality := lerp(qualityBand, qualityFrac)
	maintenance := lerp(maintenanceBand, maintenanceFrac)
	return models.OptimizationPotential{
		Estimator:            "variance",
		TotalPotential:       (energy + quality + maintenance) / 3,
		EnergySavings:        energy,
		QualityImprovement:   quality,
		MaintenanceReduction: maintenance,
		PriorityAreas:        priorityAreas(energy, quality, maintenance),
	}
}

// RandomEstimator draws uniform values inside the savings bands. Its output is
// illustrative and flagged as such.
type RandomEstimator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomEstimator(seed int64) *RandomEstimator {
	return &RandomEstimator{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomEstimator) Estimate(models.Conditions, []models.Reading) models.OptimizationPotential {
	r.mu.Lock()
	energy := lerp(energyBand, r.rng.Float64())
	quality := lerp(qualityBand, r.rng.Float64())
	maintenance := lerp(maintenanceBand, r.rng.Float64())
	r.mu.Unlock()

	return models.OptimizationPotential{
		Estimator:            "random",
		Illustrative:         true,
		TotalPotential:       (energy + quality + maintenance) / 3,
		EnergySavings:        energy,
		QualityImprovement:   quality,
		MaintenanceReduction: maintenance,
		PriorityAreas:        []string{"energy", "maintenance", "quality"},
	}
}

func lerp(band [2]float64, frac float64) float64 {
	return band[0] + (band[1]-band[0])*frac
}

// priorityAreas ranks areas by potential, ties in energy, maintenance, quality order
func priorityAreas(energy, quality, maintenance float64) []string {
	areas := []struct {
		name  string
		value float64
	}{{"energy", energy}, {"maintenance", maintenance}, {"quality", quality}}
	sort.SliceStable(areas, func(i, j int) bool { return areas[i].value > areas[j].value })

	out := make([]string, len(areas))
	for i, a := range areas {
		out[i] = a.name
	}
	return out
}

// bandOccupancy is the share of readings with every present metric inside its optimal band
func bandOccupancy(history []models.Reading) float64 {
	inside := 0
	for _, r := range history {
		ok := true
		for _, m := range models.AllMetrics {
			v := r.Value(m)
			if !math.IsNaN(v) && !predictive.OptimalRanges[m].Contains(v) {
				ok = false
				break
			}
		}
		if ok {
			inside++
		}
	}
	return float64(inside) / float64(len(history))
}

// anomalyRate is the share of metric samples with |z| above the threshold
func anomalyRate(history []models.Reading) float64 {
	flagged, total := 0, 0
	for _, m := range models.AllMetrics {
		values := stats.Present(readingValues(history, m))
		total += len(values)
		for _, z := range stats.ZScores(values) {
			if math.Abs(z) > zAnomalyThreshold {
				flagged++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(flagged) / float64(total)
}

func readingValues(history []models.Reading, m models.Metric) []float64 {
	out := make([]float64, len(history))
	for i, r := range history {
		out[i] = r.Value(m)
	}
	return out
}
