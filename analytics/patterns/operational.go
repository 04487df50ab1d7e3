package patterns

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/stats"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const operationalStage = "operational_patterns"

var archetypeDescriptions = map[models.ClusterArchetype]string{
	models.ArchetypeOptimal:           "Ideal storage conditions with temperature, humidity, and air quality within optimal ranges",
	models.ArchetypeHighStress:        "High temperature and humidity conditions that may stress coffee beans",
	models.ArchetypeSuboptimalLow:     "Below-optimal temperature or humidity that may affect coffee quality",
	models.ArchetypeHighContamination: "Elevated dust levels requiring air filtration attention",
	models.ArchetypeNormal:            "Standard operating conditions within acceptable ranges",
}

type clusterFeature struct {
	name     string
	calendar bool
	value    func(models.FeatureRow) float64
}

var clusterFeatures = []clusterFeature{
	{name: "temperature", value: func(r models.FeatureRow) float64 { return r.Temperature }},
	{name: "humidity", value: func(r models.FeatureRow) float64 { return r.Humidity }},
	{name: "dust_level", value: func(r models.FeatureRow) float64 { return r.DustLevel }},
	{name: "hour", calendar: true, value: func(r models.FeatureRow) float64 { return float64(r.Hour) }},
	{name: "day_of_week", calendar: true, value: func(r models.FeatureRow) float64 { return float64(r.DayOfWeek) }},
}

// OperationalPatterns clusters operating states with k-means over the
// z-scored features and classifies each cluster into a fixed archetype.
func (r *Recognizer) OperationalPatterns(rows []models.FeatureRow) models.OperationalReport {
	var usable []clusterFeature
	for _, f := range clusterFeatures {
		for _, row := range rows {
			if v := f.value(row); !math.IsNaN(v) && !math.IsInf(v, 0) {
				usable = append(usable, f)
				break
			}
		}
	}
	if len(usable) < 3 {
		return models.OperationalReport{
			Insufficient: models.NewInsufficientData(operationalStage, "insufficient features for pattern detection", 3, len(usable)),
		}
	}

	var data [][]float64
	for _, row := range rows {
		vec := make([]float64, len(usable))
		ok := true
		for j, f := range usable {
			v := f.value(row)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				ok = false
				break
			}
			vec[j] = v
		}
		if ok {
			data = append(data, vec)
		}
	}
	if len(data) < 10 {
		return models.OperationalReport{
			Insufficient: models.NewInsufficientData(operationalStage, "insufficient data for clustering", 10, len(data)),
		}
	}

	k := min(r.cfg.MaxClusters, len(data)/10)
	labels := kMeans(standardize(data), k, r.cfg.Seed, r.cfg.KMeansInit, r.cfg.KMeansMaxIter)

	report := models.OperationalReport{Clusters: k, Assignments: labels}
	for c := 0; c < k; c++ {
		var members [][]float64
		for i, l := range labels {
			if l == c {
				members = append(members, data[i])
			}
		}
		if len(members) == 0 {
			continue
		}

		chars := characterize(usable, members)
		archetype := classifyCluster(chars)
		report.Patterns = append(report.Patterns, models.OperationalPattern{
			ID:              fmt.Sprintf("pattern_%d", c),
			Type:            archetype,
			Size:            len(members),
			Percentage:      float64(len(members)) / float64(len(data)) * 100,
			Characteristics: chars,
			Description:     archetypeDescriptions[archetype],
		})
	}

	r.logger.Debug("Clustered operational states", zap.Int("rows", len(data)), zap.Int("clusters", k))
	return report
}

func characterize(features []clusterFeature, members [][]float64) models.ClusterCharacteristics {
	var chars models.ClusterCharacteristics
	col := make([]float64, len(members))
	for j, f := range features {
		for i, m := range members {
			col[i] = m[j]
		}
		lo, hi := stats.MinMax(col)
		if f.calendar {
			cs := &models.CalendarStats{Mode: stats.Mode(col), Range: [2]float64{lo, hi}}
			switch f.name {
			case "hour":
				chars.Hour = cs
			case "day_of_week":
				chars.DayOfWeek = cs
			}
			continue
		}
		fs := &models.FeatureStats{Mean: stats.Mean(col), Std: stats.SampleStd(col), Range: [2]float64{lo, hi}}
		switch f.name {
		case "temperature":
			chars.Temperature = fs
		case "humidity":
			chars.Humidity = fs
		case "dust_level":
			chars.DustLevel = fs
		}
	}
	return chars
}

// classifyCluster applies the archetype rules in order; absent features take neutral means
func classifyCluster(c models.ClusterCharacteristics) models.ClusterArchetype {
	temp, humidity, dust := 20.0, 60.0, 50.0
	if c.Temperature != nil {
		temp = c.Temperature.Mean
	}
	if c.Humidity != nil {
		humidity = c.Humidity.Mean
	}
	if c.DustLevel != nil {
		dust = c.DustLevel.Mean
	}

	switch {
	case temp > 25 && humidity > 70:
		return models.ArchetypeHighStress
	case temp < 18 || humidity < 50:
		return models.ArchetypeSuboptimalLow
	case temp >= 20 && temp <= 24 && humidity >= 55 && humidity <= 70 && dust < 40:
		return models.ArchetypeOptimal
	case dust > 75:
		return models.ArchetypeHighContamination
	default:
		return models.ArchetypeNormal
	}
}

// standardize z-scores each column with the population std; constant columns become 0
func standardize(data [][]float64) [][]float64 {
	n, d := len(data), len(data[0])
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, d)
	}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := range data {
			col[i] = data[i][j]
		}
		mean, std := stats.Mean(col), stats.PopStd(col)
		if std == 0 {
			std = 1
		}
		for i := range data {
			out[i][j] = (data[i][j] - mean) / std
		}
	}
	return out
}

// kMeans runs seeded k-means++ restarts of Lloyd's algorithm and keeps the
// labelling with the lowest inertia.
func kMeans(points [][]float64, k int, seed int64, restarts, maxIter int) []int {
	rng := rand.New(rand.NewSource(seed))
	var best []int
	bestInertia := math.Inf(1)
	for run := 0; run < restarts; run++ {
		labels, inertia := lloyd(points, seedCentroids(points, k, rng), maxIter)
		if inertia < bestInertia {
			best, bestInertia = labels, inertia
		}
	}
	return best
}

// seedCentroids picks initial centroids with k-means++ weighting
func seedCentroids(points [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.Intn(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			dist[i] = math.Inf(1)
			for _, c := range centroids {
				dist[i] = math.Min(dist[i], sqDist(p, c))
			}
			total += dist[i]
		}
		if total == 0 {
			centroids = append(centroids, clone(points[rng.Intn(len(points))]))
			continue
		}
		target := rng.Float64() * total
		chosen := len(points) - 1
		for i, d := range dist {
			target -= d
			if target <= 0 {
				chosen = i
				break
			}
		}
		centroids = append(centroids, clone(points[chosen]))
	}
	return centroids
}

func lloyd(points, centroids [][]float64, maxIter int) ([]int, float64) {
	k, d := len(centroids), len(points[0])
	labels := make([]int, len(points))
	for iter := 0; iter < maxIter; iter++ {
		changed := iter == 0
		for i, p := range points {
			if nearest := nearestCentroid(p, centroids); nearest != labels[i] {
				labels[i] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, d)
		}
		for i, p := range points {
			counts[labels[i]]++
			for j, v := range p {
				sums[labels[i]][j] += v
			}
		}
		// an emptied cluster keeps its previous centroid
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range centroids[c] {
				centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}

	inertia := 0.0
	for i, p := range points {
		labels[i] = nearestCentroid(p, centroids)
		inertia += sqDist(p, centroids[labels[i]])
	}
	return labels, inertia
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return sum
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
