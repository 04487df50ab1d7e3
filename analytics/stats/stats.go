// Package stats wraps the gonum primitives shared by the analytics stages and
// adds the guards they all need: empty input, zero means and non-finite results.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mean returns the arithmetic mean, 0 for empty input
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// PopStd is the population standard deviation (ddof 0)
func PopStd(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(xs, nil)
	return std
}

// SampleStd is the sample standard deviation (ddof 1), 0 below two values
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// MinMax returns the extremes of xs, zeros when empty
func MinMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return floats.Min(xs), floats.Max(xs)
}

// Quantile returns the p-quantile with linear interpolation between closest
// ranks, h = (n-1)p. gonum's LinInterp kind interpolates the empirical CDF
// instead, which disagrees on small samples.
func Quantile(p float64, xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := float64(len(sorted)-1) * Clamp(p, 0, 1)
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// CV is the coefficient of variation std/|mean| using the sample std.
// A zero mean counts as maximal dispersion.
func CV(xs []float64) float64 {
	mean := Mean(xs)
	if mean == 0 {
		return 1
	}
	return SampleStd(xs) / math.Abs(mean)
}

// Slope fits y = a + b*i over the sample index and returns b
func Slope(ys []float64) float64 {
	if len(ys) < 2 {
		return 0
	}
	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return Finite(beta, 0)
}

// ZScores returns population z-scores; a constant series scores all zeros
func ZScores(xs []float64) []float64 {
	out := make([]float64, len(xs))
	if len(xs) == 0 {
		return out
	}
	mean, std := stat.PopMeanStdDev(xs, nil)
	if std == 0 || math.IsNaN(std) {
		return out
	}
	for i, x := range xs {
		out[i] = (x - mean) / std
	}
	return out
}

// TTest runs Student's two-sample t-test with pooled variance and returns
// the t statistic and the two-sided p-value. Degenerate samples return p = 1.
func TTest(a, b []float64) (float64, float64) {
	n1, n2 := float64(len(a)), float64(len(b))
	df := n1 + n2 - 2
	if len(a) < 1 || len(b) < 1 || df < 1 {
		return 0, 1
	}
	m1, m2 := Mean(a), Mean(b)
	v1, v2 := sampleVar(a), sampleVar(b)
	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 {
		if m1 == m2 {
			return 0, 1
		}
		return math.Copysign(math.MaxFloat64, m1-m2), 0
	}
	t := (m1 - m2) / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - dist.CDF(math.Abs(t)))
	return t, Clamp(Finite(p, 1), 0, 1)
}

func sampleVar(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.Variance(xs, nil)
}

// Mode returns the most frequent value, the smallest one on ties
func Mode(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	counts := make(map[float64]int, len(xs))
	for _, x := range xs {
		counts[x]++
	}
	best, bestCount := 0.0, 0
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v < best) {
			best, bestCount = v, c
		}
	}
	return best
}

// Grade maps a 0-100 score to a letter
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Round rounds to the given number of decimal places
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// Clamp limits x to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// Finite returns def for NaN and infinities
func Finite(x, def float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return def
	}
	return x
}

// Present drops NaN values
func Present(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			out = append(out, x)
		}
	}
	return out
}
