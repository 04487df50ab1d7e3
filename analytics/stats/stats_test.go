package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndStd(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(xs), 1e-12)
	assert.InDelta(t, 2.0, PopStd(xs), 1e-12)
	assert.InDelta(t, 2.138089935, SampleStd(xs), 1e-9)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, PopStd(nil))
	assert.Zero(t, SampleStd([]float64{3}))
}

func TestQuantile(t *testing.T) {
	xs := []float64{4, 1, 3, 2}

	assert.InDelta(t, 1.75, Quantile(0.25, xs), 1e-12)
	assert.InDelta(t, 2.5, Quantile(0.5, xs), 1e-12)
	assert.InDelta(t, 4.0, Quantile(1, xs), 1e-12)
	assert.InDelta(t, 1.0, Quantile(0, xs), 1e-12)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input must not be reordered")
}

func TestCV(t *testing.T) {
	assert.Equal(t, 1.0, CV([]float64{0, 0, 0}))
	assert.Equal(t, 1.0, CV(nil))
	assert.InDelta(t, 0.0, CV([]float64{5, 5, 5}), 1e-12)
	assert.InDelta(t, 0.5, CV([]float64{1, 2, 3}), 1e-12)
}

func TestSlope(t *testing.T) {
	assert.InDelta(t, 2.0, Slope([]float64{1, 3, 5, 7}), 1e-12)
	assert.InDelta(t, -0.5, Slope([]float64{10, 9.5, 9, 8.5}), 1e-12)
	assert.Zero(t, Slope([]float64{1}))
}

func TestZScores(t *testing.T) {
	z := ZScores([]float64{1, 2, 3})
	assert.InDelta(t, -math.Sqrt(1.5), z[0], 1e-12)
	assert.InDelta(t, 0, z[1], 1e-12)

	assert.Equal(t, []float64{0, 0}, ZScores([]float64{4, 4}))
}

func TestTTest(t *testing.T) {
	a := []float64{20.1, 20.3, 19.9, 20.0, 20.2, 20.4, 19.8}
	b := []float64{23.1, 23.4, 22.9, 23.0, 23.3}

	tStat, p := TTest(a, b)
	assert.Less(t, tStat, 0.0)
	assert.Less(t, p, 0.001)

	_, p = TTest(a, a)
	assert.InDelta(t, 1.0, p, 1e-9)

	_, p = TTest([]float64{1}, []float64{2})
	assert.Equal(t, 1.0, p)

	_, p = TTest([]float64{1, 1}, []float64{2, 2})
	assert.Equal(t, 0.0, p)
}

func TestMode(t *testing.T) {
	assert.Equal(t, 3.0, Mode([]float64{1, 3, 3, 2}))
	assert.Equal(t, 1.0, Mode([]float64{2, 1, 2, 1}), "ties resolve to the smallest value")
	assert.Zero(t, Mode(nil))
}

func TestGrade(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "A"}, {90, "A"}, {89.99, "B"}, {80, "B"}, {70, "C"}, {60, "D"}, {59.9, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.score), "score %v", tt.score)
	}
}

func TestGuards(t *testing.T) {
	assert.Equal(t, 3.14, Round(3.14159, 2))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 7.0, Finite(math.NaN(), 7))
	assert.Equal(t, 7.0, Finite(math.Inf(1), 7))
	assert.Equal(t, []float64{1, 3}, Present([]float64{1, math.NaN(), 3}))
}
