package preprocess

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var ErrEmptyMatrix = errors.New("empty feature matrix")

// FeatureColumns is the fixed column order of the prediction feature matrix
var FeatureColumns = []string{
	"temperature", "humidity", "dust_level",
	"hour", "day_of_week", "month", "is_weekend",
	"temp_rolling_24h", "humidity_rolling_24h", "dust_rolling_24h",
	"temp_change_rate", "humidity_change_rate", "dust_change_rate",
}

// FeatureVector flattens a row into FeatureColumns order; NaN becomes 0
func FeatureVector(row models.FeatureRow) []float64 {
	weekend := 0.0
	if row.IsWeekend {
		weekend = 1
	}
	v := []float64{
		row.Temperature, row.Humidity, row.DustLevel,
		float64(row.Hour), float64(row.DayOfWeek), float64(row.Month), weekend,
		row.Rolling.Temperature, row.Rolling.Humidity, row.Rolling.DustLevel,
		row.ChangeRate.Temperature, row.ChangeRate.Humidity, row.ChangeRate.DustLevel,
	}
	for i, x := range v {
		if math.IsNaN(x) {
			v[i] = 0
		}
	}
	return v
}

// FeaturesForPrediction builds the rows x 13 feature matrix. It returns nil for an empty series.
func FeaturesForPrediction(rows []models.FeatureRow) *mat.Dense {
	if len(rows) == 0 {
		return nil
	}
	data := make([]float64, 0, len(rows)*len(FeatureColumns))
	for _, r := range rows {
		data = append(data, FeatureVector(r)...)
	}
	return mat.NewDense(len(rows), len(FeatureColumns), data)
}

// NormParams are the per-column z-score parameters of a fitted normalization
type NormParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Normalize standardizes every column to zero mean and unit population variance.
// Constant columns get scale 1.
func Normalize(m *mat.Dense) (*mat.Dense, *NormParams, error) {
	if m == nil || m.IsEmpty() {
		return nil, nil, ErrEmptyMatrix
	}
	r, c := m.Dims()
	params := &NormParams{Mean: make([]float64, c), Scale: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		params.Mean[j] = mean
		params.Scale[j] = std
	}
	out, err := params.Apply(m)
	if err != nil {
		return nil, nil, err
	}
	return out, params, nil
}

// Apply normalizes new data with the fitted parameters
func (p *NormParams) Apply(m *mat.Dense) (*mat.Dense, error) {
	if err := p.check(m); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(m)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - p.Mean[j]) / p.Scale[j]
	}, out)
	return out, nil
}

// Inverse maps normalized data back to the original units
func (p *NormParams) Inverse(m *mat.Dense) (*mat.Dense, error) {
	if err := p.check(m); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(m)
	out.Apply(func(_, j int, v float64) float64 {
		return v*p.Scale[j] + p.Mean[j]
	}, out)
	return out, nil
}

func (p *NormParams) check(m *mat.Dense) error {
	if m == nil || m.IsEmpty() {
		return ErrEmptyMatrix
	}
	if _, c := m.Dims(); c != len(p.Mean) {
		return fmt.Errorf("feature matrix has %d columns, normalization expects %d", c, len(p.Mean))
	}
	return nil
}
