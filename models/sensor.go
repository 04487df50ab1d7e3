package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Metric identifies one of the three environmental channels reported by the sensors
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricDust        Metric = "dust_level"
)

// AllMetrics is the fixed processing order used by every analysis stage
var AllMetrics = []Metric{MetricTemperature, MetricHumidity, MetricDust}

// Title returns a display name for messages
func (m Metric) Title() string {
	switch m {
	case MetricTemperature:
		return "Temperature"
	case MetricHumidity:
		return "Humidity"
	case MetricDust:
		return "Dust_Level"
	default:
		return string(m)
	}
}

// Unit returns the measurement unit of the metric
func (m Metric) Unit() string {
	switch m {
	case MetricTemperature:
		return "°C"
	case MetricHumidity:
		return "%"
	case MetricDust:
		return "µg/m³"
	default:
		return ""
	}
}

var (
	ErrMissingTimestamp = errors.New("missing timestamp")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

// RawReading is the wire shape of a sensor record. Numeric fields are nullable so
// gaps survive decoding and can be filled by the preprocessor.
type RawReading struct {
	DeviceID    string   `json:"device_id,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	DustLevel   *float64 `json:"dust_level"`
}

// ToReading converts a wire record, failing on a missing or unparseable timestamp
func (r RawReading) ToReading() (Reading, error) {
	ts := r.Timestamp
	if ts == "" {
		ts = r.CreatedAt
	}
	if ts == "" {
		return Reading{}, ErrMissingTimestamp
	}

	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Reading{}, fmt.Errorf("%w %q: %v", ErrInvalidTimestamp, ts, err)
	}

	return Reading{
		DeviceID:    r.DeviceID,
		Timestamp:   parsed,
		Temperature: valueOrNaN(r.Temperature),
		Humidity:    valueOrNaN(r.Humidity),
		DustLevel:   valueOrNaN(r.DustLevel),
	}, nil
}

// ToReadings converts a batch, reporting the index of the first malformed record
func ToReadings(raw []RawReading) ([]Reading, error) {
	readings := make([]Reading, 0, len(raw))
	for i, r := range raw {
		reading, err := r.ToReading()
		if err != nil {
			return nil, fmt.Errorf("reading %d: %w", i, err)
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// Reading is a single sensor sample. A missing channel is NaN until cleaned.
type Reading struct {
	DeviceID    string    `json:"device_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	DustLevel   float64   `json:"dust_level"`
}

// Value returns the channel value for a metric
func (r Reading) Value(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	case MetricDust:
		return r.DustLevel
	default:
		return math.NaN()
	}
}

// SetValue writes the channel value for a metric
func (r *Reading) SetValue(m Metric, v float64) {
	switch m {
	case MetricTemperature:
		r.Temperature = v
	case MetricHumidity:
		r.Humidity = v
	case MetricDust:
		r.DustLevel = v
	}
}

// Conditions returns the reading as current conditions
func (r Reading) Conditions() Conditions {
	return NewConditions(r.Temperature, r.Humidity, r.DustLevel)
}

// MetricTriple holds one float per metric
type MetricTriple struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	DustLevel   float64 `json:"dust_level"`
}

// Get returns the value for a metric
func (t MetricTriple) Get(m Metric) float64 {
	switch m {
	case MetricTemperature:
		return t.Temperature
	case MetricHumidity:
		return t.Humidity
	case MetricDust:
		return t.DustLevel
	default:
		return 0
	}
}

// Set stores the value for a metric
func (t *MetricTriple) Set(m Metric, v float64) {
	switch m {
	case MetricTemperature:
		t.Temperature = v
	case MetricHumidity:
		t.Humidity = v
	case MetricDust:
		t.DustLevel = v
	}
}

// FeatureRow is a cleaned reading with time-based, rolling and derivative features
type FeatureRow struct {
	Reading
	Hour       int          `json:"hour"`
	DayOfWeek  int          `json:"day_of_week"` // Monday = 0
	Month      int          `json:"month"`
	IsWeekend  bool         `json:"is_weekend"`
	Rolling    MetricTriple `json:"rolling_24h"`
	ChangeRate MetricTriple `json:"change_rate"`
}

// Conditions holds the current value of each metric; nil means not reported
type Conditions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	DustLevel   *float64 `json:"dust_level,omitempty"`
}

// NewConditions builds conditions with all three metrics present
func NewConditions(temperature, humidity, dust float64) Conditions {
	return Conditions{
		Temperature: &temperature,
		Humidity:    &humidity,
		DustLevel:   &dust,
	}
}

// Get returns the metric value and whether it was reported
func (c Conditions) Get(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricTemperature:
		p = c.Temperature
	case MetricHumidity:
		p = c.Humidity
	case MetricDust:
		p = c.DustLevel
	}
	if p == nil || math.IsNaN(*p) {
		return 0, false
	}
	return *p, true
}

// GetOr returns the metric value or def when missing
func (c Conditions) GetOr(m Metric, def float64) float64 {
	if v, ok := c.Get(m); ok {
		return v
	}
	return def
}

// CurrentFeatures is the input for model inference. Optional fields default inside the trainer.
type CurrentFeatures struct {
	Conditions
	Hour       *int               `json:"hour,omitempty"`
	DayOfWeek  *int               `json:"day_of_week,omitempty"`
	Month      *int               `json:"month,omitempty"`
	IsWeekend  *bool              `json:"is_weekend,omitempty"`
	Rolling    map[Metric]float64 `json:"rolling_24h,omitempty"`
	ChangeRate map[Metric]float64 `json:"change_rate,omitempty"`
}

// CurrentFeaturesFromRow builds inference input from the latest feature row
func CurrentFeaturesFromRow(row FeatureRow) CurrentFeatures {
	hour, day, month, weekend := row.Hour, row.DayOfWeek, row.Month, row.IsWeekend
	cf := CurrentFeatures{
		Conditions: row.Reading.Conditions(),
		Hour:       &hour,
		DayOfWeek:  &day,
		Month:      &month,
		IsWeekend:  &weekend,
		Rolling:    make(map[Metric]float64, len(AllMetrics)),
		ChangeRate: make(map[Metric]float64, len(AllMetrics)),
	}
	for _, m := range AllMetrics {
		cf.Rolling[m] = row.Rolling.Get(m)
		cf.ChangeRate[m] = row.ChangeRate.Get(m)
	}
	return cf
}

// AnomalyType represents different types of threshold breaches
type AnomalyType string

const (
	TemperatureTooHigh AnomalyType = "temperature_high"
	TemperatureTooLow  AnomalyType = "temperature_low"
	HumidityTooHigh    AnomalyType = "humidity_high"
	HumidityTooLow     AnomalyType = "humidity_low"
	DustTooHigh        AnomalyType = "dust_high"
)

// Anomaly represents a threshold breach on the latest reading
type Anomaly struct {
	Type        AnomalyType `json:"type"`
	Value       float64     `json:"value"`
	Threshold   float64     `json:"threshold"`
	DeviceID    string      `json:"device_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Description string      `json:"description"`
}

// GetAnomalyEmoji returns appropriate emoji for anomaly type
func (a *Anomaly) GetAnomalyEmoji() string {
	switch a.Type {
	case TemperatureTooHigh:
		return "🔥"
	case TemperatureTooLow:
		return "🧊"
	case HumidityTooHigh:
		return "💧"
	case HumidityTooLow:
		return "🏜️"
	case DustTooHigh:
		return "💨"
	default:
		return "⚠️"
	}
}

// MetricValues extracts one metric column from a feature series
func MetricValues(rows []FeatureRow, m Metric) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value(m)
	}
	return out
}

// Readings strips the derived features from a feature series
func Readings(rows []FeatureRow) []Reading {
	out := make([]Reading, len(rows))
	for i, r := range rows {
		out[i] = r.Reading
	}
	return out
}
