package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

func TestThresholdMonitorCheck(t *testing.T) {
	monitor := NewThresholdMonitor(testConfig())
	ts := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		reading models.Reading
		want    []models.AnomalyType
	}{
		{
			name:    "within limits",
			reading: models.Reading{Temperature: 21, Humidity: 60, DustLevel: 10},
			want:    nil,
		},
		{
			name:    "hot and dry",
			reading: models.Reading{Temperature: 26, Humidity: 50, DustLevel: 10},
			want:    []models.AnomalyType{models.TemperatureTooHigh, models.HumidityTooLow},
		},
		{
			name:    "cold, humid and dusty",
			reading: models.Reading{Temperature: 15, Humidity: 75, DustLevel: 80},
			want:    []models.AnomalyType{models.TemperatureTooLow, models.HumidityTooHigh, models.DustTooHigh},
		},
		{
			name:    "missing channels are skipped",
			reading: models.Reading{Temperature: math.NaN(), Humidity: math.NaN(), DustLevel: 90},
			want:    []models.AnomalyType{models.DustTooHigh},
		},
		{
			name:    "limits are exclusive",
			reading: models.Reading{Temperature: 25, Humidity: 55, DustLevel: 50},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.reading.DeviceID = "store-1"
			tt.reading.Timestamp = ts

			anomalies := monitor.Check(tt.reading)
			var got []models.AnomalyType
			for _, a := range anomalies {
				got = append(got, a.Type)
				assert.Equal(t, "store-1", a.DeviceID)
				assert.Equal(t, ts, a.Timestamp)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want) > 0, monitor.IsAnomalous(tt.reading))
		})
	}
}

func TestThresholdMonitorDescription(t *testing.T) {
	monitor := NewThresholdMonitor(testConfig())

	anomalies := monitor.Check(models.Reading{Temperature: 26.44, Humidity: 60, DustLevel: 10})
	require.Len(t, anomalies, 1)
	assert.Equal(t, "Temperature 26.4°C exceeds maximum threshold of 25.0°C", anomalies[0].Description)
	assert.Equal(t, 25.0, anomalies[0].Threshold)
	assert.Equal(t, 26.44, anomalies[0].Value)
}
