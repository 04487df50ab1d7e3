package services

import (
	"fmt"
	"math"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// ThresholdMonitor compares a single reading with the configured storage limits
type ThresholdMonitor struct {
	config *config.Config
}

func NewThresholdMonitor(cfg *config.Config) *ThresholdMonitor {
	return &ThresholdMonitor{
		config: cfg,
	}
}

// Check returns every limit the reading breaches. Missing channels are skipped.
func (tm *ThresholdMonitor) Check(r models.Reading) []models.Anomaly {
	anomalies := []models.Anomaly{}

	newAnomaly := func(t models.AnomalyType, value, threshold float64, description string) models.Anomaly {
		return models.Anomaly{
			Type:        t,
			Value:       value,
			Threshold:   threshold,
			DeviceID:    r.DeviceID,
			Timestamp:   r.Timestamp,
			Description: description,
		}
	}

	if t := r.Temperature; !math.IsNaN(t) {
		if t > tm.config.TemperatureMax {
			anomalies = append(anomalies, newAnomaly(models.TemperatureTooHigh, t, tm.config.TemperatureMax,
				fmt.Sprintf("Temperature %.1f°C exceeds maximum threshold of %.1f°C", t, tm.config.TemperatureMax)))
		}
		if t < tm.config.TemperatureMin {
			anomalies = append(anomalies, newAnomaly(models.TemperatureTooLow, t, tm.config.TemperatureMin,
				fmt.Sprintf("Temperature %.1f°C is below minimum threshold of %.1f°C", t, tm.config.TemperatureMin)))
		}
	}

	if h := r.Humidity; !math.IsNaN(h) {
		if h > tm.config.HumidityMax {
			anomalies = append(anomalies, newAnomaly(models.HumidityTooHigh, h, tm.config.HumidityMax,
				fmt.Sprintf("Humidity %.1f%% exceeds maximum threshold of %.1f%%", h, tm.config.HumidityMax)))
		}
		if h < tm.config.HumidityMin {
			anomalies = append(anomalies, newAnomaly(models.HumidityTooLow, h, tm.config.HumidityMin,
				fmt.Sprintf("Humidity %.1f%% is below minimum threshold of %.1f%%", h, tm.config.HumidityMin)))
		}
	}

	if d := r.DustLevel; !math.IsNaN(d) && d > tm.config.DustMax {
		anomalies = append(anomalies, newAnomaly(models.DustTooHigh, d, tm.config.DustMax,
			fmt.Sprintf("Dust level %.1f µg/m³ exceeds maximum threshold of %.1f µg/m³", d, tm.config.DustMax)))
	}

	return anomalies
}

// IsAnomalous returns true if any limit is breached
func (tm *ThresholdMonitor) IsAnomalous(r models.Reading) bool {
	return len(tm.Check(r)) > 0
}
