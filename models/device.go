package models

import "time"

// DeviceHealthStatus tells whether a device is still reporting
type DeviceHealthStatus string

const (
	DeviceHealthy DeviceHealthStatus = "healthy"
	DeviceTimeout DeviceHealthStatus = "timeout"
)

// DeviceHealth tracks the reporting state of one sensor device
type DeviceHealth struct {
	DeviceID      string             `json:"device_id"`
	LastReading   *Reading           `json:"last_reading,omitempty"`
	LastReadingAt time.Time          `json:"last_reading_at"`
	Status        DeviceHealthStatus `json:"status"`
	TimeoutAt     time.Time          `json:"timeout_at,omitempty"` // when the device was marked silent
}
