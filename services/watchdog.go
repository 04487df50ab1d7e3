package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// DeviceNotifier is told when a device stops or resumes reporting
type DeviceNotifier interface {
	SendDeviceTimeoutAlert(device models.DeviceHealth, silentFor time.Duration) error
	SendDeviceRecoveryAlert(deviceID string, downFor time.Duration) error
}

// DeviceWatchdog flags devices whose newest reading is older than the timeout
type DeviceWatchdog struct {
	timeout  time.Duration
	notifier DeviceNotifier
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.RWMutex
	devices map[string]*models.DeviceHealth
}

func NewDeviceWatchdog(timeout time.Duration, notifier DeviceNotifier, logger *zap.Logger) *DeviceWatchdog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceWatchdog{
		timeout:  timeout,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		devices:  make(map[string]*models.DeviceHealth),
	}
}

// Observe records the newest reading per device from a fetched batch
func (w *DeviceWatchdog) Observe(readings []models.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	for i := range readings {
		r := readings[i]
		if r.DeviceID == "" {
			continue
		}

		device, exists := w.devices[r.DeviceID]
		if !exists {
			device = &models.DeviceHealth{
				DeviceID: r.DeviceID,
				Status:   models.DeviceHealthy,
			}
			w.devices[r.DeviceID] = device
			w.logger.Info("New device registered for monitoring", zap.String("device_id", r.DeviceID))
		}
		if !r.Timestamp.After(device.LastReadingAt) {
			continue
		}
		device.LastReading = &r
		device.LastReadingAt = r.Timestamp

		if device.Status == models.DeviceTimeout && now.Sub(r.Timestamp) <= w.timeout {
			downFor := now.Sub(device.TimeoutAt)
			device.Status = models.DeviceHealthy
			w.logger.Info("Device resumed reporting",
				zap.String("device_id", r.DeviceID),
				zap.Duration("down_duration", downFor))
			if w.notifier != nil {
				if err := w.notifier.SendDeviceRecoveryAlert(r.DeviceID, downFor); err != nil {
					w.logger.Error("Failed to send recovery alert", zap.String("device_id", r.DeviceID), zap.Error(err))
				}
			}
		}
	}
}

// Run checks for silent devices every interval until ctx is cancelled
func (w *DeviceWatchdog) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("Device watchdog started", zap.Duration("timeout", w.timeout))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Device watchdog stopped")
			return
		case <-ticker.C:
			w.CheckTimeouts()
		}
	}
}

// CheckTimeouts marks silent devices and returns the ids that just timed out
func (w *DeviceWatchdog) CheckTimeouts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	var timedOut []string

	for deviceID, device := range w.devices {
		if device.Status == models.DeviceTimeout {
			continue
		}

		silentFor := now.Sub(device.LastReadingAt)
		if silentFor <= w.timeout {
			continue
		}

		w.logger.Warn("Device stopped reporting",
			zap.String("device_id", deviceID),
			zap.Time("last_reading_at", device.LastReadingAt),
			zap.Duration("silent_for", silentFor))

		device.Status = models.DeviceTimeout
		device.TimeoutAt = now
		timedOut = append(timedOut, deviceID)

		if w.notifier != nil {
			if err := w.notifier.SendDeviceTimeoutAlert(*device, silentFor); err != nil {
				w.logger.Error("Failed to send timeout alert", zap.String("device_id", deviceID), zap.Error(err))
			}
		}
	}
	return timedOut
}

// DeviceHealth returns a copy of the tracked state of a device
func (w *DeviceWatchdog) DeviceHealth(deviceID string) (models.DeviceHealth, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	device, exists := w.devices[deviceID]
	if !exists {
		return models.DeviceHealth{}, false
	}
	return *device, true
}
