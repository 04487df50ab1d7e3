package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

type fakeNotifier struct {
	timeouts   []string
	silentFor  []time.Duration
	recoveries []string
	downFor    []time.Duration
}

func (n *fakeNotifier) SendDeviceTimeoutAlert(device models.DeviceHealth, silentFor time.Duration) error {
	n.timeouts = append(n.timeouts, device.DeviceID)
	n.silentFor = append(n.silentFor, silentFor)
	return nil
}

func (n *fakeNotifier) SendDeviceRecoveryAlert(deviceID string, downFor time.Duration) error {
	n.recoveries = append(n.recoveries, deviceID)
	n.downFor = append(n.downFor, downFor)
	return nil
}

func TestDeviceWatchdog(t *testing.T) {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	now := start
	notifier := &fakeNotifier{}
	w := NewDeviceWatchdog(time.Hour, notifier, zap.NewNop())
	w.now = func() time.Time { return now }

	w.Observe([]models.Reading{
		{DeviceID: "store-1", Timestamp: start.Add(-10 * time.Minute), Temperature: 21},
		{DeviceID: "store-1", Timestamp: start.Add(-5 * time.Minute), Temperature: 22},
		{DeviceID: "store-2", Timestamp: start.Add(-2 * time.Hour)},
		{Timestamp: start},
	})

	health, ok := w.DeviceHealth("store-1")
	require.True(t, ok)
	assert.Equal(t, start.Add(-5*time.Minute), health.LastReadingAt)
	assert.Equal(t, 22.0, health.LastReading.Temperature)
	_, ok = w.DeviceHealth("")
	assert.False(t, ok, "readings without a device are not tracked")

	assert.Equal(t, []string{"store-2"}, w.CheckTimeouts())
	assert.Empty(t, w.CheckTimeouts(), "a silent device alerts once")
	assert.Equal(t, []time.Duration{2 * time.Hour}, notifier.silentFor)

	now = start.Add(30 * time.Minute)
	w.Observe([]models.Reading{{DeviceID: "store-2", Timestamp: now.Add(-time.Minute)}})

	health, _ = w.DeviceHealth("store-2")
	assert.Equal(t, models.DeviceHealthy, health.Status)
	assert.Equal(t, []string{"store-2"}, notifier.recoveries)
	assert.Equal(t, []time.Duration{30 * time.Minute}, notifier.downFor)
}

func TestDeviceWatchdogStaleReplayDoesNotRecover(t *testing.T) {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{}
	w := NewDeviceWatchdog(time.Hour, notifier, nil)
	w.now = func() time.Time { return start }

	w.Observe([]models.Reading{{DeviceID: "store-1", Timestamp: start.Add(-3 * time.Hour)}})
	require.Equal(t, []string{"store-1"}, w.CheckTimeouts())

	w.Observe([]models.Reading{{DeviceID: "store-1", Timestamp: start.Add(-2 * time.Hour)}})
	health, _ := w.DeviceHealth("store-1")
	assert.Equal(t, models.DeviceTimeout, health.Status)
	assert.Empty(t, notifier.recoveries)
}
