package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

func TestNeedsDigest(t *testing.T) {
	assert.True(t, needsDigest(urgentReport()))
	assert.True(t, needsDigest(&models.Report{ThresholdAnomalies: []models.Anomaly{{Type: models.DustTooHigh}}}))
	assert.True(t, needsDigest(&models.Report{SmartInsights: &models.SmartInsights{
		RiskAssessment: models.RiskAssessment{OverallRisk: models.RiskHigh},
	}}))
	assert.False(t, needsDigest(&models.Report{}))
	assert.False(t, needsDigest(&models.Report{
		Insufficient:       models.NewInsufficientData("preprocess", "no readings", 1, 0),
		ThresholdAnomalies: []models.Anomaly{{Type: models.DustTooHigh}},
	}))
}

func TestFormatReportDigest(t *testing.T) {
	report := urgentReport()
	report.GeneratedAt = time.Date(2024, 7, 10, 14, 0, 0, 0, time.UTC)
	report.Quality = models.QualityScore{OverallScore: 42.5, Grade: "F"}
	report.ThresholdAnomalies = []models.Anomaly{{
		Type:        models.TemperatureTooHigh,
		Description: "Temperature 29.0°C exceeds maximum threshold of 25.0°C",
	}}
	report.Recommendations[0].Message = "Humidity far above the safe band."

	msg := formatReportDigest(report)

	assert.Contains(t, msg, "<b>Device:</b> store-1")
	assert.Contains(t, msg, "2024-07-10 14:00:00")
	assert.Contains(t, msg, "Temperature: 29.0°C")
	assert.Contains(t, msg, "Humidity: 78.0%")
	assert.Contains(t, msg, "Quality: 42.5 (F)")
	assert.Contains(t, msg, "🔥 Temperature 29.0°C exceeds maximum threshold of 25.0°C")
	assert.Contains(t, msg, "🔴 <b>reduce_humidity</b>\n   └ Humidity far above the safe band.")
	assert.Contains(t, msg, "🟠 <b>decrease_temperature</b>")
	assert.Contains(t, msg, "ATTENTION REQUIRED")
}

func TestFormatReportDigestCapsActions(t *testing.T) {
	report := &models.Report{}
	for i := 0; i < 8; i++ {
		report.Recommendations = append(report.Recommendations, models.Recommendation{Action: "act", Priority: models.PriorityMedium})
	}
	msg := formatReportDigest(report)
	assert.Equal(t, digestMaxActions, strings.Count(msg, "<b>act</b>"))
	assert.Contains(t, msg, "<b>Device:</b> unknown")
	assert.Contains(t, msg, "REVIEW")
}

func TestAlertThrottle(t *testing.T) {
	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	throttle := newAlertThrottle(15*time.Second, func() time.Time { return now })

	assert.True(t, throttle.Allow("store-1"))
	assert.True(t, throttle.Allow("store-2"), "devices are throttled independently")

	now = now.Add(10 * time.Second)
	assert.False(t, throttle.Allow("store-1"))

	now = now.Add(6 * time.Second)
	assert.True(t, throttle.Allow("store-1"))

	throttle.Reset("store-1")
	assert.True(t, throttle.Allow("store-1"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45 seconds", formatDuration(45*time.Second))
	assert.Equal(t, "2 min 5 sec", formatDuration(125*time.Second))
	assert.Equal(t, "3 hr 20 min", formatDuration(200*time.Minute))
	assert.Equal(t, "2 days 1 hr", formatDuration(49*time.Hour))
}
