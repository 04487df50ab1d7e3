package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "report.store-1.urgent", RoutingKey(urgentReport()))
	assert.Equal(t, "report.unknown.routine", RoutingKey(&models.Report{}))
	assert.Equal(t, "report.store-1.insufficient", RoutingKey(&models.Report{
		DeviceID:     "store-1",
		Insufficient: models.NewInsufficientData("preprocess", "no readings", 1, 0),
	}))
}

func TestSummaryTopic(t *testing.T) {
	p := newSummaryPublisher(nil, "coffee/storage/summary/", zap.NewNop())
	assert.Equal(t, "coffee/storage/summary/store-1", p.Topic("store-1"))
	assert.Equal(t, "coffee/storage/summary/unknown", p.Topic(""))
}

func TestReportSummary(t *testing.T) {
	report := urgentReport()
	report.Quality = models.QualityScore{OverallScore: 55, Grade: "F"}
	report.ThresholdAnomalies = []models.Anomaly{{Type: models.HumidityTooHigh}}
	report.SmartInsights = &models.SmartInsights{RiskAssessment: models.RiskAssessment{OverallRisk: models.RiskHigh}}

	s := report.Summary(1)
	assert.Equal(t, "r1", s.ID)
	assert.Equal(t, "store-1", s.DeviceID)
	assert.Equal(t, 55.0, s.QualityScore)
	assert.Equal(t, models.RiskHigh, s.OverallRisk)
	assert.Equal(t, 1, s.ThresholdAlerts)
	assert.True(t, s.Urgent)
	assert.Equal(t, []string{"reduce_humidity"}, s.TopActions)
}
