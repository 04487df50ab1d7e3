package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// HardwareAlertService drives the on-site alarm over HTTP
type HardwareAlertService struct {
	logger     *zap.Logger
	apiURL     string
	httpClient *http.Client
}

// HardwareAlertPayload represents the payload sent to hardware alert API
type HardwareAlertPayload struct {
	ReportID   string            `json:"report_id"`
	DeviceID   string            `json:"device_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Conditions models.Conditions `json:"conditions"`
	Anomalies  []models.Anomaly  `json:"anomalies,omitempty"`
	Risk       models.RiskLabel  `json:"overall_risk,omitempty"`
	Severity   string            `json:"severity"`
	AlertType  string            `json:"alert_type"`
	Actions    []string          `json:"actions,omitempty"`
}

func NewHardwareAlertService(logger *zap.Logger, apiURL string) *HardwareAlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HardwareAlertService{
		logger: logger,
		apiURL: strings.TrimSuffix(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (h *HardwareAlertService) Name() string { return "hardware" }

// Send raises the alarm when the report carries high or critical severity;
// anything lower is not forwarded.
func (h *HardwareAlertService) Send(ctx context.Context, report *models.Report) error {
	severity := determineSeverity(report)
	if severity != "critical" && severity != "high" {
		return nil
	}

	payload := HardwareAlertPayload{
		ReportID:   report.ID,
		DeviceID:   report.DeviceID,
		Timestamp:  report.GeneratedAt,
		Conditions: report.Conditions,
		Anomalies:  report.ThresholdAnomalies,
		Severity:   severity,
		AlertType:  "storage_risk",
	}
	if report.SmartInsights != nil {
		payload.Risk = report.SmartInsights.RiskAssessment.OverallRisk
	}
	for _, rec := range report.Recommendations {
		if rec.Priority == models.PriorityUrgent {
			payload.Actions = append(payload.Actions, rec.Action)
		}
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/hardware-alert", h.apiURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Coffee-Storage-Analytics/1.0")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.logger.Error("Failed to send hardware alert",
			zap.Error(err),
			zap.String("device_id", report.DeviceID),
			zap.String("url", endpoint))
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		h.logger.Info("Hardware alert sent successfully",
			zap.String("device_id", report.DeviceID),
			zap.String("severity", severity),
			zap.Int("status_code", resp.StatusCode))
		return nil
	}

	h.logger.Error("Hardware alert API returned error",
		zap.String("device_id", report.DeviceID),
		zap.Int("status_code", resp.StatusCode))
	return fmt.Errorf("hardware alert API error: %s", resp.Status)
}

// determineSeverity grades a report: critical forecasts or urgent work are
// critical, threshold breaches or high overall risk are high.
func determineSeverity(r *models.Report) string {
	if r.Insufficient != nil {
		return "low"
	}
	for _, f := range r.Forecasts.Metrics {
		if f.RiskLevel == models.RiskCritical {
			return "critical"
		}
	}
	if r.HasUrgent() {
		return "critical"
	}
	if r.SmartInsights != nil && r.SmartInsights.RiskAssessment.OverallRisk == models.RiskHigh {
		return "high"
	}
	for _, a := range r.ThresholdAnomalies {
		switch a.Type {
		case models.TemperatureTooHigh, models.HumidityTooHigh, models.DustTooHigh:
			return "high"
		}
	}
	if len(r.ThresholdAnomalies) > 0 {
		return "medium"
	}
	return "low"
}
