package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const (
	digestThrottle   = 15 * time.Second
	digestMaxActions = 5
)

type TelegramService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	config *config.Config
	logger *zap.Logger

	throttle *alertThrottle
}

func NewTelegramService(cfg *config.Config, logger *zap.Logger) (*TelegramService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram bot: %w", err)
	}

	chatID, err := strconv.ParseInt(cfg.TelegramChatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing chat ID: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", bot.Self.UserName))

	ts := &TelegramService{
		bot:      bot,
		chatID:   chatID,
		config:   cfg,
		logger:   logger,
		throttle: newAlertThrottle(digestThrottle, time.Now),
	}

	if err := ts.testConnection(); err != nil {
		logger.Error("Telegram connection test failed", zap.Error(err))
		return nil, fmt.Errorf("telegram connection test failed: %w", err)
	}

	return ts, nil
}

// testConnection tests Telegram connection with retry logic
func (ts *TelegramService) testConnection() error {
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ts.logger.Info("Testing Telegram connection", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries))

		_, err := ts.bot.GetMe()
		if err == nil {
			ts.logger.Info("Telegram connection successful")
			return nil
		}

		ts.logger.Warn("Telegram connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}

	return fmt.Errorf("failed to connect to Telegram after %d attempts", maxRetries)
}

func (ts *TelegramService) Name() string { return "telegram" }

// Send posts the operator digest. Routine reports and repeats within the
// throttle window for the same device are skipped.
func (ts *TelegramService) Send(_ context.Context, report *models.Report) error {
	if !needsDigest(report) {
		return nil
	}
	if !ts.throttle.Allow(report.DeviceID) {
		ts.logger.Debug("Throttling digest", zap.String("device_id", report.DeviceID))
		return nil
	}

	msg := tgbotapi.NewMessage(ts.chatID, formatReportDigest(report))
	msg.ParseMode = "HTML"
	msg.DisableWebPagePreview = true

	if _, err := ts.bot.Send(msg); err != nil {
		ts.throttle.Reset(report.DeviceID)
		return fmt.Errorf("error sending telegram message: %w", err)
	}

	ts.logger.Info("Sent report digest",
		zap.String("device_id", report.DeviceID),
		zap.String("report_id", report.ID))
	return nil
}

// SendStatusMessage sends a general status message
func (ts *TelegramService) SendStatusMessage(message string) error {
	msg := tgbotapi.NewMessage(ts.chatID, message)
	msg.ParseMode = "HTML"

	_, err := ts.bot.Send(msg)
	return err
}

// SendStartupMessage sends a message when the service starts
func (ts *TelegramService) SendStartupMessage() error {
	message := "🟢 <b>Coffee Storage Analytics Started</b>\n\n" +
		fmt.Sprintf("⏱️ Analysis every %s\n", ts.config.AnalysisInterval) +
		"🤖 Telegram digests active\n\n" +
		"✅ System is ready and operational!"

	return ts.SendStatusMessage(message)
}

// needsDigest is true for urgent work, threshold breaches or high overall risk
func needsDigest(r *models.Report) bool {
	if r.Insufficient != nil {
		return false
	}
	if r.HasUrgent() || len(r.ThresholdAnomalies) > 0 {
		return true
	}
	return r.SmartInsights != nil && r.SmartInsights.RiskAssessment.OverallRisk == models.RiskHigh
}

// formatReportDigest renders a mobile friendly HTML digest
func formatReportDigest(r *models.Report) string {
	var sb strings.Builder

	sb.WriteString("☕ <b>COFFEE STORAGE REPORT</b>\n\n")

	device := r.DeviceID
	if device == "" {
		device = "unknown"
	}
	sb.WriteString(fmt.Sprintf("📱 <b>Device:</b> %s\n", device))
	sb.WriteString(fmt.Sprintf("🕐 <b>Time:</b> %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05")))

	sb.WriteString("📊 <b>Current Conditions:</b>\n")
	for _, m := range models.AllMetrics {
		if v, ok := r.Conditions.Get(m); ok {
			sb.WriteString(fmt.Sprintf("• %s: %.1f%s\n", m.Title(), v, m.Unit()))
		}
	}
	if r.Quality.Insufficient == nil {
		sb.WriteString(fmt.Sprintf("⭐ Quality: %.1f (%s)\n", r.Quality.OverallScore, r.Quality.Grade))
	}
	if r.SmartInsights != nil {
		sb.WriteString(fmt.Sprintf("⚠️ Risk: %s\n", r.SmartInsights.RiskAssessment.OverallRisk))
	}

	if len(r.ThresholdAnomalies) > 0 {
		sb.WriteString("\n🚨 <b>Threshold Alerts:</b>\n")
		for i := range r.ThresholdAnomalies {
			a := &r.ThresholdAnomalies[i]
			sb.WriteString(fmt.Sprintf("%s %s\n", a.GetAnomalyEmoji(), a.Description))
		}
	}

	if len(r.Recommendations) > 0 {
		sb.WriteString("\n💡 <b>Top Actions:</b>\n")
		for i, rec := range r.Recommendations {
			if i >= digestMaxActions {
				break
			}
			sb.WriteString(fmt.Sprintf("%s <b>%s</b>\n   └ %s\n", priorityMarker(rec.Priority), rec.Action, rec.Message))
		}
	}

	if r.HasUrgent() {
		sb.WriteString("\n🔴 <b>Status:</b> ATTENTION REQUIRED")
	} else {
		sb.WriteString("\n🟡 <b>Status:</b> REVIEW")
	}
	return sb.String()
}

func priorityMarker(p models.Priority) string {
	switch p {
	case models.PriorityUrgent:
		return "🔴"
	case models.PriorityHigh:
		return "🟠"
	case models.PriorityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

// alertThrottle allows one alert per key within the window
type alertThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

func newAlertThrottle(window time.Duration, now func() time.Time) *alertThrottle {
	return &alertThrottle{window: window, last: make(map[string]time.Time), now: now}
}

// Allow records the alert and reports whether it may be sent
func (t *alertThrottle) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[key]; ok && now.Sub(last) < t.window {
		return false
	}
	t.last[key] = now
	return true
}

// Reset forgets the key so a failed send can be retried at once
func (t *alertThrottle) Reset(key string) {
	t.mu.Lock()
	delete(t.last, key)
	t.mu.Unlock()
}

// SendDeviceTimeoutAlert reports a device whose readings stopped arriving
func (ts *TelegramService) SendDeviceTimeoutAlert(device models.DeviceHealth, silentFor time.Duration) error {
	var sb strings.Builder

	sb.WriteString("⚠️ <b>DEVICE STOPPED REPORTING</b> ⚠️\n\n")
	sb.WriteString(fmt.Sprintf("📱 <b>Device:</b> %s\n", device.DeviceID))
	sb.WriteString(fmt.Sprintf("🕐 <b>Last Reading:</b> %s\n", device.LastReadingAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("⏱️ <b>Silent For:</b> %s\n\n", formatDuration(silentFor)))

	if r := device.LastReading; r != nil {
		sb.WriteString("📊 <b>Last Known Values:</b>\n")
		conditions := r.Conditions()
		for _, m := range models.AllMetrics {
			if v, ok := conditions.Get(m); ok {
				sb.WriteString(fmt.Sprintf("• %s: %.1f%s\n", m.Title(), v, m.Unit()))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("💡 <b>Action Required:</b>\n")
	sb.WriteString("Check the sensor power and network connection.\n\n")
	sb.WriteString("🔴 <b>Status:</b> DEVICE SILENT")

	if err := ts.SendStatusMessage(sb.String()); err != nil {
		return fmt.Errorf("error sending device timeout alert: %w", err)
	}

	ts.logger.Info("Sent device timeout alert",
		zap.String("device_id", device.DeviceID),
		zap.Duration("silent_for", silentFor))
	return nil
}

// SendDeviceRecoveryAlert reports a device that resumed reporting
func (ts *TelegramService) SendDeviceRecoveryAlert(deviceID string, downFor time.Duration) error {
	var sb strings.Builder

	sb.WriteString("✅ <b>DEVICE RECOVERED</b> ✅\n\n")
	sb.WriteString(fmt.Sprintf("📱 <b>Device:</b> %s\n", deviceID))
	sb.WriteString(fmt.Sprintf("⏱️ <b>Downtime:</b> %s\n\n", formatDuration(downFor)))
	sb.WriteString("🟢 <b>Status:</b> DEVICE ONLINE")

	if err := ts.SendStatusMessage(sb.String()); err != nil {
		return fmt.Errorf("error sending device recovery alert: %w", err)
	}

	ts.logger.Info("Sent device recovery alert",
		zap.String("device_id", deviceID),
		zap.Duration("down_duration", downFor))
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0f seconds", d.Seconds())
	} else if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%d min %d sec", minutes, seconds)
	} else if d < 24*time.Hour {
		hours := int(d.Hours())
		minutes := int(d.Minutes()) % 60
		return fmt.Sprintf("%d hr %d min", hours, minutes)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%d days %d hr", days, hours)
}
