package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const summaryTopActions = 3

// SummaryPublisher publishes a retained report summary per device over MQTT
type SummaryPublisher struct {
	client mqtt.Client
	topic  string
	logger *zap.Logger
}

func NewSummaryPublisher(cfg *config.Config, logger *zap.Logger) (*SummaryPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", cfg.MQTTBroker))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newSummaryPublisher(client, cfg.MQTTTopic, logger), nil
}

func newSummaryPublisher(client mqtt.Client, topic string, logger *zap.Logger) *SummaryPublisher {
	return &SummaryPublisher{client: client, topic: strings.TrimSuffix(topic, "/"), logger: logger}
}

func (p *SummaryPublisher) Name() string { return "mqtt" }

// Topic returns <base>/<device>
func (p *SummaryPublisher) Topic(deviceID string) string {
	if deviceID == "" {
		deviceID = "unknown"
	}
	return p.topic + "/" + deviceID
}

func (p *SummaryPublisher) Send(ctx context.Context, report *models.Report) error {
	payload, err := json.Marshal(report.Summary(summaryTopActions))
	if err != nil {
		return fmt.Errorf("failed to marshal report summary: %w", err)
	}

	topic := p.Topic(report.DeviceID)
	token := p.client.Publish(topic, 1, true, payload)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish summary to %s: %w", topic, err)
	}

	p.logger.Debug("Published report summary",
		zap.String("topic", topic),
		zap.String("report_id", report.ID))
	return nil
}

func (p *SummaryPublisher) Close() {
	p.client.Disconnect(250)
}
