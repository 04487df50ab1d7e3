package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// ReportPublisher publishes full reports to a RabbitMQ topic exchange
type ReportPublisher struct {
	config  *config.Config
	logger  *zap.Logger
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewReportPublisher(cfg *config.Config, logger *zap.Logger) (*ReportPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &ReportPublisher{
		config: cfg,
		logger: logger,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect dials RabbitMQ and declares the exchange; callers hold mu
func (p *ReportPublisher) connect() error {
	var err error

	p.logger.Info("Connecting to RabbitMQ", zap.String("exchange", p.config.RabbitMQExchange))

	maxRetries := 5
	for attempt := 1; attempt <= maxRetries; attempt++ {
		p.conn, err = amqp.Dial(p.config.RabbitMQURL)
		if err == nil {
			break
		}

		p.logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
	}

	p.channel, err = p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	err = p.channel.ExchangeDeclare(
		p.config.RabbitMQExchange, // name
		"topic",                   // type
		true,                      // durable
		false,                     // auto-deleted
		false,                     // internal
		false,                     // no-wait
		nil,                       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	p.logger.Info("Connected to RabbitMQ", zap.String("exchange", p.config.RabbitMQExchange))
	return nil
}

func (p *ReportPublisher) Name() string { return "rabbitmq" }

// Send publishes the report. A dropped connection is re-established on the next call.
func (p *ReportPublisher) Send(ctx context.Context, report *models.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() || p.channel == nil || p.channel.IsClosed() {
		p.logger.Warn("RabbitMQ connection lost, reconnecting")
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.channel.PublishWithContext(ctx,
		p.config.RabbitMQExchange, // exchange
		RoutingKey(report),        // routing key
		false,                     // mandatory
		false,                     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    report.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    report.GeneratedAt,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	p.logger.Debug("Published report to RabbitMQ",
		zap.String("report_id", report.ID),
		zap.Int("bytes", len(body)))
	return nil
}

// RoutingKey is report.<device>.<urgent|routine|insufficient>
func RoutingKey(report *models.Report) string {
	device := report.DeviceID
	if device == "" {
		device = "unknown"
	}
	class := "routine"
	switch {
	case report.Insufficient != nil:
		class = "insufficient"
	case report.HasUrgent():
		class = "urgent"
	}
	return fmt.Sprintf("report.%s.%s", device, class)
}

// Close gracefully closes RabbitMQ connection
func (p *ReportPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.logger.Info("Closing RabbitMQ connection")

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Error("Error closing channel", zap.Error(err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			p.logger.Error("Error closing connection", zap.Error(err))
			return err
		}
	}
	return nil
}
