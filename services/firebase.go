package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const sensorDataPath = "sensor-data"

// FirebaseService reads stored sensor records from the Realtime Database
type FirebaseService struct {
	client *db.Client
	config *config.Config
	logger *zap.Logger
}

func NewFirebaseService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*FirebaseService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conf := &firebase.Config{
		DatabaseURL: cfg.FirebaseDbUrl,
	}

	opt := option.WithCredentialsJSON([]byte(cfg.FirebaseServiceAccountJSON))
	app, err := firebase.NewApp(ctx, conf, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	fs := &FirebaseService{
		client: client,
		config: cfg,
		logger: logger,
	}

	if err := fs.testConnection(ctx); err != nil {
		logger.Error("Firebase connection test failed", zap.Error(err))
		return nil, fmt.Errorf("firebase connection test failed: %w", err)
	}

	return fs, nil
}

// testConnection tests Firebase connection with retry logic
func (fs *FirebaseService) testConnection(ctx context.Context) error {
	maxRetries := 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		fs.logger.Info("Testing Firebase connection", zap.Int("attempt", attempt), zap.Int("max_retries", maxRetries))

		var data interface{}
		err := fs.client.NewRef("/").Get(ctx, &data)
		if err == nil {
			fs.logger.Info("Firebase connection successful")
			return nil
		}

		fs.logger.Warn("Firebase connection failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err))

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return fmt.Errorf("failed to connect to Firebase after %d attempts", maxRetries)
}

// FetchReadings returns the records stamped at or after since, oldest first.
// A zero since reads the whole path. Malformed records are logged and skipped.
func (fs *FirebaseService) FetchReadings(ctx context.Context, since time.Time) ([]models.Reading, error) {
	ref := fs.client.NewRef(sensorDataPath)

	var data map[string]interface{}
	var err error
	if since.IsZero() {
		err = ref.Get(ctx, &data)
	} else {
		err = ref.OrderByChild("timestamp").StartAt(since.UTC().Format(time.RFC3339)).Get(ctx, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("error getting sensor data: %w", err)
	}

	readings := make([]models.Reading, 0, len(data))
	skipped := 0
	for recordID, record := range data {
		fields, ok := record.(map[string]interface{})
		if !ok {
			skipped++
			continue
		}
		reading, err := parseRawReading(fields).ToReading()
		if err != nil {
			fs.logger.Warn("Invalid sensor record", zap.String("record_id", recordID), zap.Error(err))
			skipped++
			continue
		}
		if !since.IsZero() && reading.Timestamp.Before(since) {
			continue
		}
		readings = append(readings, reading)
	}

	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})

	fs.logger.Info("Fetched sensor readings",
		zap.Int("count", len(readings)),
		zap.Int("skipped", skipped),
		zap.Time("since", since))

	return readings, nil
}

// parseRawReading maps a database record onto the wire shape. Devices that
// still report temperature_dht are accepted.
func parseRawReading(data map[string]interface{}) models.RawReading {
	raw := models.RawReading{}
	raw.DeviceID, _ = data["device_id"].(string)
	raw.Timestamp, _ = data["timestamp"].(string)
	raw.CreatedAt, _ = data["created_at"].(string)

	raw.Temperature = numberField(data, "temperature", "temperature_dht")
	raw.Humidity = numberField(data, "humidity")
	raw.DustLevel = numberField(data, "dust_level", "dust")
	return raw
}

func numberField(data map[string]interface{}, keys ...string) *float64 {
	for _, key := range keys {
		switch v := data[key].(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

// Close closes the Firebase connection
func (fs *FirebaseService) Close() error {
	fs.logger.Info("Closing Firebase service")
	// Firebase client doesn't require explicit closing but we log it
	return nil
}
