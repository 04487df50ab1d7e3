package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AnalysisConfig holds the knobs of the analytics core. It can be overlaid from a YAML file.
type AnalysisConfig struct {
	WindowDays         int     `yaml:"window_days"`
	ForecastHoursAhead int     `yaml:"forecast_hours_ahead"`
	Contamination      float64 `yaml:"anomaly_contamination"`
	MaxClusters        int     `yaml:"max_clusters"`
	RollingWindow      int     `yaml:"rolling_window"`
	RandomSeed         int64   `yaml:"random_seed"`
	ForestTrees        int     `yaml:"forest_trees"`
	HistoryCapacity    int     `yaml:"history_capacity"`
	MaxRecommendations int     `yaml:"max_recommendations"`
	TrainModels        bool    `yaml:"train_models"`
	CoffeeType         string  `yaml:"coffee_type"`
	Processing         string  `yaml:"processing"`
	StorageMonths      int     `yaml:"storage_months"`
	Container          string  `yaml:"container"`

	// RetrainInterval reuses fitted models younger than this even when new
	// readings arrived; 0 retrains whenever the training window moves.
	RetrainInterval time.Duration `yaml:"retrain_interval"`
}

type Config struct {
	FirebaseDbUrl              string
	FirebaseServiceAccountJSON string
	TelegramBotToken           string
	TelegramChatID             string
	RabbitMQURL                string
	RabbitMQExchange           string
	MQTTBroker                 string
	MQTTClientID               string
	MQTTUsername               string
	MQTTPassword               string
	MQTTTopic                  string
	HardwareAlertURL           string
	ModelStorePath             string
	MetricsAddr                string
	ReadingsFile               string
	AnalysisInterval           time.Duration
	DeviceTimeout              time.Duration
	// Thresholds for the live threshold monitor
	TemperatureMin float64
	TemperatureMax float64
	HumidityMin    float64
	HumidityMax    float64
	DustMax        float64

	Analysis AnalysisConfig
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	config := &Config{
		FirebaseDbUrl:              getEnv("FIREBASE_DB_URL", ""),
		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		TelegramBotToken:           getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:             getEnv("TELEGRAM_CHAT_ID", ""),
		RabbitMQURL:                getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:           getEnv("RABBITMQ_EXCHANGE", "coffee_storage"),
		MQTTBroker:                 getEnv("MQTT_BROKER", ""),
		MQTTClientID:               getEnv("MQTT_CLIENT_ID", "coffee-analytics"),
		MQTTUsername:               getEnv("MQTT_USERNAME", ""),
		MQTTPassword:               getEnv("MQTT_PASSWORD", ""),
		MQTTTopic:                  getEnv("MQTT_TOPIC", "coffee/storage/summary"),
		HardwareAlertURL:           getEnv("HARDWARE_ALERT_URL", ""),
		ModelStorePath:             getEnv("MODEL_STORE_PATH", "models.db"),
		MetricsAddr:                getEnv("METRICS_ADDR", ""),
		ReadingsFile:               getEnv("READINGS_FILE", ""),
		AnalysisInterval:           getEnvDuration("ANALYSIS_INTERVAL", time.Hour),
		DeviceTimeout:              getEnvDuration("DEVICE_TIMEOUT", 2*time.Hour),
		// Default thresholds tuned for green coffee storage
		TemperatureMin: getEnvFloat("TEMPERATURE_MIN", 18.0),
		TemperatureMax: getEnvFloat("TEMPERATURE_MAX", 25.0),
		HumidityMin:    getEnvFloat("HUMIDITY_MIN", 55.0),
		HumidityMax:    getEnvFloat("HUMIDITY_MAX", 70.0),
		DustMax:        getEnvFloat("DUST_MAX", 50.0),

		Analysis: AnalysisConfig{
			WindowDays:         getEnvInt("ANALYSIS_WINDOW_DAYS", 7),
			ForecastHoursAhead: getEnvInt("FORECAST_HOURS_AHEAD", 24),
			Contamination:      getEnvFloat("ANOMALY_CONTAMINATION", 0.10),
			MaxClusters:        getEnvInt("MAX_CLUSTERS", 5),
			RollingWindow:      getEnvInt("ROLLING_WINDOW", 24),
			RandomSeed:         int64(getEnvInt("RANDOM_SEED", 42)),
			ForestTrees:        getEnvInt("FOREST_TREES", 100),
			HistoryCapacity:    getEnvInt("HISTORY_CAPACITY", 100),
			MaxRecommendations: getEnvInt("MAX_RECOMMENDATIONS", 10),
			TrainModels:        getEnvBool("TRAIN_MODELS", true),
			RetrainInterval:    getEnvDuration("MODEL_RETRAIN_INTERVAL", 0),
			CoffeeType:         getEnv("COFFEE_TYPE", "arabica"),
			Processing:         getEnv("COFFEE_PROCESSING", "washed"),
			StorageMonths:      getEnvInt("COFFEE_STORAGE_MONTHS", 0),
			Container:          getEnv("COFFEE_CONTAINER", ""),
		},
	}

	if path := getEnv("ANALYSIS_CONFIG_FILE", ""); path != "" {
		if err := config.Analysis.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFile overlays the analysis knobs with the keys present in a YAML file
func (a *AnalysisConfig) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read analysis config: %w", err)
	}
	if err := yaml.Unmarshal(data, a); err != nil {
		return fmt.Errorf("failed to parse analysis config %s: %w", path, err)
	}
	return nil
}

// Validate checks that every knob is within a usable range
func (c *Config) Validate() error {
	var errs []error
	a := c.Analysis
	if a.WindowDays <= 0 {
		errs = append(errs, fmt.Errorf("window_days must be positive, got %d", a.WindowDays))
	}
	if a.ForecastHoursAhead <= 0 {
		errs = append(errs, fmt.Errorf("forecast_hours_ahead must be positive, got %d", a.ForecastHoursAhead))
	}
	if a.Contamination <= 0 || a.Contamination > 0.5 {
		errs = append(errs, fmt.Errorf("anomaly_contamination must be in (0, 0.5], got %g", a.Contamination))
	}
	if a.MaxClusters < 1 {
		errs = append(errs, fmt.Errorf("max_clusters must be at least 1, got %d", a.MaxClusters))
	}
	if a.RollingWindow < 1 {
		errs = append(errs, fmt.Errorf("rolling_window must be at least 1, got %d", a.RollingWindow))
	}
	if a.ForestTrees < 1 {
		errs = append(errs, fmt.Errorf("forest_trees must be at least 1, got %d", a.ForestTrees))
	}
	if a.HistoryCapacity < 0 {
		errs = append(errs, fmt.Errorf("history_capacity must not be negative, got %d", a.HistoryCapacity))
	}
	if a.MaxRecommendations < 1 {
		errs = append(errs, fmt.Errorf("max_recommendations must be at least 1, got %d", a.MaxRecommendations))
	}
	if a.RetrainInterval < 0 {
		errs = append(errs, fmt.Errorf("retrain_interval must not be negative, got %s", a.RetrainInterval))
	}
	if a.StorageMonths < 0 {
		errs = append(errs, fmt.Errorf("storage_months must not be negative, got %d", a.StorageMonths))
	}
	if c.TemperatureMin >= c.TemperatureMax {
		errs = append(errs, fmt.Errorf("temperature thresholds inverted: %g >= %g", c.TemperatureMin, c.TemperatureMax))
	}
	if c.HumidityMin >= c.HumidityMax {
		errs = append(errs, fmt.Errorf("humidity thresholds inverted: %g >= %g", c.HumidityMin, c.HumidityMax))
	}
	if c.AnalysisInterval <= 0 {
		errs = append(errs, fmt.Errorf("analysis interval must be positive, got %s", c.AnalysisInterval))
	}
	if c.DeviceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("device timeout must be positive, got %s", c.DeviceTimeout))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
