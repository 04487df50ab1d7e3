package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/config"
	"github.com/MfrankUg/Coffee-Storage-TDMS/log"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
	"github.com/MfrankUg/Coffee-Storage-TDMS/services"
)

var (
	once         = pflag.Bool("once", false, "Run a single analysis, print the report as JSON and exit")
	readingsFile = pflag.String("readings", "", "Read sensor history from a JSON file instead of Firebase")
	interval     = pflag.Duration("interval", 0, "Analysis interval (overrides ANALYSIS_INTERVAL)")
	lookback     = pflag.Duration("lookback", 30*24*time.Hour, "How much sensor history each run analyzes")
	metricsAddr  = pflag.String("metrics-addr", "", "Serve Prometheus metrics on this address (overrides METRICS_ADDR)")
	timezone     = pflag.String("timezone", "", "IANA timezone for calendar features, e.g. Africa/Kampala")
)

func main() {
	pflag.Parse()

	if *timezone != "" {
		loc, err := time.LoadLocation(*timezone)
		if err != nil {
			panic("Failed to load timezone " + *timezone + ": " + err.Error())
		}
		time.Local = loc
	}

	logger := log.GetInstance()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *readingsFile != "" {
		cfg.ReadingsFile = *readingsFile
	}
	if *interval > 0 {
		cfg.AnalysisInterval = *interval
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, stopping services")
		cancel()
	}()

	source, closeSource := newReadingSource(ctx, cfg, logger)
	defer closeSource()

	var opts []services.AnalyzerOption
	metrics := services.NewMetrics()
	opts = append(opts, services.WithMetrics(metrics))
	if cfg.ModelStorePath != "" {
		store, err := services.NewBoltModelStore(cfg.ModelStorePath, logger.Named("model_store"))
		if err != nil {
			logger.Fatal("Failed to open model store", zap.Error(err))
		}
		defer store.Close()
		opts = append(opts, services.WithModelStore(store))
	}
	analyzer := services.NewAnalyzer(cfg, logger, opts...)

	if *once {
		report, err := runAnalysis(ctx, source, nil, analyzer, logger)
		if err != nil {
			logger.Fatal("Analysis failed", zap.Error(err))
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			logger.Fatal("Failed to write report", zap.Error(err))
		}
		return
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	dispatcher, telegram, closeSinks := newDispatcher(cfg, metrics, logger)
	defer closeSinks()

	var notifier services.DeviceNotifier
	if telegram != nil {
		notifier = telegram
		if err := telegram.SendStartupMessage(); err != nil {
			logger.Warn("Failed to send startup message", zap.Error(err))
		}
	}
	watchdog := services.NewDeviceWatchdog(cfg.DeviceTimeout, notifier, logger.Named("watchdog"))
	go watchdog.Run(ctx, time.Minute)

	reports := make(chan *models.Report, 4)
	go dispatcher.Start(ctx, reports)

	logger.Info("Coffee storage analytics service started",
		zap.Duration("interval", cfg.AnalysisInterval),
		zap.Duration("lookback", *lookback),
		zap.Strings("sinks", dispatcher.Sinks()),
		zap.Float64("temp_min", cfg.TemperatureMin),
		zap.Float64("temp_max", cfg.TemperatureMax),
		zap.Float64("humidity_min", cfg.HumidityMin),
		zap.Float64("humidity_max", cfg.HumidityMax),
		zap.Float64("dust_max", cfg.DustMax),
	)

	ticker := time.NewTicker(cfg.AnalysisInterval)
	defer ticker.Stop()

	for {
		report, err := runAnalysis(ctx, source, watchdog, analyzer, logger)
		if err != nil {
			logger.Error("Analysis failed", zap.Error(err))
		} else {
			select {
			case reports <- report:
			default:
				logger.Warn("Dispatcher busy, dropping report", zap.String("report_id", report.ID))
			}
		}

		select {
		case <-ctx.Done():
			logger.Info("Starting cleanup")
			if !dispatcher.WaitForShutdown(5 * time.Second) {
				logger.Warn("Cleanup timeout, forcing exit")
			}
			logger.Info("Coffee storage analytics service stopped")
			return
		case <-ticker.C:
		}
	}
}

func runAnalysis(
	ctx context.Context,
	source services.ReadingSource,
	watchdog *services.DeviceWatchdog,
	analyzer *services.Analyzer,
	logger *zap.Logger,
) (*models.Report, error) {
	since := time.Now().Add(-*lookback)
	readings, err := source.FetchReadings(ctx, since)
	if err != nil {
		return nil, err
	}
	if watchdog != nil {
		watchdog.Observe(readings)
	}
	logger.Debug("Running analysis", zap.Int("readings", len(readings)), zap.Time("since", since))
	return analyzer.Run(ctx, readings)
}

func newReadingSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.ReadingSource, func()) {
	if cfg.ReadingsFile != "" {
		logger.Info("Reading sensor history from file", zap.String("path", cfg.ReadingsFile))
		return services.NewFileSource(cfg.ReadingsFile), func() {}
	}

	if cfg.FirebaseDbUrl == "" || cfg.FirebaseServiceAccountJSON == "" {
		logger.Fatal("Firebase configuration or a readings file is required")
	}
	firebaseService, err := services.NewFirebaseService(ctx, cfg, logger.Named("firebase"))
	if err != nil {
		logger.Fatal("Failed to initialize Firebase service", zap.Error(err))
	}
	return firebaseService, func() {
		if err := firebaseService.Close(); err != nil {
			logger.Error("Error closing Firebase service", zap.Error(err))
		}
	}
}

// newDispatcher registers every sink that is configured. A sink that fails to
// connect is logged and left out.
func newDispatcher(cfg *config.Config, metrics *services.Metrics, logger *zap.Logger) (*services.Dispatcher, *services.TelegramService, func()) {
	dispatcher := services.NewDispatcher(logger.Named("dispatcher"), metrics)
	var closers []func()

	if cfg.RabbitMQURL != "" {
		publisher, err := services.NewReportPublisher(cfg, logger.Named("rabbitmq"))
		if err != nil {
			logger.Error("Failed to initialize RabbitMQ publisher", zap.Error(err))
		} else {
			dispatcher.Register(publisher)
			closers = append(closers, func() { publisher.Close() })
		}
	}

	if cfg.MQTTBroker != "" {
		publisher, err := services.NewSummaryPublisher(cfg, logger.Named("mqtt"))
		if err != nil {
			logger.Error("Failed to initialize MQTT publisher", zap.Error(err))
		} else {
			dispatcher.Register(publisher)
			closers = append(closers, publisher.Close)
		}
	}

	var telegram *services.TelegramService
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		var err error
		telegram, err = services.NewTelegramService(cfg, logger.Named("telegram"))
		if err != nil {
			logger.Error("Failed to initialize Telegram service", zap.Error(err))
		} else {
			dispatcher.Register(telegram)
		}
	}

	if cfg.HardwareAlertURL != "" {
		dispatcher.Register(services.NewHardwareAlertService(logger.Named("hardware"), cfg.HardwareAlertURL))
		logger.Info("Hardware alert service initialized", zap.String("url", cfg.HardwareAlertURL))
	}

	return dispatcher, telegram, func() {
		for _, c := range closers {
			c()
		}
	}
}
