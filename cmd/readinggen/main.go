package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	deviceID   = pflag.String("device", "store-1", "Device ID stamped on every reading")
	count      = pflag.Int("count", 720, "Number of historical readings to generate")
	step       = pflag.Duration("step", time.Hour, "Spacing between historical readings")
	startAt    = pflag.String("start", "", "RFC3339 time of the first reading (default: count*step before now)")
	seed       = pflag.Int64("seed", 42, "Random seed")
	anomaly    = pflag.Float64("anomaly", 0.05, "Probability of an anomalous reading (0.0-1.0)")
	missing    = pflag.Float64("missing", 0.02, "Probability that a channel value is missing (0.0-1.0)")
	outFile    = pflag.StringP("out", "o", "", "Write the readings to this file instead of stdout")
	publish    = pflag.Bool("publish", false, "Stream live readings to an MQTT broker instead of writing history")
	rps        = pflag.Int("rps", 1, "Messages per second when publishing")
	mqttBroker = pflag.String("broker", "localhost:1883", "MQTT broker address (host:port)")
	mqttUser   = pflag.String("user", "", "MQTT username")
	mqttPass   = pflag.String("pass", "", "MQTT password")
	mqttTopic  = pflag.String("topic", "coffee/storage/readings", "MQTT topic to publish to")
)

func main() {
	pflag.Parse()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	gen := NewGenerator(*deviceID, *anomaly, *missing, *seed)

	if *publish {
		if err := stream(gen, logger); err != nil {
			logger.Fatal("Publishing failed", zap.Error(err))
		}
		return
	}

	start := time.Now().UTC().Truncate(time.Hour).Add(-time.Duration(*count) * *step)
	if *startAt != "" {
		parsed, err := time.Parse(time.RFC3339, *startAt)
		if err != nil {
			logger.Fatal("Invalid --start", zap.String("start", *startAt), zap.Error(err))
		}
		start = parsed
	}

	readings := gen.Series(start, *count, *step)

	out := os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			logger.Fatal("Failed to create output file", zap.String("path", *outFile), zap.Error(err))
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(readings); err != nil {
		logger.Fatal("Failed to write readings", zap.Error(err))
	}

	logger.Info("Generated readings",
		zap.String("device_id", *deviceID),
		zap.Int("count", len(readings)),
		zap.Time("start", start),
		zap.Duration("step", *step))
}

// stream publishes one live reading per tick until interrupted
func stream(gen *Generator, logger *zap.Logger) error {
	if *rps < 1 {
		return fmt.Errorf("rps must be at least 1, got %d", *rps)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", *mqttBroker))
	opts.SetClientID(fmt.Sprintf("%s-generator", *deviceID))
	opts.SetUsername(*mqttUser)
	opts.SetPassword(*mqttPass)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("Connected to MQTT broker", zap.String("broker", *mqttBroker))
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Error("MQTT connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	defer client.Disconnect(250)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interval := time.Second / time.Duration(*rps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Streaming readings",
		zap.String("topic", *mqttTopic),
		zap.Duration("interval", interval))

	sent := 0
	startTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutting down",
				zap.Int("total_messages", sent),
				zap.Duration("total_uptime", time.Since(startTime)))
			return nil
		case now := <-ticker.C:
			payload, err := json.Marshal(gen.Reading(now))
			if err != nil {
				logger.Error("Failed to marshal reading", zap.Error(err))
				continue
			}
			token := client.Publish(*mqttTopic, 1, false, payload)
			if token.Wait() && token.Error() != nil {
				logger.Error("Failed to publish reading", zap.Error(token.Error()))
				continue
			}
			sent++
			if sent%60 == 0 {
				logger.Info("Published readings", zap.Int("total_messages", sent))
			}
		}
	}
}
