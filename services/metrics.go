package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

const metricsNamespace = "coffee_storage"

// Metrics holds the pipeline instruments on a private registry
type Metrics struct {
	registry *prometheus.Registry

	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	readings        prometheus.Gauge
	outliers        prometheus.Counter
	qualityScore    prometheus.Gauge
	efficiencyScore prometheus.Gauge
	conditions      *prometheus.GaugeVec
	recommendations *prometheus.CounterVec
	thresholdAlerts *prometheus.CounterVec
	dispatchErrors  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_runs_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one pipeline run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		readings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "analysis_readings",
			Help:      "Cleaned readings in the last run.",
		}),
		outliers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outliers_removed_total",
			Help:      "Readings dropped for falling outside sensor bounds.",
		}),
		qualityScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "storage_quality_score",
			Help:      "Weighted storage quality score of the latest conditions.",
		}),
		efficiencyScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "energy_efficiency_score",
			Help:      "Stability based energy efficiency score.",
		}),
		conditions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "current_condition",
			Help:      "Latest cleaned value per metric.",
		}, []string{"metric"}),
		recommendations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "recommendations_total",
			Help:      "Recommendations emitted by priority.",
		}, []string{"priority"}),
		thresholdAlerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "threshold_alerts_total",
			Help:      "Threshold breaches on the latest reading by type.",
		}, []string{"type"}),
		dispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_errors_total",
			Help:      "Report deliveries that failed after all retries.",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		m.runs, m.runDuration, m.readings, m.outliers, m.qualityScore,
		m.efficiencyScore, m.conditions, m.recommendations, m.thresholdAlerts, m.dispatchErrors,
	)
	return m
}

// Registry exposes the underlying registry for scraping and tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReport records the outcome of a finished run
func (m *Metrics) ObserveReport(r *models.Report, elapsed time.Duration) {
	if m == nil || r == nil {
		return
	}
	m.runDuration.Observe(elapsed.Seconds())
	if r.Insufficient != nil {
		m.runs.WithLabelValues("insufficient").Inc()
		return
	}
	m.runs.WithLabelValues("ok").Inc()
	m.readings.Set(float64(r.Readings))
	m.outliers.Add(float64(r.OutliersRemoved))

	if r.Quality.Insufficient == nil {
		m.qualityScore.Set(r.Quality.OverallScore)
	}
	if r.Efficiency.Insufficient == nil {
		m.efficiencyScore.Set(r.Efficiency.OverallEfficiencyScore)
	}
	for _, metric := range models.AllMetrics {
		if v, ok := r.Conditions.Get(metric); ok {
			m.conditions.WithLabelValues(string(metric)).Set(v)
		}
	}
	for _, rec := range r.Recommendations {
		m.recommendations.WithLabelValues(string(rec.Priority)).Inc()
	}
	for _, a := range r.ThresholdAnomalies {
		m.thresholdAlerts.WithLabelValues(string(a.Type)).Inc()
	}
}

// ObserveFailure counts a run that ended with an error
func (m *Metrics) ObserveFailure() {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("error").Inc()
}

// ObserveDispatchError counts a sink that gave up on a report
func (m *Metrics) ObserveDispatchError(sink string) {
	if m == nil {
		return
	}
	m.dispatchErrors.WithLabelValues(sink).Inc()
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
