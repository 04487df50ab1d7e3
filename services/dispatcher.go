package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// ReportSink delivers a finished report somewhere outside the process
type ReportSink interface {
	Name() string
	Send(ctx context.Context, report *models.Report) error
}

// Dispatcher fans reports out to every registered sink with retry
type Dispatcher struct {
	sinks        []ReportSink
	logger       *zap.Logger
	metrics      *Metrics
	maxRetries   int
	backoff      time.Duration
	shutdownChan chan bool
}

func NewDispatcher(logger *zap.Logger, metrics *Metrics, sinks ...ReportSink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		sinks:        sinks,
		logger:       logger,
		metrics:      metrics,
		maxRetries:   3,
		backoff:      time.Second,
		shutdownChan: make(chan bool, 1),
	}
}

// Register adds a sink. It must be called before Start.
func (d *Dispatcher) Register(sink ReportSink) {
	d.sinks = append(d.sinks, sink)
}

// Sinks returns the names of the registered sinks
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Start delivers reports from the channel until ctx is cancelled or the channel closes
func (d *Dispatcher) Start(ctx context.Context, reports <-chan *models.Report) {
	d.logger.Info("Starting report dispatcher",
		zap.Strings("sinks", d.Sinks()),
		zap.Int("max_retries", d.maxRetries))

	defer func() { d.shutdownChan <- true }()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Report dispatcher received shutdown signal")
			return

		case report, ok := <-reports:
			if !ok {
				d.logger.Warn("Report channel closed")
				return
			}
			if err := d.Dispatch(ctx, report); err != nil {
				d.logger.Error("Report delivery incomplete",
					zap.String("report_id", report.ID),
					zap.Error(err))
			}
		}
	}
}

// Dispatch sends the report to every sink concurrently. Sinks fail independently;
// the first error is returned after all of them finish.
func (d *Dispatcher) Dispatch(ctx context.Context, report *models.Report) error {
	var g errgroup.Group
	for _, sink := range d.sinks {
		g.Go(func() error {
			return d.deliver(ctx, sink, report)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, sink ReportSink, report *models.Report) error {
	var err error

	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		err = sink.Send(ctx, report)
		if err == nil {
			d.logger.Debug("Delivered report",
				zap.String("sink", sink.Name()),
				zap.String("report_id", report.ID))
			return nil
		}

		d.logger.Warn("Failed to deliver report",
			zap.String("sink", sink.Name()),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", d.maxRetries),
			zap.Error(err))

		if attempt < d.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * d.backoff):
			}
		}
	}

	d.metrics.ObserveDispatchError(sink.Name())
	return fmt.Errorf("%s: giving up after %d attempts: %w", sink.Name(), d.maxRetries, err)
}

// WaitForShutdown waits for the dispatcher loop to return
func (d *Dispatcher) WaitForShutdown(timeout time.Duration) bool {
	select {
	case <-d.shutdownChan:
		return true
	case <-time.After(timeout):
		return false
	}
}
