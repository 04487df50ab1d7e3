package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

type recordingSink struct {
	name     string
	failures int

	mu       sync.Mutex
	attempts int
	received []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failures {
		return errors.New("unavailable")
	}
	s.received = append(s.received, r.ID)
	return nil
}

func newTestDispatcher(metrics *Metrics, sinks ...ReportSink) *Dispatcher {
	d := NewDispatcher(zap.NewNop(), metrics, sinks...)
	d.backoff = time.Millisecond
	return d
}

func TestDispatchRetriesUntilDelivered(t *testing.T) {
	flaky := &recordingSink{name: "flaky", failures: 2}
	steady := &recordingSink{name: "steady"}
	d := newTestDispatcher(nil, flaky, steady)

	require.NoError(t, d.Dispatch(context.Background(), &models.Report{ID: "r1"}))
	assert.Equal(t, 3, flaky.attempts)
	assert.Equal(t, []string{"r1"}, flaky.received)
	assert.Equal(t, 1, steady.attempts)
	assert.Equal(t, []string{"flaky", "steady"}, d.Sinks())
}

func TestDispatchGivesUp(t *testing.T) {
	metrics := NewMetrics()
	broken := &recordingSink{name: "broken", failures: 10}
	steady := &recordingSink{name: "steady"}
	d := newTestDispatcher(metrics, broken, steady)

	err := d.Dispatch(context.Background(), &models.Report{ID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 3, broken.attempts)
	assert.Equal(t, []string{"r1"}, steady.received, "other sinks still receive the report")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.dispatchErrors.WithLabelValues("broken")))
}

func TestDispatchStopsOnCancel(t *testing.T) {
	broken := &recordingSink{name: "broken", failures: 10}
	d := newTestDispatcher(nil, broken)
	d.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Dispatch(ctx, &models.Report{ID: "r1"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, broken.attempts)
}

func TestDispatcherStart(t *testing.T) {
	sink := &recordingSink{name: "sink"}
	d := newTestDispatcher(nil)
	d.Register(sink)

	reports := make(chan *models.Report, 2)
	reports <- &models.Report{ID: "a"}
	reports <- &models.Report{ID: "b"}
	close(reports)

	go d.Start(context.Background(), reports)
	require.True(t, d.WaitForShutdown(time.Second))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, sink.received)
}
