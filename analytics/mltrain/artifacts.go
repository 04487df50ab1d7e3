package mltrain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

var ErrArtifactsNotFound = errors.New("model artifacts not found")

// Artifacts is the serializable state of a trainer, keyed by training time
type Artifacts struct {
	TrainedAt time.Time                       `json:"trained_at"`
	Models    map[models.Metric]*TrainedModel `json:"models"`
	Detector  *IsolationForest                `json:"anomaly_detector,omitempty"`
	Window    Window                          `json:"window"`
}

// Window identifies a training set by its first and last timestamps and size
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
	Rows int       `json:"rows"`
}

// WindowOf describes rows sorted by time, as produced by the preprocessor
func WindowOf(rows []models.FeatureRow) Window {
	if len(rows) == 0 {
		return Window{}
	}
	return Window{From: rows[0].Timestamp, To: rows[len(rows)-1].Timestamp, Rows: len(rows)}
}

// Equal compares instants, so windows survive a JSON round trip
func (w Window) Equal(o Window) bool {
	return w.Rows == o.Rows && w.From.Equal(o.From) && w.To.Equal(o.To)
}

// Metrics returns the per-target metrics without the fitted forests
func (a *Artifacts) Metrics() map[models.Metric]ModelMetrics {
	out := make(map[models.Metric]ModelMetrics, len(a.Models))
	for m, model := range a.Models {
		out[m] = model.Metrics
	}
	return out
}

// ModelStore persists artifacts outside the process
type ModelStore interface {
	Save(ctx context.Context, a *Artifacts) error
	Load(ctx context.Context, trainedAt time.Time) (*Artifacts, error)
	Latest(ctx context.Context) (*Artifacts, error)
}

// Snapshot captures the current models. Fitted models are never mutated after
// training, so the snapshot shares them.
func (t *Trainer) Snapshot() *Artifacts {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a := &Artifacts{
		TrainedAt: t.trainedAt,
		Window:    t.window,
		Models:    make(map[models.Metric]*TrainedModel, len(t.models)),
		Detector:  t.detector,
	}
	for m, model := range t.models {
		a.Models[m] = model
	}
	return a
}

// Restore replaces the trainer state with previously saved artifacts
func (t *Trainer) Restore(a *Artifacts) {
	if a == nil {
		return
	}
	restored := make(map[models.Metric]*TrainedModel, len(a.Models))
	for m, model := range a.Models {
		if model != nil && model.Forest != nil {
			restored[m] = model
		}
	}
	t.mu.Lock()
	t.models = restored
	t.detector = a.Detector
	t.trainedAt = a.TrainedAt
	t.window = a.Window
	t.mu.Unlock()
}

// Persist saves the current snapshot to the store
func (t *Trainer) Persist(ctx context.Context, store ModelStore) error {
	snapshot := t.Snapshot()
	if len(snapshot.Models) == 0 && snapshot.Detector == nil {
		return ErrNoModel
	}
	if err := store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to save model artifacts: %w", err)
	}
	t.logger.Info("Saved model artifacts",
		zap.Time("trained_at", snapshot.TrainedAt),
		zap.Int("models", len(snapshot.Models)))
	return nil
}

// LoadLatest restores the most recent artifacts from the store
func (t *Trainer) LoadLatest(ctx context.Context, store ModelStore) error {
	a, err := store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("failed to load model artifacts: %w", err)
	}
	t.Restore(a)
	t.logger.Info("Loaded model artifacts",
		zap.Time("trained_at", a.TrainedAt),
		zap.Int("models", len(a.Models)))
	return nil
}
