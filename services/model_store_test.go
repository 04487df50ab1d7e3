package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/mltrain"
	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

func openStore(t *testing.T) *BoltModelStore {
	t.Helper()
	store, err := NewBoltModelStore(filepath.Join(t.TempDir(), "nested", "models.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func artifactsAt(ts time.Time, r2 float64) *mltrain.Artifacts {
	return &mltrain.Artifacts{
		TrainedAt: ts,
		Models: map[models.Metric]*mltrain.TrainedModel{
			models.MetricTemperature: {
				Forest:  &mltrain.RandomForest{Features: 2, Importances: []float64{0.25, 0.75}},
				Metrics: mltrain.ModelMetrics{R2: r2, TrainRows: 40, TestRows: 10},
			},
		},
	}
}

func TestBoltModelStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	first := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	second := first.Add(90 * time.Minute)
	require.NoError(t, store.Save(ctx, artifactsAt(second, 0.8)))
	require.NoError(t, store.Save(ctx, artifactsAt(first, 0.5)))

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.TrainedAt.Equal(second))
	assert.Equal(t, 0.8, latest.Models[models.MetricTemperature].Metrics.R2)

	older, err := store.Load(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 0.5, older.Models[models.MetricTemperature].Metrics.R2)
	assert.Equal(t, []float64{0.25, 0.75}, older.Models[models.MetricTemperature].Forest.Importances)
}

func TestBoltModelStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	_, err := store.Latest(ctx)
	assert.ErrorIs(t, err, mltrain.ErrArtifactsNotFound)

	_, err = store.Load(ctx, time.Now())
	assert.ErrorIs(t, err, mltrain.ErrArtifactsNotFound)

	assert.Error(t, store.Save(ctx, &mltrain.Artifacts{}))
}

func TestBoltModelStorePrune(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, store.Save(ctx, artifactsAt(base.Add(time.Duration(i)*time.Hour), float64(i)/10)))
	}

	deleted, err := store.Prune(2)
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	_, err = store.Load(ctx, base)
	assert.ErrorIs(t, err, mltrain.ErrArtifactsNotFound)
	kept, err := store.Load(ctx, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0.2, kept.Models[models.MetricTemperature].Metrics.R2)
}

func TestBoltModelStoreWithTrainer(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	trainer := mltrain.New(mltrain.DefaultConfig(), zap.NewNop())
	assert.ErrorIs(t, trainer.Persist(ctx, store), mltrain.ErrNoModel)
	assert.Error(t, trainer.LoadLatest(ctx, store))
	assert.False(t, trainer.HasModels())

	require.NoError(t, store.Save(ctx, artifactsAt(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), 0.9)))
	require.NoError(t, trainer.LoadLatest(ctx, store))
	assert.True(t, trainer.HasModels())
	assert.Equal(t, 0.9, trainer.Metrics()[models.MetricTemperature].R2)
}
