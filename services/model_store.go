package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/MfrankUg/Coffee-Storage-TDMS/analytics/mltrain"
)

var artifactsBucket = []byte("model_artifacts")

// keyLayout is fixed width so byte order matches time order
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// BoltModelStore keeps trained artifacts in a bbolt file keyed by training time
type BoltModelStore struct {
	db     *bolt.DB
	logger *zap.Logger
}

func NewBoltModelStore(path string, logger *zap.Logger) (*BoltModelStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create model store directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open model store: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(artifactsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize model store bucket: %w", err)
	}

	logger.Info("Model store opened", zap.String("path", path))

	return &BoltModelStore{db: db, logger: logger}, nil
}

func artifactKey(trainedAt time.Time) []byte {
	return []byte(trainedAt.UTC().Format(keyLayout))
}

// Save writes the artifacts under their training time, replacing an earlier save of the same run
func (s *BoltModelStore) Save(ctx context.Context, a *mltrain.Artifacts) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a == nil || a.TrainedAt.IsZero() {
		return fmt.Errorf("artifacts without training time")
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal model artifacts: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(artifactsBucket).Put(artifactKey(a.TrainedAt), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write model artifacts: %w", err)
	}

	s.logger.Debug("Stored model artifacts",
		zap.Time("trained_at", a.TrainedAt),
		zap.Int("bytes", len(data)))
	return nil
}

// Load returns the artifacts of one training run
func (s *BoltModelStore) Load(ctx context.Context, trainedAt time.Time) (*mltrain.Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a *mltrain.Artifacts
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(artifactsBucket).Get(artifactKey(trainedAt))
		if data == nil {
			return mltrain.ErrArtifactsNotFound
		}
		return decodeArtifacts(data, &a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Latest returns the most recently trained artifacts
func (s *BoltModelStore) Latest(ctx context.Context) (*mltrain.Artifacts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var a *mltrain.Artifacts
	err := s.db.View(func(tx *bolt.Tx) error {
		_, data := tx.Bucket(artifactsBucket).Cursor().Last()
		if data == nil {
			return mltrain.ErrArtifactsNotFound
		}
		return decodeArtifacts(data, &a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Prune keeps the newest keep runs and deletes the rest
func (s *BoltModelStore) Prune(keep int) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(artifactsBucket)
		var stale [][]byte
		seen := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			seen++
			if seen > keep {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return deleted, fmt.Errorf("failed to prune model artifacts: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("Pruned model artifacts", zap.Int("deleted", deleted), zap.Int("kept", keep))
	}
	return deleted, nil
}

func decodeArtifacts(data []byte, out **mltrain.Artifacts) error {
	var a mltrain.Artifacts
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("failed to decode model artifacts: %w", err)
	}
	*out = &a
	return nil
}

func (s *BoltModelStore) Close() error {
	return s.db.Close()
}
