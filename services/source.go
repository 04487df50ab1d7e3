package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MfrankUg/Coffee-Storage-TDMS/models"
)

// ReadingSource supplies the history the analyzer works on
type ReadingSource interface {
	FetchReadings(ctx context.Context, since time.Time) ([]models.Reading, error)
}

// FileSource serves readings from a JSON file, re-read on every fetch
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) FetchReadings(ctx context.Context, since time.Time) ([]models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	readings, err := LoadReadingsFile(f.path)
	if err != nil {
		return nil, err
	}
	if since.IsZero() {
		return readings, nil
	}
	kept := readings[:0]
	for _, r := range readings {
		if !r.Timestamp.Before(since) {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

// LoadReadingsFile reads a JSON array of sensor records
func LoadReadingsFile(path string) ([]models.Reading, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open readings file: %w", err)
	}
	defer file.Close()

	readings, err := DecodeReadings(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return readings, nil
}

// DecodeReadings decodes a JSON array of sensor records
func DecodeReadings(r io.Reader) ([]models.Reading, error) {
	var raw []models.RawReading
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode readings: %w", err)
	}
	return models.ToReadings(raw)
}
