package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
)

// Tracker persists the processed-file records between ingestion runs as a
// JSON document keyed by filename.
type Tracker struct {
	path string
}

// NewTracker creates a tracker backed by the given file path.
func NewTracker(path string) *Tracker {
	return &Tracker{path: path}
}

// Load reads the tracking file. A missing file yields an empty map; a
// corrupt file is treated as empty so a damaged tracking store never blocks
// ingestion, it only forces reprocessing.
func (t *Tracker) Load() (map[string]domain.ProcessedFileRecord, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]domain.ProcessedFileRecord{}, nil
		}
		return nil, fmt.Errorf("read tracking file: %w", err)
	}
	records := map[string]domain.ProcessedFileRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("tracking file %s is corrupt, starting with empty tracking: %v", t.path, err)
		return map[string]domain.ProcessedFileRecord{}, nil
	}
	return records, nil
}

// Save writes the records atomically: marshal to a temp file in the same
// directory, then rename over the old file. A crash mid-write leaves the
// previous tracking file intact.
func (t *Tracker) Save(records map[string]domain.ProcessedFileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking records: %w", err)
	}
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create tracking dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".processed_files-*.json")
	if err != nil {
		return fmt.Errorf("create temp tracking file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp tracking file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp tracking file: %w", err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace tracking file: %w", err)
	}
	return nil
}
