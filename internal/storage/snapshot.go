package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clmm/internal/model"
)

// FileSnapshotStore keeps the engine snapshot in a single JSON file.
type FileSnapshotStore struct {
	path string
}

func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load reads the snapshot. found is false when the file does not exist yet.
func (s *FileSnapshotStore) Load() (model.Snapshot, bool, error) {
	stat, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Snapshot{}, false, nil
		}
		return model.Snapshot{}, false, fmt.Errorf("stat snapshot: %w", err)
	}
	if stat.IsDir() {
		return model.Snapshot{}, false, fmt.Errorf("snapshot path is a directory")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return snap, true, nil
}

// Save writes the snapshot through a temporary file so a crash never leaves
// a truncated state file behind.
func (s *FileSnapshotStore) Save(snap model.Snapshot) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	if snap.UpdatedAt == "" {
		snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}
