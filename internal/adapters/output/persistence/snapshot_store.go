package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"telldus-bridge/internal/ports"
)

// FileSnapshotStore keeps one JSON file per collection under dir.
type FileSnapshotStore struct {
	dir string
	mu  sync.RWMutex
}

var _ ports.SnapshotStore = (*FileSnapshotStore)(nil)

func NewFileSnapshotStore(dir string) *FileSnapshotStore {
	return &FileSnapshotStore{dir: dir}
}

func (s *FileSnapshotStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// Write replaces the collection's file. The directory is created on first
// use and the file is swapped in with a rename so readers never see a
// partial write.
func (s *FileSnapshotStore) Write(ctx context.Context, collection string, snapshot any) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s snapshot: %w", collection, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s snapshot: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s snapshot: %w", collection, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s snapshot: %w", collection, err)
	}
	return os.Rename(tmp.Name(), s.path(collection))
}

// Read decodes the collection's file into out. Missing, unreadable and
// malformed files all report false.
func (s *FileSnapshotStore) Read(ctx context.Context, collection string, out any) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}
