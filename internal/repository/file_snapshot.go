package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/RealZimboGuy/gopherstate/pkg/gopherstate/domain"
)

// SnapshotData is the on-disk layout of the JSON snapshot file.
type SnapshotData struct {
	Definitions []domain.WorkflowDef      `json:"definitions"`
	Instances   []domain.WorkflowInstance `json:"instances"`
}

// FileSnapshot reads and atomically rewrites a JSON file holding the whole store.
type FileSnapshot struct {
	mu   sync.Mutex
	path string
}

func NewFileSnapshot(path string) *FileSnapshot {
	return &FileSnapshot{path: path}
}

func (f *FileSnapshot) Path() string { return f.path }

// Load returns the stored data; a missing file is an empty store.
func (f *FileSnapshot) Load() (SnapshotData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var data SnapshotData
	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read snapshot %s: %w", f.path, err)
	}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return data, fmt.Errorf("parse snapshot %s: %w", f.path, err)
	}
	return data, nil
}

// Save writes data to a temporary file next to the snapshot and renames it into place.
func (f *FileSnapshot) Save(data SnapshotData) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
