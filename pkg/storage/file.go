package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

// FileStore persists the directory snapshot as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore creates a file store at path, creating parent directories
// as needed.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: directory file path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path, for the change watcher.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements auth.DirectoryStore
func (s *FileStore) Load(_ context.Context) (*auth.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, auth.ErrStoreNotExist
		}
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var snap auth.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}
	if snap.AuthorizedUsers == nil {
		snap.AuthorizedUsers = make(map[string]auth.UserRecord)
	}
	return &snap, nil
}

// Save implements auth.DirectoryStore. The snapshot is written to a temp
// file in the same directory and renamed into place, so readers never see
// a partial write.
func (s *FileStore) Save(_ context.Context, snap *auth.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".directory-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write directory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close directory file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace directory file: %w", err)
	}
	return nil
}

// Ping implements observability.Pinger
func (s *FileStore) Ping(_ context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}
