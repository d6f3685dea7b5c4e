package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"ai-post-scheduler/internal/records"
)

// FileStore provides a file-based record store: one JSON file per record
// key. It backs the CLI when no database path is configured and keeps the
// same contract as the sqlite repository.
type FileStore struct {
	basePath string
}

// NewFileStore creates a new FileStore and ensures the base directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &FileStore{basePath: basePath}, nil
}

// path returns the file path for a record key.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.basePath, key+".json")
}

// Exists checks whether a record file exists for the key.
func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat record %q: %w", key, err)
	}
	return true, nil
}

// Get retrieves the record stored under key.
func (s *FileStore) Get(_ context.Context, key string) (*records.Record, error) {
	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, records.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record file: %w", err)
	}

	var rec records.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}
	return &rec, nil
}

// Write stores a record under its key.
func (s *FileStore) Write(_ context.Context, rec records.Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.Key), data, 0644); err != nil {
		return fmt.Errorf("failed to write record file: %w", err)
	}
	return nil
}

// Delete removes the record file for key. A missing file is not an error.
func (s *FileStore) Delete(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove record file: %w", err)
	}
	return nil
}

// List returns every stored record sorted by key, which for date-prefixed
// keys is date order.
func (s *FileStore) List(ctx context.Context) ([]records.Record, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob record files: %w", err)
	}
	sort.Strings(matches)

	var out []records.Record
	for _, match := range matches {
		key := filepath.Base(match)
		key = key[:len(key)-len(".json")]
		rec, err := s.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, nil
}

// Move writes rec under its new key, then deletes the old file. The write
// lands first so a crash can at worst leave a duplicate, never a lost
// record.
func (s *FileStore) Move(ctx context.Context, oldKey string, rec records.Record) error {
	if err := s.Write(ctx, rec); err != nil {
		return err
	}
	if oldKey == rec.Key {
		return nil
	}
	return s.Delete(ctx, oldKey)
}
