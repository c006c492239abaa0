package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store is the durable state directory: named JSON documents with glob
// listing and deletion. Checkpoints, partial work files and heal states all
// live here so a freshly spawned process can pick them up by path.
type Store interface {
	// WriteJSON persists v under name and returns the full path.
	WriteJSON(name string, v any) (string, error)

	// ReadJSON loads the document stored under name into v.
	ReadJSON(name string, v any) error

	// List returns the names (not paths) matching a glob pattern, sorted.
	List(pattern string) ([]string, error)

	// Delete removes the document stored under name.
	Delete(name string) error

	// Path returns the full path for a name without touching the disk.
	Path(name string) string
}

// FileStore implements Store on a single directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// WriteJSON marshals v and writes it atomically (temp file + rename) so a
// crash mid-write never leaves a torn checkpoint behind.
func (s *FileStore) WriteJSON(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	path := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}
	return path, nil
}

// ReadJSON loads the document stored under name into v.
func (s *FileStore) ReadJSON(name string, v any) error {
	return ReadJSONFile(s.Path(name), v)
}

// List returns names matching pattern, sorted lexicographically.
func (s *FileStore) List(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, filepath.Base(m))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the document stored under name.
func (s *FileStore) Delete(name string) error {
	if err := os.Remove(s.Path(name)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// Path returns the full path for a name.
func (s *FileStore) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Dir returns the state directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// ReadJSONFile loads a JSON document from an absolute path. Spawned workers
// use it to read the heal state they were pointed at.
func ReadJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
