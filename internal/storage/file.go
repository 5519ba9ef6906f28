// ABOUTME: JSON file backend for the key-value store
// ABOUTME: Keeps all entries in one state.json under the config directory

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateFileName is the document FileStore reads and writes
const StateFileName = "state.json"

// FileStore persists entries to <dir>/state.json. Each value is kept as a
// JSON string so Get returns exactly the bytes given to Set.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir. The directory is created on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Path returns the location of the state document
func (s *FileStore) Path() string {
	return filepath.Join(s.dir, StateFileName)
}

// load reads the document. Missing or corrupt files read as empty.
func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	entries := map[string]string{}
	if err := json.Unmarshal(data, &entries); err != nil {
		// Invalid JSON, start fresh
		return map[string]string{}, nil
	}
	return entries, nil
}

func (s *FileStore) save(entries map[string]string) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".state-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path())
}

// Get implements Store
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", s.Path(), err)
	}
	v, ok := entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// Set implements Store. value must be valid JSON.
func (s *FileStore) Set(key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Path(), err)
	}
	entries[key] = string(value)
	if err := s.save(entries); err != nil {
		return fmt.Errorf("write %s: %w", s.Path(), err)
	}
	return nil
}

// Delete implements Store
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return fmt.Errorf("read %s: %w", s.Path(), err)
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	if err := s.save(entries); err != nil {
		return fmt.Errorf("write %s: %w", s.Path(), err)
	}
	return nil
}

// Close implements Store
func (s *FileStore) Close() error { return nil }
