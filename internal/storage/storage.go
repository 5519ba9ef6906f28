// ABOUTME: Durable key-value storage for persisted client state
// ABOUTME: Selects a JSON file or SQLite backend from configuration

package storage

import (
	"fmt"
	"path/filepath"
)

const (
	// KindFile stores everything in one JSON document.
	KindFile = "file"
	// KindSQLite stores entries in a SQLite database.
	KindSQLite = "sqlite"
	// KindMemory keeps entries in process; nothing survives a restart.
	KindMemory = "memory"
)

// Store is a small key-value store. Values are opaque bytes (JSON in practice).
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// Open creates the store of the given kind rooted at dir
func Open(kind, dir string) (Store, error) {
	switch kind {
	case KindFile, "":
		return NewFileStore(dir), nil
	case KindSQLite:
		return NewSQLiteStore(filepath.Join(dir, SQLiteFileName))
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage kind %q", kind)
	}
}
