// Package store persists schedule records and the engine's mirror of
// captured content in a local SQLite database.
//
// All writes go through a single connection, so the daemon and any
// foreground caller are serialized without extra locking. Status changes
// are compare-and-set updates: an update that finds the record in an
// unexpected state is a no-op, which is what makes repeated or concurrent
// daemon activations safe.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = "recall.db"

// Store is the durable schedule store.
type Store struct {
	path string
	sql  *sql.DB
}

// Open opens (creating if needed) the store at path and migrates its schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("open store: context is nil")
	}
	if path == "" {
		return nil, errors.New("open store: path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("open store: create directory: %w", err)
	}

	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	version, err := userVersion(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	if version > schemaVersion {
		_ = db.Close()
		return nil, fmt.Errorf("open store: schema version %d is newer than supported %d", version, schemaVersion)
	}
	if version != schemaVersion {
		if err := migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
	}

	return &Store{path: path, sql: db}, nil
}

// OpenDir opens the store file inside dir.
func OpenDir(ctx context.Context, dir string) (*Store, error) {
	return Open(ctx, filepath.Join(dir, DBFileName))
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the SQLite handle opened by Open.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	if err := s.sql.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}
