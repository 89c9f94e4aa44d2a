package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteStore opens (or creates) a SQLite-backed directory store.
// Use ":memory:" for an ephemeral database in tests.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: sqlite path is required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The snapshot writer assumes a single connection; sqlite locks the
	// whole database anyway.
	db.SetMaxOpenConns(1)

	store, err := newSQLStore(db, func(int) string { return "?" })
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
