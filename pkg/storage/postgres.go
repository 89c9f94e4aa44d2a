package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// NewPostgresStore opens a PostgreSQL-backed directory store.
func NewPostgresStore(url string) (*SQLStore, error) {
	if url == "" {
		return nil, fmt.Errorf("storage: postgres URL is required")
	}
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	store, err := newSQLStore(db, func(n int) string { return fmt.Sprintf("$%d", n) })
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
