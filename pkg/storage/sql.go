package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

// Times are stored as RFC 3339 text so the schema is portable between the
// sqlite and postgres drivers.
const sqlTimeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS authorized_users (
	user_id      TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL,
	role         TEXT NOT NULL,
	added_date   TEXT NOT NULL,
	added_by     TEXT NOT NULL,
	last_updated TEXT,
	updated_by   TEXT
);

CREATE TABLE IF NOT EXISTS directory_meta (
	id           INTEGER PRIMARY KEY,
	last_updated TEXT NOT NULL
);
`

// SQLStore persists the directory snapshot in a relational database via
// database/sql. Constructors for the supported drivers live in sqlite.go
// and postgres.go.
type SQLStore struct {
	db          *sql.DB
	placeholder func(n int) string
}

func newSQLStore(db *sql.DB, placeholder func(n int) string) (*SQLStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create directory schema: %w", err)
	}
	return &SQLStore{db: db, placeholder: placeholder}, nil
}

// Load implements auth.DirectoryStore
func (s *SQLStore) Load(ctx context.Context) (*auth.Snapshot, error) {
	var metaUpdated string
	err := s.db.QueryRowContext(ctx, "SELECT last_updated FROM directory_meta WHERE id = 1").Scan(&metaUpdated)
	if err == sql.ErrNoRows {
		return nil, auth.ErrStoreNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory meta: %w", err)
	}

	snap := &auth.Snapshot{AuthorizedUsers: make(map[string]auth.UserRecord)}
	if snap.LastUpdated, err = parseSQLTime(metaUpdated); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, name, email, role, added_date, added_by, last_updated, updated_by FROM authorized_users")
	if err != nil {
		return nil, fmt.Errorf("failed to read authorized users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID, addedDate  string
			lastUpdated, updBy sql.NullString
			rec                auth.UserRecord
			role               string
		)
		if err := rows.Scan(&userID, &rec.Name, &rec.Email, &role, &addedDate, &rec.AddedBy, &lastUpdated, &updBy); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		rec.Role = auth.Role(role)
		if rec.AddedDate, err = parseSQLTime(addedDate); err != nil {
			return nil, err
		}
		if lastUpdated.Valid {
			t, err := parseSQLTime(lastUpdated.String)
			if err != nil {
				return nil, err
			}
			rec.LastUpdated = &t
		}
		if updBy.Valid {
			rec.UpdatedBy = updBy.String
		}
		snap.AuthorizedUsers[userID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return snap, nil
}

// Save implements auth.DirectoryStore. The full snapshot replaces the
// previous contents in one transaction.
func (s *SQLStore) Save(ctx context.Context, snap *auth.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM authorized_users"); err != nil {
		return fmt.Errorf("failed to clear authorized users: %w", err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO authorized_users (user_id, name, email, role, added_date, added_by, last_updated, updated_by) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4),
		s.placeholder(5), s.placeholder(6), s.placeholder(7), s.placeholder(8))
	for userID, rec := range snap.AuthorizedUsers {
		var lastUpdated, updatedBy sql.NullString
		if rec.LastUpdated != nil {
			lastUpdated = sql.NullString{String: rec.LastUpdated.Format(sqlTimeFormat), Valid: true}
		}
		if rec.UpdatedBy != "" {
			updatedBy = sql.NullString{String: rec.UpdatedBy, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insert,
			userID, rec.Name, rec.Email, string(rec.Role),
			rec.AddedDate.Format(sqlTimeFormat), rec.AddedBy, lastUpdated, updatedBy); err != nil {
			return fmt.Errorf("failed to insert user %s: %w", userID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM directory_meta"); err != nil {
		return fmt.Errorf("failed to clear directory meta: %w", err)
	}
	metaInsert := fmt.Sprintf("INSERT INTO directory_meta (id, last_updated) VALUES (1, %s)", s.placeholder(1))
	if _, err := tx.ExecContext(ctx, metaInsert, snap.LastUpdated.Format(sqlTimeFormat)); err != nil {
		return fmt.Errorf("failed to write directory meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit directory save: %w", err)
	}
	return nil
}

// Ping implements observability.Pinger
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func parseSQLTime(value string) (time.Time, error) {
	t, err := time.Parse(sqlTimeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", value, err)
	}
	return t, nil
}
