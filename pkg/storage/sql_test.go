package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsentry/chatsentry/pkg/auth"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := &SQLStore{db: db, placeholder: func(int) string { return "?" }}
	return store, mock
}

func TestSQLStore_Load_Empty(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT last_updated FROM directory_meta").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, auth.ErrStoreNotExist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Load(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT last_updated FROM directory_meta").
		WillReturnRows(sqlmock.NewRows([]string{"last_updated"}).
			AddRow("2025-06-02T09:30:00Z"))
	mock.ExpectQuery("SELECT user_id, name, email, role, added_date, added_by, last_updated, updated_by FROM authorized_users").
		WillReturnRows(sqlmock.NewRows([]string{
			"user_id", "name", "email", "role", "added_date", "added_by", "last_updated", "updated_by",
		}).
			AddRow("29:abc", "Root Admin", "root@example.com", "admin", "2025-06-01T12:00:00Z", "system", nil, nil).
			AddRow("29:u1", "Alice", "alice@example.com", "user", "2025-06-01T13:00:00Z", "Root Admin", "2025-06-02T09:30:00Z", "Root Admin"))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.AuthorizedUsers, 2)

	admin := snap.AuthorizedUsers["29:abc"]
	assert.Equal(t, auth.RoleAdmin, admin.Role)
	assert.Nil(t, admin.LastUpdated)

	alice := snap.AuthorizedUsers["29:u1"]
	assert.Equal(t, auth.RoleUser, alice.Role)
	require.NotNil(t, alice.LastUpdated)
	assert.Equal(t, "Root Admin", alice.UpdatedBy)
	assert.True(t, snap.LastUpdated.Equal(time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Load_BadTimestamp(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT last_updated FROM directory_meta").
		WillReturnRows(sqlmock.NewRows([]string{"last_updated"}).AddRow("yesterday"))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestSQLStore_Save(t *testing.T) {
	store, mock := newMockStore(t)

	snap := &auth.Snapshot{
		AuthorizedUsers: map[string]auth.UserRecord{
			"29:abc": {
				Name:      "Root Admin",
				Email:     "root@example.com",
				Role:      auth.RoleAdmin,
				AddedDate: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
				AddedBy:   "system",
			},
		},
		LastUpdated: time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM authorized_users").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO authorized_users").
		WithArgs("29:abc", "Root Admin", "root@example.com", "admin",
			"2025-06-01T12:00:00Z", "system", nil, nil).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM directory_meta").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO directory_meta").
		WithArgs("2025-06-02T09:30:00Z").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Save_RollsBackOnError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM authorized_users").
		WillReturnError(errors.New("table locked"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), &auth.Snapshot{
		AuthorizedUsers: map[string]auth.UserRecord{},
		LastUpdated:     time.Now().UTC(),
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	store := &SQLStore{db: db, placeholder: func(int) string { return "?" }}
	mock.ExpectPing()

	require.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
