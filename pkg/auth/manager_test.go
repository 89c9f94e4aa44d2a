package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatsentry/chatsentry/pkg/audit"
)

// memStore is an in-memory DirectoryStore for tests.
type memStore struct {
	snap    *Snapshot
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (*Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.snap == nil {
		return nil, ErrStoreNotExist
	}
	return m.snap.Clone(), nil
}

func (m *memStore) Save(_ context.Context, snap *Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap.Clone()
	m.saves++
	return nil
}

// memAudit records audit events in memory.
type memAudit struct {
	events []*audit.Event
}

func (a *memAudit) Log(e *audit.Event) { a.events = append(a.events, e) }
func (a *memAudit) Close() error       { return nil }

func (a *memAudit) count(eventType audit.EventType) int {
	n := 0
	for _, e := range a.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestManager(t *testing.T, store *memStore) (*Manager, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	m, err := NewManager(context.Background(), store, &BootstrapAdmin{
		UserID: "29:abc",
		Name:   "Root Admin",
		Email:  "root@example.com",
	}, ManagerConfig{Now: clock.Now})
	require.NoError(t, err)
	return m, clock
}

func TestNewManager_RequiresStore(t *testing.T) {
	_, err := NewManager(context.Background(), nil, nil, ManagerConfig{})
	require.Error(t, err)
}

func TestNewManager_SeedsBootstrapAdmin(t *testing.T) {
	store := &memStore{}
	m, _ := newTestManager(t, store)

	users := m.ListUsers()
	require.Len(t, users, 1)
	assert.Equal(t, "29:abc", users[0].UserID)
	assert.Equal(t, RoleAdmin, users[0].Record.Role)
	assert.Equal(t, "system", users[0].Record.AddedBy)

	// The seeded directory is persisted immediately.
	require.NotNil(t, store.snap)
	assert.Contains(t, store.snap.AuthorizedUsers, "29:abc")
}

func TestNewManager_CorruptStoreFallsBackToBootstrap(t *testing.T) {
	store := &memStore{loadErr: errors.New("parse failure")}
	m, _ := newTestManager(t, store)

	session := m.Authenticate("29:abc", "Root Admin", "")
	require.NotNil(t, session)
	assert.Equal(t, RoleAdmin, session.Role)
}

func TestNewManager_LoadsExistingDirectory(t *testing.T) {
	store := &memStore{snap: &Snapshot{
		AuthorizedUsers: map[string]UserRecord{
			"29:existing": {Name: "Existing", Role: RoleUser},
		},
	}}
	m, _ := newTestManager(t, store)

	// Bootstrap admin must not be seeded over an existing directory.
	assert.Nil(t, m.Authenticate("29:abc", "", ""))
	assert.NotNil(t, m.Authenticate("29:existing", "", ""))
}

func TestAuthenticate(t *testing.T) {
	m, _ := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "alice@example.com", RoleUser, actor))

	t.Run("unknown user", func(t *testing.T) {
		assert.Nil(t, m.Authenticate("29:intruder", "Mallory", ""))
	})

	t.Run("known user gets session", func(t *testing.T) {
		s := m.Authenticate("29:u1", "Alice", "alice@example.com")
		require.NotNil(t, s)
		assert.Equal(t, RoleUser, s.Role)
		assert.True(t, s.HasPermission(PermissionUseQuery))
		assert.False(t, s.HasPermission(PermissionAdminCommands))
		assert.Equal(t, 1, s.InteractionCount)
	})

	t.Run("repeat authentication bumps interaction count", func(t *testing.T) {
		s := m.Authenticate("29:u1", "Alice", "")
		require.NotNil(t, s)
		assert.Equal(t, 2, s.InteractionCount)
	})

	t.Run("falls back to directory name and email", func(t *testing.T) {
		s := m.Authenticate("29:u1", "", "")
		require.NotNil(t, s)
		assert.Equal(t, "Alice", s.Name)
		assert.Equal(t, "alice@example.com", s.Email)
	})

	t.Run("banned user denied", func(t *testing.T) {
		require.NoError(t, m.AddUser(context.Background(), "29:b1", "Bob", "", RoleBanned, actor))
		assert.Nil(t, m.Authenticate("29:b1", "Bob", ""))
	})

	t.Run("returned session is a copy", func(t *testing.T) {
		s := m.Authenticate("29:u1", "", "")
		require.NotNil(t, s)
		s.Permissions[PermissionAdminCommands] = true
		assert.False(t, m.IsAuthorized("29:u1", PermissionAdminCommands))
	})
}

func TestAuthenticate_AuditsSessionCreation(t *testing.T) {
	trail := &memAudit{}
	m, err := NewManager(context.Background(), &memStore{}, &BootstrapAdmin{
		UserID: "29:abc",
		Name:   "Root Admin",
	}, ManagerConfig{Audit: trail})
	require.NoError(t, err)

	require.NotNil(t, m.Authenticate("29:abc", "Root Admin", ""))
	require.NotNil(t, m.Authenticate("29:abc", "Root Admin", ""))

	// One granted event per session, not one per message.
	assert.Equal(t, 1, trail.count(audit.EventTypeAuthGranted))

	// Unknown users produce no granted event.
	assert.Nil(t, m.Authenticate("29:intruder", "Mallory", ""))
	assert.Equal(t, 1, trail.count(audit.EventTypeAuthGranted))
}

func TestIsAuthorized(t *testing.T) {
	m, _ := newTestManager(t, &memStore{})

	t.Run("no session", func(t *testing.T) {
		assert.False(t, m.IsAuthorized("29:abc", PermissionNone))
	})

	t.Run("after authentication", func(t *testing.T) {
		require.NotNil(t, m.Authenticate("29:abc", "Root Admin", ""))
		assert.True(t, m.IsAuthorized("29:abc", PermissionNone))
		assert.True(t, m.IsAuthorized("29:abc", PermissionAdminCommands))
	})
}

func TestAddUser(t *testing.T) {
	m, _ := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}

	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "a@example.com", RoleUser, actor))

	err := m.AddUser(context.Background(), "29:u1", "Alice Again", "", RoleGuest, actor)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = m.AddUser(context.Background(), "29:u2", "Eve", "", Role("superuser"), actor)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestRemoveUser(t *testing.T) {
	store := &memStore{}
	m, _ := newTestManager(t, store)
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))

	t.Run("self removal is rejected", func(t *testing.T) {
		err := m.RemoveUser(context.Background(), "29:abc", actor)
		assert.ErrorIs(t, err, ErrSelfRemoval)
	})

	t.Run("not found", func(t *testing.T) {
		err := m.RemoveUser(context.Background(), "29:ghost", actor)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("removal evicts live session", func(t *testing.T) {
		require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))
		require.NoError(t, m.RemoveUser(context.Background(), "29:u1", actor))

		_, ok := m.GetSession("29:u1")
		assert.False(t, ok)
		assert.Nil(t, m.Authenticate("29:u1", "Alice", ""))
		assert.NotContains(t, store.snap.AuthorizedUsers, "29:u1")
	})
}

func TestUpdateRole(t *testing.T) {
	m, clock := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleGuest, actor))

	t.Run("returns previous role", func(t *testing.T) {
		old, err := m.UpdateRole(context.Background(), "29:u1", RoleUser, actor)
		require.NoError(t, err)
		assert.Equal(t, RoleGuest, old)
	})

	t.Run("invalid role", func(t *testing.T) {
		_, err := m.UpdateRole(context.Background(), "29:u1", Role("superuser"), actor)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := m.UpdateRole(context.Background(), "29:ghost", RoleUser, actor)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("live session permissions refresh in place", func(t *testing.T) {
		require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))
		assert.False(t, m.IsAuthorized("29:u1", PermissionAdminCommands))

		_, err := m.UpdateRole(context.Background(), "29:u1", RoleAdmin, actor)
		require.NoError(t, err)
		assert.True(t, m.IsAuthorized("29:u1", PermissionAdminCommands))
	})

	t.Run("ban evicts live session immediately", func(t *testing.T) {
		clock.Advance(time.Minute)
		_, err := m.UpdateRole(context.Background(), "29:u1", RoleBanned, actor)
		require.NoError(t, err)

		_, ok := m.GetSession("29:u1")
		assert.False(t, ok)
		assert.Nil(t, m.Authenticate("29:u1", "Alice", ""))
	})
}

func TestCleanupIdleSessions(t *testing.T) {
	m, clock := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))

	require.NotNil(t, m.Authenticate("29:abc", "Root Admin", ""))
	clock.Advance(2 * time.Hour)
	require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))

	// Only the admin session crossed the idle cutoff.
	assert.Equal(t, 1, m.CleanupIdleSessions(time.Hour))
	_, ok := m.GetSession("29:abc")
	assert.False(t, ok)
	_, ok = m.GetSession("29:u1")
	assert.True(t, ok)

	// Sweeping again does nothing.
	assert.Equal(t, 0, m.CleanupIdleSessions(time.Hour))
}

func TestIsAuthorized_TouchesActivity(t *testing.T) {
	m, clock := newTestManager(t, &memStore{})
	require.NotNil(t, m.Authenticate("29:abc", "Root Admin", ""))

	// Authorization checks keep a busy session alive across sweeps.
	clock.Advance(45 * time.Minute)
	require.True(t, m.IsAuthorized("29:abc", PermissionNone))
	clock.Advance(45 * time.Minute)
	assert.Equal(t, 0, m.CleanupIdleSessions(time.Hour))
}

func TestExportImport(t *testing.T) {
	m, _ := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))

	snap := m.Export(actor)
	require.Len(t, snap.AuthorizedUsers, 2)

	// Export hands out a deep copy.
	rec := snap.AuthorizedUsers["29:u1"]
	rec.Role = RoleAdmin
	snap.AuthorizedUsers["29:u1"] = rec
	users := m.ListUsers()
	for _, u := range users {
		if u.UserID == "29:u1" {
			assert.Equal(t, RoleUser, u.Record.Role)
		}
	}

	// Import into a fresh manager.
	other, _ := newTestManager(t, &memStore{})
	count := other.Import(context.Background(), snap, actor)
	assert.Equal(t, 2, count)
	assert.NotNil(t, other.Authenticate("29:u1", "Alice", ""))

	t.Run("import refreshes live sessions", func(t *testing.T) {
		banned := snap.Clone()
		rec := banned.AuthorizedUsers["29:u1"]
		rec.Role = RoleBanned
		banned.AuthorizedUsers["29:u1"] = rec

		other.Import(context.Background(), banned, actor)
		_, ok := other.GetSession("29:u1")
		assert.False(t, ok)
	})

	t.Run("nil snapshot imports nothing", func(t *testing.T) {
		assert.Equal(t, 0, other.Import(context.Background(), nil, actor))
	})
}

func TestReload(t *testing.T) {
	store := &memStore{}
	m, _ := newTestManager(t, store)
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))
	require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))

	// Simulate an out-of-band edit that demotes Alice to banned.
	rec := store.snap.AuthorizedUsers["29:u1"]
	rec.Role = RoleBanned
	store.snap.AuthorizedUsers["29:u1"] = rec

	m.Reload(context.Background())

	_, ok := m.GetSession("29:u1")
	assert.False(t, ok)
	assert.Nil(t, m.Authenticate("29:u1", "Alice", ""))
}

func TestReload_LoadErrorKeepsMemoryAndDisk(t *testing.T) {
	store := &memStore{}
	m, _ := newTestManager(t, store)
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))
	require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))
	savesBefore := store.saves

	// A hand-edited snapshot that no longer parses must not wipe the
	// in-memory directory, the live sessions, or the good copy on disk.
	store.loadErr = errors.New("unexpected end of JSON input")
	m.Reload(context.Background())

	assert.Equal(t, 2, m.Stats().TotalAuthorized)
	_, ok := m.GetSession("29:u1")
	assert.True(t, ok)
	assert.NotNil(t, m.Authenticate("29:u1", "Alice", ""))
	assert.Contains(t, store.snap.AuthorizedUsers, "29:u1")
	assert.Equal(t, savesBefore, store.saves)
}

func TestStats(t *testing.T) {
	m, _ := newTestManager(t, &memStore{})
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}
	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))
	require.NoError(t, m.AddUser(context.Background(), "29:g1", "Guest", "", RoleGuest, actor))
	require.NotNil(t, m.Authenticate("29:u1", "Alice", ""))

	stats := m.Stats()
	assert.Equal(t, 3, stats.TotalAuthorized)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.RoleDistribution[RoleAdmin])
	assert.Equal(t, 1, stats.RoleDistribution[RoleUser])
	assert.Equal(t, 1, stats.RoleDistribution[RoleGuest])
	require.Len(t, stats.Sessions, 1)
	assert.Equal(t, "Alice", stats.Sessions[0].Name)
}

func TestSaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	m, _ := newTestManager(t, store)
	actor := Actor{UserID: "29:abc", Name: "Root Admin"}

	require.NoError(t, m.AddUser(context.Background(), "29:u1", "Alice", "", RoleUser, actor))
	assert.NotNil(t, m.Authenticate("29:u1", "Alice", ""))
}
