package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatsentry/chatsentry/pkg/audit"
	"github.com/chatsentry/chatsentry/pkg/observability"
)

// ManagerConfig carries the collaborators a Manager needs. Zero-value
// fields fall back to no-op implementations.
type ManagerConfig struct {
	Logger  *observability.Logger
	Metrics *observability.Metrics
	Audit   audit.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Manager orchestrates the user directory and the session table. One mutex
// guards both, so every authentication and authorization decision observes
// a consistent snapshot of directory and session state.
type Manager struct {
	mu       sync.Mutex
	dir      *Directory
	sessions *SessionTable

	log     *observability.Logger
	metrics *observability.Metrics
	audit   audit.Logger
	now     func() time.Time
}

// NewManager builds a Manager and loads the directory from the store. A
// missing or corrupt snapshot falls back to the bootstrap admin (when
// given) or an empty directory; NewManager only fails on a nil store.
func NewManager(ctx context.Context, store DirectoryStore, bootstrap *BootstrapAdmin, cfg ManagerConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("auth: directory store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NopMetrics()
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.NopLogger{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	m := &Manager{
		dir:      NewDirectory(store, cfg.Logger, cfg.Metrics, cfg.Now),
		sessions: NewSessionTable(),
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		audit:    cfg.Audit,
		now:      cfg.Now,
	}
	m.dir.Load(ctx, bootstrap)
	m.metrics.AuthorizedUsers.Set(float64(m.dir.Len()))
	m.log.Info("auth manager initialized")
	return m, nil
}

// Authenticate resolves a user id against the directory and creates or
// refreshes their session. It returns nil for unknown and banned users.
// Repeated calls are idempotent apart from bumping activity and the
// interaction count. The returned session is a copy.
func (m *Manager) Authenticate(userID, name, email string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.dir.Get(userID)
	if !ok {
		m.metrics.AuthAttemptsTotal.WithLabelValues("unknown_user").Inc()
		m.log.WithFields(map[string]interface{}{
			"user_id": userID,
			"name":    name,
		}).Warn("unauthorized access attempt")
		return nil
	}

	if rec.Role == RoleBanned {
		m.metrics.AuthAttemptsTotal.WithLabelValues("banned").Inc()
		m.log.WithField("user_id", userID).Warn("banned user attempted access")
		return nil
	}

	if name == "" {
		name = rec.Name
	}
	if email == "" {
		email = rec.Email
	}

	session, ok := m.sessions.Get(userID)
	created := !ok
	if created {
		session = &Session{
			UserID: userID,
		}
	}
	session.Name = name
	session.Email = email
	session.Role = rec.Role
	session.Permissions = RolePermissions(rec.Role)
	session.LastActivity = m.now()
	session.InteractionCount++
	m.sessions.Upsert(session)
	m.metrics.AuthAttemptsTotal.WithLabelValues("granted").Inc()
	m.metrics.ActiveSessions.Set(float64(m.sessions.Len()))

	// One audit event per session, not per message.
	if created {
		m.audit.Log(audit.NewEvent(audit.EventTypeAuthGranted, audit.StatusSuccess).
			WithActor(userID, name).
			WithDetail("role", string(rec.Role)))
	}

	m.log.WithFields(map[string]interface{}{
		"user_id": userID,
		"name":    name,
		"role":    string(rec.Role),
	}).Info("user authenticated")
	return session.clone()
}

// GetSession returns a copy of the live session for a user id, if any.
func (m *Manager) GetSession(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions.Get(userID)
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// IsAuthorized reports whether a live session exists for the user and,
// when permission is not PermissionNone, whether the session's cached
// permission set contains it. A positive check touches the session's
// last-activity timestamp.
func (m *Manager) IsAuthorized(userID string, permission Permission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions.Get(userID)
	if !ok {
		return false
	}
	if !session.HasPermission(permission) {
		return false
	}
	session.LastActivity = m.now()
	return true
}

// AddUser inserts a new directory record. Duplicate user ids return
// ErrAlreadyExists, invalid roles ErrInvalidRole.
func (m *Manager) AddUser(ctx context.Context, userID, name, email string, role Role, actor Actor) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dir.Add(ctx, userID, name, email, role, actor.Name); err != nil {
		return err
	}
	m.metrics.AuthorizedUsers.Set(float64(m.dir.Len()))

	m.audit.Log(audit.NewEvent(audit.EventTypeUserAdded, audit.StatusSuccess).
		WithActor(actor.UserID, actor.Name).
		WithTarget(userID).
		WithDetail("role", string(role)))
	m.log.WithFields(map[string]interface{}{
		"user_id":  userID,
		"name":     name,
		"role":     string(role),
		"added_by": actor.Name,
	}).Info("authorized user added")
	return nil
}

// RemoveUser deletes a directory record and evicts any live session for it.
// An actor removing their own record gets ErrSelfRemoval unconditionally,
// so an admin cannot lock themselves out mid-session.
func (m *Manager) RemoveUser(ctx context.Context, userID string, actor Actor) error {
	if userID == actor.UserID {
		return ErrSelfRemoval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, err := m.dir.Remove(ctx, userID)
	if err != nil {
		return err
	}
	m.sessions.Remove(userID)
	m.metrics.AuthorizedUsers.Set(float64(m.dir.Len()))
	m.metrics.ActiveSessions.Set(float64(m.sessions.Len()))

	m.audit.Log(audit.NewEvent(audit.EventTypeUserRemoved, audit.StatusSuccess).
		WithActor(actor.UserID, actor.Name).
		WithTarget(userID).
		WithDetail("name", rec.Name))
	m.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"name":       rec.Name,
		"removed_by": actor.Name,
	}).Info("authorized user removed")
	return nil
}

// UpdateRole changes a user's role. Any live session gets its cached
// permission set refreshed in place; a transition to banned evicts the
// session immediately rather than letting it ride out its idle timeout.
// Returns the previous role.
func (m *Manager) UpdateRole(ctx context.Context, userID string, newRole Role, actor Actor) (Role, error) {
	if !newRole.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, newRole)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	oldRole, err := m.dir.UpdateRole(ctx, userID, newRole, actor.Name)
	if err != nil {
		return "", err
	}

	if session, ok := m.sessions.Get(userID); ok {
		if newRole == RoleBanned {
			m.sessions.Remove(userID)
			m.metrics.ActiveSessions.Set(float64(m.sessions.Len()))
		} else {
			session.Role = newRole
			session.Permissions = RolePermissions(newRole)
		}
	}

	m.audit.Log(audit.NewEvent(audit.EventTypeUserRoleChanged, audit.StatusSuccess).
		WithActor(actor.UserID, actor.Name).
		WithTarget(userID).
		WithDetail("old_role", string(oldRole)).
		WithDetail("new_role", string(newRole)))
	m.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"old_role":   string(oldRole),
		"new_role":   string(newRole),
		"updated_by": actor.Name,
	}).Info("user role updated")
	return oldRole, nil
}

// CleanupIdleSessions evicts every session idle for longer than timeout and
// returns the number evicted. This is the only time-based eviction
// mechanism; the host decides when to call it.
func (m *Manager) CleanupIdleSessions(timeout time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-timeout)
	evicted := m.sessions.RemoveIfOlderThan(cutoff)
	if len(evicted) == 0 {
		return 0
	}

	m.metrics.ActiveSessions.Set(float64(m.sessions.Len()))
	m.metrics.IdleSessionsSwept.Add(float64(len(evicted)))
	m.audit.Log(audit.NewEvent(audit.EventTypeSessionsSwept, audit.StatusSuccess).
		WithDetail("evicted", fmt.Sprintf("%d", len(evicted))))
	for _, id := range evicted {
		m.log.WithField("user_id", id).Info("evicted idle session")
	}
	return len(evicted)
}

// Export returns a deep copy of the directory snapshot for backup.
func (m *Manager) Export(actor Actor) *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.audit.Log(audit.NewEvent(audit.EventTypeUsersExported, audit.StatusSuccess).
		WithActor(actor.UserID, actor.Name).
		WithDetail("users", fmt.Sprintf("%d", m.dir.Len())))
	return m.dir.Export()
}

// Import merges a snapshot into the directory: matching ids are
// overwritten, records absent from the snapshot are kept. Live sessions of
// overwritten users are refreshed against their imported role. Returns the
// number of records imported.
func (m *Manager) Import(ctx context.Context, snap *Snapshot, actor Actor) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := m.dir.Import(ctx, snap)
	if count > 0 {
		m.reconcileSessionsLocked()
		m.metrics.AuthorizedUsers.Set(float64(m.dir.Len()))
	}

	m.audit.Log(audit.NewEvent(audit.EventTypeUsersImported, audit.StatusSuccess).
		WithActor(actor.UserID, actor.Name).
		WithDetail("users", fmt.Sprintf("%d", count)))
	m.log.WithFields(map[string]interface{}{
		"users":       count,
		"imported_by": actor.Name,
	}).Info("imported authorized users")
	return count
}

// Reload re-reads the directory from the store, for hosts that watch the
// backing file for out-of-band edits. Live sessions are reconciled against
// the reloaded records: removed or banned users are evicted, everyone else
// has their role and permissions refreshed. A read error (including an
// unparseable file) leaves directory and sessions untouched.
func (m *Manager) Reload(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.dir.Reload(ctx); err != nil {
		return
	}
	m.reconcileSessionsLocked()
	m.metrics.AuthorizedUsers.Set(float64(m.dir.Len()))
	m.log.WithField("users", m.dir.Len()).Info("directory reloaded")
}

// reconcileSessionsLocked re-derives every live session from the current
// directory state. Callers must hold m.mu.
func (m *Manager) reconcileSessionsLocked() {
	for _, s := range m.sessions.All() {
		rec, ok := m.dir.Get(s.UserID)
		if !ok || rec.Role == RoleBanned {
			m.sessions.Remove(s.UserID)
			continue
		}
		if live, ok := m.sessions.Get(s.UserID); ok {
			live.Role = rec.Role
			live.Permissions = RolePermissions(rec.Role)
		}
	}
	m.metrics.ActiveSessions.Set(float64(m.sessions.Len()))
}
