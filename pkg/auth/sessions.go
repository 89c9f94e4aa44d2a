package auth

import "time"

// SessionTable holds the currently-active authenticated sessions, keyed by
// user id. It is a plain map owned by the Manager; the Manager's mutex
// serializes all access, so SessionTable itself does no locking.
type SessionTable struct {
	sessions map[string]*Session
}

// NewSessionTable creates an empty session table.
func NewSessionTable() *SessionTable {
	return &SessionTable{sessions: make(map[string]*Session)}
}

// Upsert inserts or replaces the session for its user id.
func (t *SessionTable) Upsert(s *Session) {
	t.sessions[s.UserID] = s
}

// Get returns the live session for a user id, if any.
func (t *SessionTable) Get(userID string) (*Session, bool) {
	s, ok := t.sessions[userID]
	return s, ok
}

// Remove deletes the session for a user id. Removing an absent id is a no-op.
func (t *SessionTable) Remove(userID string) {
	delete(t.sessions, userID)
}

// RemoveIfOlderThan evicts every session whose last activity is strictly
// before the cutoff and returns the user ids removed.
func (t *SessionTable) RemoveIfOlderThan(cutoff time.Time) []string {
	var evicted []string
	for id, s := range t.sessions {
		if s.LastActivity.Before(cutoff) {
			evicted = append(evicted, id)
		}
	}
	for _, id := range evicted {
		delete(t.sessions, id)
	}
	return evicted
}

// Len returns the number of live sessions.
func (t *SessionTable) Len() int {
	return len(t.sessions)
}

// All returns clones of every live session.
func (t *SessionTable) All() []*Session {
	out := make([]*Session, 0, len(t.sessions))
	for _, s := range t.sessions {
		out = append(out, s.clone())
	}
	return out
}
