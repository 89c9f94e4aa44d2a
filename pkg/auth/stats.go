package auth

import "time"

// SessionSummary describes one live session for reporting.
type SessionSummary struct {
	UserID           string    `json:"user_id"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	LastActivity     time.Time `json:"last_activity"`
	InteractionCount int       `json:"interaction_count"`
}

// Stats is a point-in-time view of directory and session state. It is
// computed on demand and never cached.
type Stats struct {
	TotalAuthorized  int              `json:"total_authorized"`
	ActiveSessions   int              `json:"active_sessions"`
	RoleDistribution map[Role]int     `json:"role_distribution"`
	Sessions         []SessionSummary `json:"sessions"`
}

// UserInfo pairs a directory record with its id and session liveness, for
// listings.
type UserInfo struct {
	UserID string     `json:"user_id"`
	Record UserRecord `json:"record"`
	Active bool       `json:"active"`
}

// Stats computes current user and session statistics.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{
		TotalAuthorized:  m.dir.Len(),
		ActiveSessions:   m.sessions.Len(),
		RoleDistribution: make(map[Role]int),
	}
	for _, id := range m.dir.UserIDs() {
		rec, _ := m.dir.Get(id)
		stats.RoleDistribution[rec.Role]++
	}
	for _, s := range m.sessions.All() {
		stats.Sessions = append(stats.Sessions, SessionSummary{
			UserID:           s.UserID,
			Name:             s.Name,
			Role:             s.Role,
			LastActivity:     s.LastActivity,
			InteractionCount: s.InteractionCount,
		})
	}
	return stats
}

// ListUsers returns every directory record in sorted id order, flagged
// with whether a live session exists.
func (m *Manager) ListUsers() []UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]UserInfo, 0, m.dir.Len())
	for _, id := range m.dir.UserIDs() {
		rec, _ := m.dir.Get(id)
		_, active := m.sessions.Get(id)
		out = append(out, UserInfo{UserID: id, Record: rec, Active: active})
	}
	return out
}
