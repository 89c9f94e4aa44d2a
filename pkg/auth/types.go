package auth

import "time"

// Role classifies a user and drives their default capabilities
type Role string

const (
	RoleAdmin  Role = "admin"  // Full access including user management
	RoleUser   Role = "user"   // Query access and metrics
	RoleGuest  Role = "guest"  // Echo mode only
	RoleBanned Role = "banned" // No access
)

// Permission represents a single fine-grained capability
type Permission string

const (
	PermissionUseQuery      Permission = "use_query"      // Forward messages to the answer backend
	PermissionUseEcho       Permission = "use_echo"       // Use the echo fallback
	PermissionAdminCommands Permission = "admin_commands" // Issue admin commands
	PermissionViewMetrics   Permission = "view_metrics"   // Read usage metrics
	PermissionManageUsers   Permission = "manage_users"   // Add/remove/update users
)

// PermissionNone is the zero Permission; it means "no specific permission
// required" when passed to authorization checks.
const PermissionNone Permission = ""

// UserRecord is the persisted entry for an authorized user. Records are
// keyed by the opaque platform user id in the directory map, so the id is
// not repeated inside the record (matching the on-disk document shape).
type UserRecord struct {
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	AddedDate   time.Time  `json:"added_date"`
	AddedBy     string     `json:"added_by"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
	UpdatedBy   string     `json:"updated_by,omitempty"`
}

// Snapshot is the full persisted state of the directory. It round-trips
// losslessly through export/import.
type Snapshot struct {
	AuthorizedUsers map[string]UserRecord `json:"authorized_users"`
	LastUpdated     time.Time             `json:"last_updated"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	users := make(map[string]UserRecord, len(s.AuthorizedUsers))
	for id, rec := range s.AuthorizedUsers {
		if rec.LastUpdated != nil {
			updated := *rec.LastUpdated
			rec.LastUpdated = &updated
		}
		users[id] = rec
	}
	return &Snapshot{AuthorizedUsers: users, LastUpdated: s.LastUpdated}
}

// Session is a live, in-memory record of an authenticated user. The
// permission set is a point-in-time snapshot taken at authentication;
// Manager.UpdateRole refreshes it in place for live sessions.
type Session struct {
	UserID           string              `json:"user_id"`
	Name             string              `json:"name"`
	Email            string              `json:"email"`
	Role             Role                `json:"role"`
	Permissions      map[Permission]bool `json:"permissions"`
	LastActivity     time.Time           `json:"last_activity"`
	InteractionCount int                 `json:"interaction_count"`
}

// HasPermission reports whether the session's cached permission set
// contains the given permission.
func (s *Session) HasPermission(p Permission) bool {
	if p == PermissionNone {
		return true
	}
	return s.Permissions[p]
}

// clone returns a copy safe to hand to callers outside the manager lock.
func (s *Session) clone() *Session {
	perms := make(map[Permission]bool, len(s.Permissions))
	for p, ok := range s.Permissions {
		perms[p] = ok
	}
	dup := *s
	dup.Permissions = perms
	return &dup
}

// Identity is the opaque user tuple the chat transport supplies with every
// inbound event. Name and Email may be empty.
type Identity struct {
	UserID string
	Name   string
	Email  string
}

// Actor identifies who performed a mutating operation, for audit fields
// and the self-removal guard.
type Actor struct {
	UserID string
	Name   string
}

// BootstrapAdmin is the optional default admin identity used only when no
// directory has been persisted yet.
type BootstrapAdmin struct {
	UserID string
	Name   string
	Email  string
}
