// Package auth implements the authentication and authorization core of the
// bot backend: the user directory, the role/permission model, the in-memory
// session table, and the Manager that orchestrates them.
//
// # Model
//
// Every chat-platform user is identified by an opaque string id. The
// Directory is the persisted source of truth mapping those ids to a Role
// plus audit metadata. Roles are a closed set (admin, user, guest, banned)
// with a fixed, read-only mapping to Permissions; adding a role is a
// compile-time change, not a runtime one.
//
// A Session is the transient record of a successfully authenticated user.
// It caches the permission set resolved at authentication time and tracks
// activity. Sessions live only in process memory and are never persisted.
//
// # Manager
//
// Manager is the single entry point for the rest of the system:
//
//	mgr, err := auth.NewManager(ctx, store, bootstrap, auth.ManagerConfig{...})
//	session := mgr.Authenticate("29:abc", "Jane", "jane@example.com")
//	ok := mgr.IsAuthorized("29:abc", auth.PermissionAdminCommands)
//
// All directory and session state is guarded by one mutex, so every
// decision observes a consistent snapshot: a role update is never
// interleaved with an authentication that would see stale permissions.
//
// Storage failures are logged and absorbed; the in-memory state stays
// authoritative, at the accepted risk of losing the latest write on crash.
//
// # Idle sessions
//
// CleanupIdleSessions is the only time-based eviction mechanism and is
// pull-based: the host decides when to call it (cmd/chatsentry schedules it
// with cron). No timers run inside this package.
package auth
