package auth

import (
	"fmt"
	"strings"
)

// rolePermissions is the static role -> permission table. It is read-only
// after initialization; every role has an entry, banned's is empty.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermissionUseQuery,
		PermissionUseEcho,
		PermissionAdminCommands,
		PermissionViewMetrics,
		PermissionManageUsers,
	},
	RoleUser: {
		PermissionUseQuery,
		PermissionUseEcho,
		PermissionViewMetrics,
	},
	RoleGuest: {
		PermissionUseEcho,
	},
	RoleBanned: {},
}

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleUser, RoleGuest, RoleBanned}

// RolePermissions returns the permission set for a role. It is a total
// function: unknown roles and RoleBanned yield an empty set. The returned
// map is a fresh copy the caller may keep.
func RolePermissions(role Role) map[Permission]bool {
	perms := make(map[Permission]bool)
	for _, p := range rolePermissions[role] {
		perms[p] = true
	}
	return perms
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// ParseRole converts a user-supplied role string into a Role. The match is
// case-insensitive. Unknown strings return ErrInvalidRole.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return role, nil
}
