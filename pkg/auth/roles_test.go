package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRolePermissions_Hierarchy(t *testing.T) {
	admin := RolePermissions(RoleAdmin)
	user := RolePermissions(RoleUser)
	guest := RolePermissions(RoleGuest)

	// Each role's grants are a superset of the next role down.
	for p, granted := range user {
		if granted {
			assert.True(t, admin[p], "admin missing user permission %s", p)
		}
	}
	for p, granted := range guest {
		if granted {
			assert.True(t, user[p], "user missing guest permission %s", p)
		}
	}

	assert.True(t, admin[PermissionAdminCommands])
	assert.True(t, admin[PermissionManageUsers])
	assert.False(t, user[PermissionAdminCommands])
	assert.True(t, user[PermissionUseQuery])
	assert.True(t, user[PermissionViewMetrics])
	assert.False(t, guest[PermissionUseQuery])
	assert.True(t, guest[PermissionUseEcho])
}

func TestRolePermissions_BannedIsEmpty(t *testing.T) {
	for p, granted := range RolePermissions(RoleBanned) {
		assert.False(t, granted, "banned role granted %s", p)
	}
}

func TestRolePermissions_ReturnsCopy(t *testing.T) {
	first := RolePermissions(RoleGuest)
	first[PermissionAdminCommands] = true

	second := RolePermissions(RoleGuest)
	assert.False(t, second[PermissionAdminCommands], "mutation leaked into shared permission table")
}

func TestRolePermissions_UnknownRole(t *testing.T) {
	perms := RolePermissions(Role("intruder"))
	for p, granted := range perms {
		assert.False(t, granted, "unknown role granted %s", p)
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{"ADMIN", RoleAdmin, false},
		{"User", RoleUser, false},
		{"guest", RoleGuest, false},
		{"banned", RoleBanned, false},
		{"superuser", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_Valid(t *testing.T) {
	for _, role := range Roles {
		assert.True(t, role.Valid(), "role %s should be valid", role)
	}
	assert.False(t, Role("superuser").Valid())
	assert.False(t, Role("").Valid())
}

func TestSession_HasPermission(t *testing.T) {
	s := &Session{Permissions: RolePermissions(RoleGuest)}

	assert.True(t, s.HasPermission(PermissionNone), "no-permission check should always pass for a live session")
	assert.True(t, s.HasPermission(PermissionUseEcho))
	assert.False(t, s.HasPermission(PermissionAdminCommands))
}
