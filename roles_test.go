package identity_test

import (
	"testing"

	identity "github.com/airlog/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestParseAdminRole(t *testing.T) {
	tests := []struct {
		input string
		want  identity.AdminRole
		ok    bool
	}{
		{input: "owner", want: identity.RoleOwner, ok: true},
		{input: "manager", want: identity.RoleManager, ok: true},
		{input: "admin", ok: false},
		{input: "", ok: false},
		{input: "OWNER", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			role, ok := identity.ParseAdminRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestRoleIsAtLeast(t *testing.T) {
	tests := []struct {
		name string
		role identity.AdminRole
		min  identity.AdminRole
		want bool
	}{
		{name: "owner meets owner", role: identity.RoleOwner, min: identity.RoleOwner, want: true},
		{name: "owner meets manager", role: identity.RoleOwner, min: identity.RoleManager, want: true},
		{name: "manager meets manager", role: identity.RoleManager, min: identity.RoleManager, want: true},
		{name: "manager below owner", role: identity.RoleManager, min: identity.RoleOwner, want: false},
		{name: "unknown role never passes", role: "admin", min: identity.RoleManager, want: false},
		{name: "unknown minimum never passes", role: identity.RoleOwner, min: "root", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.RoleIsAtLeast(tt.role, tt.min))
		})
	}
}

func TestRoleCapabilities(t *testing.T) {
	assert.True(t, identity.RoleCanManageSettings(identity.RoleOwner))
	assert.False(t, identity.RoleCanManageSettings(identity.RoleManager))

	assert.True(t, identity.RoleCanManageMembers(identity.RoleOwner))
	assert.False(t, identity.RoleCanManageMembers(identity.RoleManager))

	assert.True(t, identity.RoleIsValid(identity.RoleOwner))
	assert.True(t, identity.RoleIsValid(identity.RoleManager))
	assert.False(t, identity.RoleIsValid("superuser"))
}
