package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleOrdering(t *testing.T) {
	ordered := []Role{RoleGuest, RoleUser, RoleManager, RoleAdmin}

	for i, lower := range ordered {
		for j, higher := range ordered {
			got := higher.HasAtLeast(lower)
			want := j >= i
			require.Equalf(t, want, got, "%s.HasAtLeast(%s)", higher, lower)
		}
	}
}

func TestRoleOrderingTransitive(t *testing.T) {
	require.True(t, RoleAdmin.HasAtLeast(RoleManager))
	require.True(t, RoleManager.HasAtLeast(RoleUser))
	require.True(t, RoleAdmin.HasAtLeast(RoleUser))

	require.False(t, RoleUser.HasAtLeast(RoleAdmin))
	require.False(t, RoleUser.HasAtLeast(RoleManager))
}

func TestHasAtLeastUnknownRole(t *testing.T) {
	require.False(t, Role("superuser").HasAtLeast(RoleUser))
	require.True(t, RoleUser.HasAtLeast(Role("superuser")))
}

func TestResolveRolePrecedence(t *testing.T) {
	cases := []struct {
		name string
		raw  []string
		want Role
	}{
		{"admin wins over user", []string{"admin", "user"}, RoleAdmin},
		{"admin wins over manager", []string{"manager", "admin"}, RoleAdmin},
		{"manager over user", []string{"user", "manager"}, RoleManager},
		{"plain user", []string{"user"}, RoleUser},
		{"unrecognized defaults to user", []string{"offline_access", "uma_authorization"}, RoleUser},
		{"empty defaults to user", nil, RoleUser},
		{"case insensitive", []string{"Admin"}, RoleAdmin},
		{"whitespace tolerated", []string{" manager "}, RoleManager},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ResolveRole(tc.raw))
		})
	}
}

func TestResolveRoleNeverGuest(t *testing.T) {
	// Guest is reserved for the unauthenticated case; the resolver must not
	// produce it for any input.
	inputs := [][]string{nil, {}, {"guest"}, {"nonsense"}}
	for _, raw := range inputs {
		require.NotEqual(t, RoleGuest, ResolveRole(raw))
	}
}
