package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoleWeightsAreTotallyOrdered(t *testing.T) {
	require.Less(t, RoleUser.Weight(), RoleAdmin.Weight())
	require.Less(t, RoleAdmin.Weight(), RoleSuperAdmin.Weight())
}

func TestParseRole(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		parsed, err := ParseRole(r.String())
		require.NoError(t, err)
		require.Equal(t, r, parsed)
	}

	_, err := ParseRole("overlord")
	require.ErrorIs(t, err, ErrUnknownRole)

	_, err = ParseRole("")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestIsAdmin(t *testing.T) {
	require.False(t, RoleUser.IsAdmin())
	require.True(t, RoleAdmin.IsAdmin())
	require.True(t, RoleSuperAdmin.IsAdmin())
}

func TestCanActOnIsStrict(t *testing.T) {
	// equal weight never suffices, including super admin on super admin
	for _, r := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		require.False(t, r.CanActOn(r), r.String())
	}

	require.True(t, RoleSuperAdmin.CanActOn(RoleAdmin))
	require.True(t, RoleSuperAdmin.CanActOn(RoleUser))
	require.True(t, RoleAdmin.CanActOn(RoleUser))
	require.False(t, RoleAdmin.CanActOn(RoleSuperAdmin))
	require.False(t, RoleUser.CanActOn(RoleAdmin))
}

func TestCanAssignMirrorsCanActOn(t *testing.T) {
	for _, actor := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
		for _, target := range []Role{RoleUser, RoleAdmin, RoleSuperAdmin} {
			require.Equal(t, actor.CanActOn(target), actor.CanAssign(target))
		}
	}
}

func TestAtOrBelow(t *testing.T) {
	require.Equal(t, []Role{RoleUser}, RoleUser.AtOrBelow())
	require.Equal(t, []Role{RoleUser, RoleAdmin}, RoleAdmin.AtOrBelow())
	require.Equal(t, []Role{RoleUser, RoleAdmin, RoleSuperAdmin}, RoleSuperAdmin.AtOrBelow())
}

func TestBelow(t *testing.T) {
	require.Empty(t, RoleUser.Below())
	require.Equal(t, []Role{RoleUser}, RoleAdmin.Below())
	require.Equal(t, []Role{RoleUser, RoleAdmin}, RoleSuperAdmin.Below())
}

func TestUnknownRoleRanksBelowEverything(t *testing.T) {
	unknown := Role("访客")
	require.False(t, unknown.Valid())
	require.Equal(t, 0, unknown.Weight())
	require.False(t, unknown.CanActOn(RoleUser))
	require.True(t, RoleUser.CanActOn(unknown))
}
