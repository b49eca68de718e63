package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

func TestRoleService(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRoleRepo()
	svc := core.NewRoleService(repo, core.DefaultRolePermissions())

	t.Run("defaults fill empty permissions", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: " Underwriter "})
		require.NoError(t, err)
		assert.Equal(t, "Underwriter", r.Name)
		assert.Contains(t, r.Permissions, "quote:endorse")
	})

	t.Run("explicit permissions are kept", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "auditor", Permissions: []string{"policy:read"}})
		require.NoError(t, err)
		assert.Equal(t, []string{"policy:read"}, r.Permissions)
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "  "})
		assert.True(t, core.HasCode(err, "role.name.cannot.be.blank"))
	})

	t.Run("duplicate name in tenant", func(t *testing.T) {
		_, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "AUDITOR"})
		assert.ErrorIs(t, err, core.ErrConflict)

		_, err = svc.CreateRole(ctx, "t2", core.RoleInput{Name: "auditor"})
		assert.NoError(t, err)
	})

	t.Run("update keeps permissions when omitted", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "clerk", Permissions: []string{"quote:read"}})
		require.NoError(t, err)

		updated, err := svc.UpdateRole(ctx, "t1", r.ID, core.RoleInput{Name: "senior clerk", Description: "desk"})
		require.NoError(t, err)
		assert.Equal(t, "senior clerk", updated.Name)
		assert.Equal(t, []string{"quote:read"}, updated.Permissions)
		assert.False(t, updated.UpdatedAt.Before(r.UpdatedAt))
	})

	t.Run("other tenants cannot see the role", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "private"})
		require.NoError(t, err)

		_, err = svc.GetRole(ctx, "t2", r.ID)
		assert.ErrorIs(t, err, core.ErrUnauthorized)

		_, err = svc.GetRole(ctx, "t1", "missing")
		assert.True(t, core.HasCode(err, "role.not.found"))
	})
}

func TestDeleteRole(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRoleRepo()
	svc := core.NewRoleService(repo, nil)

	t.Run("assigned role cannot be deleted", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "broker"})
		require.NoError(t, err)
		require.NoError(t, svc.AssignRole(ctx, "t1", r.ID, "u1"))
		require.NoError(t, svc.AssignRole(ctx, "t1", r.ID, "u2"))

		err = svc.DeleteRole(ctx, "t1", r.ID)
		require.Error(t, err)
		assert.True(t, core.HasCode(err, "cannot.delete.role.in.use"))
		assert.ErrorIs(t, err, core.ErrConflict)

		var de *core.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, int64(2), de.Data["assignments"])
	})

	t.Run("permanent role cannot be deleted", func(t *testing.T) {
		require.NoError(t, repo.Upsert(ctx, core.Role{ID: "r-admin", TenantID: "t1", Name: "admin", IsPermanent: true}))

		err := svc.DeleteRole(ctx, "t1", "r-admin")
		assert.True(t, core.HasCode(err, "cannot.delete.permanent.role"))
		assert.ErrorIs(t, err, core.ErrForbidden)
	})

	t.Run("unassigned role is deleted", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "temp"})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteRole(ctx, "t1", r.ID))
		_, err = svc.GetRole(ctx, "t1", r.ID)
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("assigning needs a user", func(t *testing.T) {
		r, err := svc.CreateRole(ctx, "t1", core.RoleInput{Name: "someone"})
		require.NoError(t, err)
		assert.ErrorIs(t, svc.AssignRole(ctx, "t1", r.ID, ""), core.ErrValidation)
	})
}
