package authz_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"catalog/internal/authz"
	"catalog/internal/database/dbtest"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/pkg/apperror"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	userRoles map[uint][]string
	rolePerms map[string][]string
	permLoads int
	failRoles error
}

func (f *fakeSource) UserExists(_ context.Context, userID uint) (bool, error) {
	_, ok := f.userRoles[userID]
	return ok, nil
}

func (f *fakeSource) RoleNamesForUser(_ context.Context, userID uint) ([]string, error) {
	if f.failRoles != nil {
		return nil, f.failRoles
	}
	return f.userRoles[userID], nil
}

func (f *fakeSource) PermissionNamesForRoles(_ context.Context, roles []string) ([]string, error) {
	f.permLoads++
	var out []string
	for _, r := range roles {
		out = append(out, f.rolePerms[r]...)
	}
	return out, nil
}

func newSource() *fakeSource {
	return &fakeSource{
		userRoles: map[uint][]string{
			1: {model.RoleSuperAdmin},
			2: {model.RoleAdmin},
			3: {model.RoleUser},
			4: {model.RoleUser, "Auditor"},
		},
		rolePerms: map[string][]string{
			model.RoleAdmin: {authz.PermViewUsers, authz.PermEditUsers, authz.PermManageCatalog},
			"Auditor":       {authz.PermViewAudit},
		},
	}
}

func TestCanPerform(t *testing.T) {
	engine := authz.NewEngine(newSource(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		user   uint
		action authz.Action
		want   bool
	}{
		{"super admin bypasses every check", 1, authz.ActionDeleteRoles, true},
		{"super admin passes unknown actions", 1, authz.Action("launch-rockets"), true},
		{"admin has granted permission", 2, authz.ActionManageCatalog, true},
		{"admin lacks delete users", 2, authz.ActionDeleteUsers, false},
		{"plain user has nothing", 3, authz.ActionViewUsers, false},
		{"permissions are unioned across roles", 4, authz.ActionViewAudit, true},
		{"unknown action is denied", 2, authz.Action("launch-rockets"), false},
		{"user without roles", 99, authz.ActionViewUsers, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.CanPerform(ctx, tt.user, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizeSignalsForbidden(t *testing.T) {
	engine := authz.NewEngine(newSource(), nil, nil)

	err := engine.Authorize(context.Background(), 3, authz.ActionManageUsers)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	assert.False(t, errors.Is(err, apperror.ErrUnauthorized))

	assert.NoError(t, engine.Authorize(context.Background(), 2, authz.ActionManageUsers))

	err = engine.Authorize(context.Background(), 0, authz.ActionViewUsers)
	assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
}

func TestAuthorizeRejectsUsersThatNoLongerExist(t *testing.T) {
	src := newSource()
	engine := authz.NewEngine(src, nil, nil)
	ctx := context.Background()

	require.NoError(t, engine.Authenticate(ctx, 3))
	delete(src.userRoles, 3)

	assert.ErrorIs(t, engine.Authenticate(ctx, 3), apperror.ErrUnauthorized)
	assert.ErrorIs(t, engine.Authorize(ctx, 3, authz.ActionViewUsers), apperror.ErrUnauthorized)
	assert.ErrorIs(t, engine.Authenticate(ctx, 0), apperror.ErrUnauthorized)
}

func TestAuthorizePropagatesSourceErrors(t *testing.T) {
	src := newSource()
	src.failRoles = errors.New("db down")
	engine := authz.NewEngine(src, nil, nil)

	err := engine.Authorize(context.Background(), 2, authz.ActionViewUsers)
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperror.ErrForbidden))
}

func TestGuardRoleDeletion(t *testing.T) {
	for _, name := range []string{model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin} {
		err := authz.GuardRoleDeletion(name)
		assert.True(t, errors.Is(err, apperror.ErrProtectedResource), name)
	}
	assert.NoError(t, authz.GuardRoleDeletion("Editor"))
	assert.NoError(t, authz.GuardRoleDeletion("admin"))
}

func TestNoopCacheReadsEveryTime(t *testing.T) {
	src := newSource()
	engine := authz.NewEngine(src, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := engine.CanPerform(ctx, 2, authz.ActionViewUsers)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.permLoads)
}

func TestRedisCacheServesAndInvalidates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	src := newSource()
	engine := authz.NewEngine(src, authz.NewRedisCache(client, time.Minute), nil)
	ctx := context.Background()

	ok, err := engine.CanPerform(ctx, 2, authz.ActionViewUsers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, src.permLoads)
	assert.True(t, mr.Exists("authz:role:Admin"))

	ok, err = engine.CanPerform(ctx, 2, authz.ActionViewUsers)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, src.permLoads, "second check should hit the cache")

	// Revoke and invalidate: the next check sees the change.
	src.rolePerms[model.RoleAdmin] = nil
	engine.Invalidate(ctx, model.RoleAdmin)

	ok, err = engine.CanPerform(ctx, 2, authz.ActionViewUsers)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, src.permLoads)
}

func TestRedisCacheFallsBackWhenUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	engine := authz.NewEngine(newSource(), authz.NewRedisCache(client, time.Minute), nil)

	ok, err := engine.CanPerform(context.Background(), 2, authz.ActionManageCatalog)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEngineOverRoleRepository(t *testing.T) {
	db := dbtest.New(t)
	roles := repository.NewRoleRepository(db)
	ctx := context.Background()

	view := model.Permission{Name: authz.PermViewUsers, Group: "users"}
	edit := model.Permission{Name: authz.PermEditUsers, Group: "users"}
	require.NoError(t, db.Create(&view).Error)
	require.NoError(t, db.Create(&edit).Error)

	viewer := model.Role{Name: "Viewer", Permissions: []model.Permission{view}}
	editor := model.Role{Name: "Editor", Permissions: []model.Permission{edit}}
	require.NoError(t, roles.Create(ctx, &viewer))
	require.NoError(t, roles.Create(ctx, &editor))

	user := model.User{Name: "Ann", Email: "ann@example.com", Password: "x", Roles: []model.Role{viewer, editor}}
	require.NoError(t, db.Create(&user).Error)

	engine := authz.NewEngine(roles, nil, nil)

	perms, err := engine.PermissionsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{authz.PermEditUsers, authz.PermViewUsers}, perms)

	ok, err := engine.CanPerform(ctx, user.ID, authz.ActionManageUsers)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.CanPerform(ctx, user.ID, authz.ActionDeleteUsers)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthorizeRoleGrant(t *testing.T) {
	src := newSource()
	src.userRoles[5] = []string{"Role Manager"}
	src.rolePerms["Role Manager"] = []string{authz.PermEditUsers, authz.PermEditRoles}
	engine := authz.NewEngine(src, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		user    uint
		roles   []string
		allowed bool
	}{
		{"super admin grants anything", 1, []string{model.RoleSuperAdmin}, true},
		{"admin grants a role within its own permissions", 2, []string{model.RoleAdmin, model.RoleUser}, true},
		{"admin cannot grant super admin", 2, []string{model.RoleSuperAdmin}, false},
		{"admin cannot grant permissions it lacks", 2, []string{"Auditor"}, false},
		{"role managers grant beyond their own permissions", 5, []string{"Auditor", model.RoleAdmin}, true},
		{"role managers still cannot grant super admin", 5, []string{model.RoleSuperAdmin}, false},
		{"empty role set is always fine", 3, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.AuthorizeRoleGrant(ctx, tt.user, tt.roles)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperror.ErrForbidden)
			}
		})
	}
}
