package authz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"catalog/internal/model"
	"catalog/pkg/apperror"
)

// PermissionSource reads users, role assignments and grants from persistence.
type PermissionSource interface {
	UserExists(ctx context.Context, userID uint) (bool, error)
	RoleNamesForUser(ctx context.Context, userID uint) ([]string, error)
	PermissionNamesForRoles(ctx context.Context, roleNames []string) ([]string, error)
}

// Engine decides whether a user may perform an action. A user's permissions
// are the union of the permissions of all roles assigned to them.
type Engine struct {
	source PermissionSource
	cache  PermissionCache
	log    *slog.Logger
}

func NewEngine(source PermissionSource, cache PermissionCache, log *slog.Logger) *Engine {
	if cache == nil {
		cache = NoopCache{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{source: source, cache: cache, log: log}
}

// CanPerform reports whether userID is entitled to action. Super Admin
// satisfies every action; unknown actions are granted to nobody else.
func (e *Engine) CanPerform(ctx context.Context, userID uint, action Action) (bool, error) {
	roles, err := e.source.RoleNamesForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load roles: %w", err)
	}
	if slices.Contains(roles, model.RoleSuperAdmin) {
		return true, nil
	}

	required, ok := requiredPermission[action]
	if !ok {
		return false, nil
	}

	perms, err := e.permissionsForRoles(ctx, roles)
	if err != nil {
		return false, err
	}
	return slices.Contains(perms, required), nil
}

// Authenticate fails with apperror.ErrUnauthorized unless userID names a
// user that still exists. A token outlives the account it was issued for.
func (e *Engine) Authenticate(ctx context.Context, userID uint) error {
	if userID == 0 {
		return apperror.ErrUnauthorized
	}
	ok, err := e.source.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d no longer exists", apperror.ErrUnauthorized, userID)
	}
	return nil
}

// Authorize returns an error matching apperror.ErrForbidden when userID may
// not perform action, and apperror.ErrUnauthorized when there is no such caller.
func (e *Engine) Authorize(ctx context.Context, userID uint, action Action) error {
	if err := e.Authenticate(ctx, userID); err != nil {
		return err
	}
	ok, err := e.CanPerform(ctx, userID, action)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s requires %q", apperror.ErrForbidden, action, requiredPermission[action])
	}
	return nil
}

// AuthorizeRoleGrant checks that userID may hand out roleNames. Granting only
// permissions the caller already holds needs nothing more; anything beyond
// that needs ActionManageRoles. Only a Super Admin may grant Super Admin.
func (e *Engine) AuthorizeRoleGrant(ctx context.Context, userID uint, roleNames []string) error {
	own, err := e.source.RoleNamesForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}
	if slices.Contains(own, model.RoleSuperAdmin) {
		return nil
	}
	if slices.Contains(roleNames, model.RoleSuperAdmin) {
		return fmt.Errorf("%w: only a %s may grant the %s role", apperror.ErrForbidden, model.RoleSuperAdmin, model.RoleSuperAdmin)
	}

	held, err := e.permissionsForRoles(ctx, own)
	if err != nil {
		return err
	}
	granted, err := e.permissionsForRoles(ctx, roleNames)
	if err != nil {
		return err
	}
	var extra []string
	for _, p := range granted {
		if !slices.Contains(held, p) {
			extra = append(extra, p)
		}
	}
	if len(extra) == 0 || slices.Contains(held, requiredPermission[ActionManageRoles]) {
		return nil
	}
	return fmt.Errorf("%w: granting %v requires %q", apperror.ErrForbidden, extra, requiredPermission[ActionManageRoles])
}

// PermissionsForUser returns the effective permission names of userID, sorted.
func (e *Engine) PermissionsForUser(ctx context.Context, userID uint) ([]string, error) {
	roles, err := e.source.RoleNamesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return e.permissionsForRoles(ctx, roles)
}

// Invalidate drops cached grants for roleNames. Call it after any change to a
// role's name, permissions or existence.
func (e *Engine) Invalidate(ctx context.Context, roleNames ...string) {
	if err := e.cache.Invalidate(ctx, roleNames...); err != nil {
		e.log.Warn("failed to invalidate permission cache", "roles", roleNames, "error", err)
	}
}

func (e *Engine) permissionsForRoles(ctx context.Context, roles []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, role := range roles {
		perms, err := e.permissionsForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		for _, p := range perms {
			seen[p] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (e *Engine) permissionsForRole(ctx context.Context, role string) ([]string, error) {
	perms, ok, err := e.cache.Get(ctx, role)
	if err != nil {
		e.log.Warn("permission cache read failed", "role", role, "error", err)
	} else if ok {
		return perms, nil
	}

	perms, err = e.source.PermissionNamesForRoles(ctx, []string{role})
	if err != nil {
		return nil, fmt.Errorf("load permissions for %q: %w", role, err)
	}

	if err := e.cache.Set(ctx, role, perms); err != nil {
		e.log.Warn("permission cache write failed", "role", role, "error", err)
	}
	return perms, nil
}

// IsReservedRole reports whether name is one of the seeded system roles.
func IsReservedRole(name string) bool {
	switch name {
	case model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin:
		return true
	}
	return false
}

// GuardRoleDeletion fails with apperror.ErrProtectedResource for reserved
// roles, whoever the caller is.
func GuardRoleDeletion(name string) error {
	if IsReservedRole(name) {
		return fmt.Errorf("%w: cannot delete a default system role", apperror.ErrProtectedResource)
	}
	return nil
}
