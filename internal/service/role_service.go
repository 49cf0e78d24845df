package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/pkg/apperror"
	"catalog/pkg/optional"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required,max=100"`
	Permissions []string `json:"permissions"` // permission names
}

type UpdateRoleRequest struct {
	Name        optional.Value[string]   `json:"name"`
	Permissions optional.Value[[]string] `json:"permissions"`
}

type RoleResponse struct {
	ID          uint                 `json:"id"`
	Name        string               `json:"name"`
	IsReserved  bool                 `json:"is_reserved"`
	Permissions []PermissionResponse `json:"permissions"`
	CreatedAt   string               `json:"created_at"`
	UpdatedAt   string               `json:"updated_at"`
}

type PermissionResponse struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, actor uint) ([]RoleResponse, error)
	GetRole(ctx context.Context, actor, id uint) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor uint, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor, id uint, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actor, id uint) error
	ListPermissions(ctx context.Context, actor uint) ([]PermissionResponse, error)
	SeedDefaults(ctx context.Context) error
}

// PermissionInvalidator drops cached permissions of the named roles.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, roleNames ...string)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, ...string) {}

type roleService struct {
	roles       repository.RoleRepository
	audit       repository.AuditRepository
	tx          repository.TransactionManager
	authz       Authorizer
	invalidator PermissionInvalidator
	log         *slog.Logger
}

func NewRoleService(roles repository.RoleRepository, audit repository.AuditRepository, tx repository.TransactionManager, az Authorizer, invalidator PermissionInvalidator, log *slog.Logger) RoleService {
	if log == nil {
		log = slog.Default()
	}
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &roleService{roles: roles, audit: audit, tx: tx, authz: az, invalidator: invalidator, log: log}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, actor uint) ([]RoleResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewRoles); err != nil {
		return nil, err
	}

	roles, err := s.roles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}

	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, nil
}

func (s *roleService) GetRole(ctx context.Context, actor, id uint) (*RoleResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewRoles); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "role")
	}
	res := toRoleResponse(*role)
	return &res, nil
}

// resolvePermissions loads permissions by name and rejects unknown names.
func (s *roleService) resolvePermissions(ctx context.Context, names []string) ([]model.Permission, error) {
	if len(names) == 0 {
		return []model.Permission{}, nil
	}
	perms, err := s.roles.FindPermissionsByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	found := make(map[string]bool, len(perms))
	for _, p := range perms {
		found[p.Name] = true
	}
	for _, n := range names {
		if !found[n] {
			return nil, apperror.NewValidation("permissions", fmt.Sprintf("There is no permission named `%s`.", n))
		}
	}
	return perms, nil
}

// nameTaken reports whether name belongs to a role other than exceptID.
func (s *roleService) nameTaken(ctx context.Context, name string, exceptID uint) (bool, error) {
	existing, err := s.roles.FindByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check role name: %w", err)
	}
	return existing.ID != exceptID, nil
}

func (s *roleService) CreateRole(ctx context.Context, actor uint, req CreateRoleRequest) (*RoleResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionCreateRoles); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.NewValidation("name", msgRequired("name"))
	}
	taken, err := s.nameTaken(ctx, name, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewConflict("name", msgTaken("name"))
	}

	perms, err := s.resolvePermissions(ctx, req.Permissions)
	if err != nil {
		return nil, err
	}

	role := &model.Role{Name: name}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Create(txCtx, role); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewConflict("name", msgTaken("name"))
			}
			return fmt.Errorf("failed to create role: %w", err)
		}
		if len(perms) > 0 {
			if err := s.roles.ReplacePermissions(txCtx, role, perms); err != nil {
				return fmt.Errorf("failed to assign permissions: %w", err)
			}
		}
		role.Permissions = perms
		return writeAudit(txCtx, s.audit, actor, model.ActionCreateRole, role.ID, role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	res := toRoleResponse(*role)
	return &res, nil
}

// UpdateRole renames the role and/or replaces its permission set. Cached
// permissions of the old and new name are dropped after commit.
func (s *roleService) UpdateRole(ctx context.Context, actor, id uint, req UpdateRoleRequest) (*RoleResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageRoles); err != nil {
		return nil, err
	}

	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "role")
	}
	oldName := role.Name

	if req.Name.IsSet() {
		name, _ := req.Name.Get()
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, apperror.NewValidation("name", msgRequired("name"))
		}
		if authz.IsReservedRole(oldName) && name != oldName {
			return nil, fmt.Errorf("cannot rename a default system role: %w", apperror.ErrProtectedResource)
		}
		taken, err := s.nameTaken(ctx, name, role.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.NewConflict("name", msgTaken("name"))
		}
		role.Name = name
	}

	var perms []model.Permission
	names, syncPerms := req.Permissions.Get()
	if req.Permissions.IsNull() {
		syncPerms = true
	}
	if syncPerms {
		if perms, err = s.resolvePermissions(ctx, names); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Update(txCtx, role); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewConflict("name", msgTaken("name"))
			}
			return fmt.Errorf("failed to update role: %w", err)
		}
		if syncPerms {
			if err := s.roles.ReplacePermissions(txCtx, role, perms); err != nil {
				return fmt.Errorf("failed to sync permissions: %w", err)
			}
			role.Permissions = perms
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionUpdateRole, role.ID, role.Name, req)
	})
	if err != nil {
		return nil, err
	}

	s.invalidator.Invalidate(ctx, oldName, role.Name)

	res := toRoleResponse(*role)
	return &res, nil
}

// DeleteRole checks the reserved names before anything else, so a reserved
// role is protected whatever the caller's permissions.
func (s *roleService) DeleteRole(ctx context.Context, actor, id uint) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return notFound(err, "role")
	}

	if err := authz.GuardRoleDeletion(role.Name); err != nil {
		return err
	}
	if err := s.authz.Authorize(ctx, actor, authz.ActionDeleteRoles); err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.roles.Delete(txCtx, role); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionDeleteRole, role.ID, role.Name, map[string]uint{"deleted_id": id})
	})
	if err != nil {
		return err
	}

	s.invalidator.Invalidate(ctx, role.Name)
	return nil
}

func (s *roleService) ListPermissions(ctx context.Context, actor uint) ([]PermissionResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewRoles); err != nil {
		return nil, err
	}

	perms, err := s.roles.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// adminPermissions is what the seeded Admin role starts with.
var adminPermissions = []string{
	authz.PermViewUsers,
	authz.PermCreateUsers,
	authz.PermEditUsers,
	authz.PermViewRoles,
	authz.PermManageCatalog,
	authz.PermViewAudit,
}

// SeedDefaults creates the known permissions and the reserved roles. It is
// safe to run on every start: existing rows are reused, and role grants are
// only written when the role is first created.
func (s *roleService) SeedDefaults(ctx context.Context) error {
	var created []string

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		byName := make(map[string]model.Permission)
		all := make([]model.Permission, 0, len(authz.DefaultPermissions()))
		for _, def := range authz.DefaultPermissions() {
			p := model.Permission{Name: def.Name, Group: def.Group}
			if err := s.roles.FindOrCreatePermission(txCtx, &p); err != nil {
				return fmt.Errorf("failed to seed permission '%s': %w", def.Name, err)
			}
			byName[p.Name] = p
			all = append(all, p)
		}

		grants := map[string][]model.Permission{
			model.RoleUser:       {},
			model.RoleAdmin:      pick(byName, adminPermissions),
			model.RoleSuperAdmin: all,
		}

		for _, name := range []string{model.RoleUser, model.RoleAdmin, model.RoleSuperAdmin} {
			_, err := s.roles.FindByName(txCtx, name)
			if err == nil {
				continue
			}
			if !repository.IsNotFound(err) {
				return fmt.Errorf("failed to fetch role '%s': %w", name, err)
			}

			role := &model.Role{Name: name}
			if err := s.roles.Create(txCtx, role); err != nil {
				return fmt.Errorf("failed to seed role '%s': %w", name, err)
			}
			if perms := grants[name]; len(perms) > 0 {
				if err := s.roles.ReplacePermissions(txCtx, role, perms); err != nil {
					return fmt.Errorf("failed to grant permissions to '%s': %w", name, err)
				}
			}
			created = append(created, name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(created) > 0 {
		s.invalidator.Invalidate(ctx, created...)
		s.log.Info("Seeded roles", "roles", created)
	}
	return nil
}

func pick(byName map[string]model.Permission, names []string) []model.Permission {
	out := make([]model.Permission, 0, len(names))
	for _, n := range names {
		if p, ok := byName[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

func toRoleResponse(r model.Role) RoleResponse {
	perms := make([]PermissionResponse, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		perms = append(perms, toPermissionResponse(p))
	}

	return RoleResponse{
		ID:          r.ID,
		Name:        r.Name,
		IsReserved:  authz.IsReservedRole(r.Name),
		Permissions: perms,
		CreatedAt:   formatTime(r.CreatedAt),
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}

func toPermissionResponse(p model.Permission) PermissionResponse {
	return PermissionResponse{
		ID:    p.ID,
		Name:  p.Name,
		Group: p.Group,
	}
}
