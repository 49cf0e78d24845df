package authz

// Action is a capability a caller asks to exercise.
type Action string

const (
	ActionViewUsers     Action = "view-users"
	ActionCreateUsers   Action = "create-users"
	ActionManageUsers   Action = "manage-users"
	ActionDeleteUsers   Action = "delete-users"
	ActionViewRoles     Action = "view-roles"
	ActionCreateRoles   Action = "create-roles"
	ActionManageRoles   Action = "manage-roles"
	ActionDeleteRoles   Action = "delete-roles"
	ActionManageCatalog Action = "manage-catalog"
	ActionViewAudit     Action = "view-audit"

	// Statistics are visible to whoever may manage the catalog.
	ActionViewStatistics Action = "view-statistics"
)

// Permission names as stored in the permissions table.
const (
	PermViewUsers     = "view users"
	PermCreateUsers   = "create users"
	PermEditUsers     = "edit users"
	PermDeleteUsers   = "delete users"
	PermViewRoles     = "view roles"
	PermCreateRoles   = "create roles"
	PermEditRoles     = "edit roles"
	PermDeleteRoles   = "delete roles"
	PermManageCatalog = "manage catalog"
	PermViewAudit     = "view audit"
)

var requiredPermission = map[Action]string{
	ActionViewUsers:      PermViewUsers,
	ActionCreateUsers:    PermCreateUsers,
	ActionManageUsers:    PermEditUsers,
	ActionDeleteUsers:    PermDeleteUsers,
	ActionViewRoles:      PermViewRoles,
	ActionCreateRoles:    PermCreateRoles,
	ActionManageRoles:    PermEditRoles,
	ActionDeleteRoles:    PermDeleteRoles,
	ActionManageCatalog:  PermManageCatalog,
	ActionViewAudit:      PermViewAudit,
	ActionViewStatistics: PermManageCatalog,
}

// RequiredPermission returns the permission backing action.
func RequiredPermission(action Action) (string, bool) {
	p, ok := requiredPermission[action]
	return p, ok
}

// PermissionGroup classifies a permission for listing.
type PermissionGroup struct {
	Name  string
	Group string
}

// DefaultPermissions is every permission the application checks, in display order.
func DefaultPermissions() []PermissionGroup {
	return []PermissionGroup{
		{PermViewUsers, "users"},
		{PermCreateUsers, "users"},
		{PermEditUsers, "users"},
		{PermDeleteUsers, "users"},
		{PermViewRoles, "roles"},
		{PermCreateRoles, "roles"},
		{PermEditRoles, "roles"},
		{PermDeleteRoles, "roles"},
		{PermManageCatalog, "catalog"},
		{PermViewAudit, "audit"},
	}
}
