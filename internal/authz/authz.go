// Package authz is the single place that maps roles to what they may see and
// do. Handlers never compare role strings themselves.
package authz

import "github.com/noah-isme/qc-workbench-api/internal/models"

// Action names a privileged operation.
type Action string

const (
	ActionSubjectCreate          Action = "subject:create"
	ActionSubjectDelete          Action = "subject:delete"
	ActionSubjectViewDeleted     Action = "subject:view_deleted"
	ActionTaskRead               Action = "task:read"
	ActionTaskWrite              Action = "task:write"
	ActionPromptWrite            Action = "prompt:write"
	ActionAdminView              Action = "admin:view"
	ActionAdminManageRoles       Action = "admin:manage_roles"
	ActionAdminManagePermissions Action = "admin:manage_permissions"
	ActionAdminGrantSuperAdmin   Action = "admin:grant_super_admin"
	ActionExportCreate           Action = "export:create"
	ActionWorkSubmit             Action = "work:submit"
)

var (
	workRoles        = []models.Role{models.RoleWorker, models.RoleAdmin, models.RoleSuperAdmin}
	developmentRoles = []models.Role{models.RoleDeveloper, models.RoleAdmin, models.RoleSuperAdmin}
	adminRoles       = []models.Role{models.RoleAdmin, models.RoleSuperAdmin}
	everyRole        = models.AllRoles
)

var capabilities = map[Action][]models.Role{
	ActionSubjectCreate:          developmentRoles,
	ActionSubjectDelete:          developmentRoles,
	ActionSubjectViewDeleted:     developmentRoles,
	ActionTaskRead:               developmentRoles,
	ActionTaskWrite:              developmentRoles,
	ActionPromptWrite:            developmentRoles,
	ActionAdminView:              adminRoles,
	ActionAdminManageRoles:       adminRoles,
	ActionAdminManagePermissions: adminRoles,
	ActionAdminGrantSuperAdmin:   {models.RoleSuperAdmin},
	ActionExportCreate:           adminRoles,
	ActionWorkSubmit:             workRoles,
}

// actionOrder keeps capability listings stable.
var actionOrder = []Action{
	ActionSubjectCreate, ActionSubjectDelete, ActionSubjectViewDeleted,
	ActionTaskRead, ActionTaskWrite, ActionPromptWrite,
	ActionAdminView, ActionAdminManageRoles, ActionAdminManagePermissions, ActionAdminGrantSuperAdmin,
	ActionExportCreate, ActionWorkSubmit,
}

// Can reports whether any of roles grants action. Unknown actions are denied.
func Can(roles []models.Role, action Action) bool {
	return intersects(roles, capabilities[action])
}

// NavItem is a top-level section of the workbench.
type NavItem struct {
	Key   string        `json:"key"`
	Label string        `json:"label"`
	Path  string        `json:"path"`
	Roles []models.Role `json:"-"`
}

var navigation = []NavItem{
	{Key: "home", Label: "Home", Path: "/", Roles: everyRole},
	{Key: "work", Label: "Work", Path: "/work", Roles: workRoles},
	{Key: "development", Label: "Development", Path: "/development", Roles: developmentRoles},
	{Key: "prompts", Label: "Prompts", Path: "/prompts", Roles: developmentRoles},
	{Key: "admin", Label: "Admin", Path: "/admin", Roles: adminRoles},
}

// Access is what a role set unlocks.
type Access struct {
	Navigation           []NavItem `json:"navigation"`
	CanAccessWork        bool      `json:"canAccessWork"`
	CanAccessDevelopment bool      `json:"canAccessDevelopment"`
	CanAccessAdmin       bool      `json:"canAccessAdmin"`
	Capabilities         []Action  `json:"capabilities"`
}

// Resolve computes navigation and capabilities for roles. An empty role set
// yields an empty, non-nil result.
func Resolve(roles []models.Role) Access {
	access := Access{
		Navigation:           []NavItem{},
		Capabilities:         []Action{},
		CanAccessWork:        intersects(roles, workRoles),
		CanAccessDevelopment: intersects(roles, developmentRoles),
		CanAccessAdmin:       intersects(roles, adminRoles),
	}
	for _, item := range navigation {
		if intersects(roles, item.Roles) {
			access.Navigation = append(access.Navigation, item)
		}
	}
	for _, action := range actionOrder {
		if Can(roles, action) {
			access.Capabilities = append(access.Capabilities, action)
		}
	}
	return access
}

func intersects(have, want []models.Role) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
