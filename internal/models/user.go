package models

import (
	"time"

	"github.com/lib/pq"
)

// Role is one of the fixed workbench roles.
type Role string

const (
	RoleWorker     Role = "WORKER"
	RoleDeveloper  Role = "DEVELOPER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// AllRoles lists every assignable role in privilege order.
var AllRoles = []Role{RoleWorker, RoleDeveloper, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleWorker, RoleDeveloper, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// User is a workbench account together with its assigned role set.
type User struct {
	ID           string         `db:"id" json:"id"`
	LoginID      string         `db:"login_id" json:"userId"`
	DisplayName  string         `db:"display_name" json:"name"`
	PasswordHash string         `db:"password_hash" json:"-"`
	PrimaryRole  Role           `db:"primary_role" json:"role"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	Active       bool           `db:"active" json:"active"`
	LastLogin    *time.Time     `db:"last_login" json:"lastLogin,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// RoleSet returns the assigned roles with the primary role guaranteed present.
func (u *User) RoleSet() []Role {
	roles := make([]Role, 0, len(u.Roles)+1)
	seen := make(map[Role]struct{}, len(u.Roles)+1)
	add := func(r Role) {
		if _, ok := seen[r]; ok || r == "" {
			return
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	add(u.PrimaryRole)
	for _, r := range u.Roles {
		add(Role(r))
	}
	return roles
}

// HasRole reports whether the persisted role rows include r.
func (u *User) HasRole(r Role) bool {
	for _, assigned := range u.Roles {
		if Role(assigned) == r {
			return true
		}
	}
	return false
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *Role
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalCount int `json:"totalCount"`
}
