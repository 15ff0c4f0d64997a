package dto

// UpdateUserRoleRequest sets a user's primary role and full role set.
type UpdateUserRoleRequest struct {
	UserID string   `json:"userId" validate:"required"`
	Role   string   `json:"role" validate:"required"`
	Roles  []string `json:"roles"`
}

// UpsertPermissionRequest creates or replaces a per-subject permission.
type UpsertPermissionRequest struct {
	UserID    string `json:"userId" validate:"required"`
	SubjectID string `json:"subjectId" validate:"required"`
	CanAccess bool   `json:"canAccess"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
}
