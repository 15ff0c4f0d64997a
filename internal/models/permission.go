package models

import "time"

// AccessPermission overrides subject access for one user. Absence of a row
// means the user's roles alone decide.
type AccessPermission struct {
	UserID    string    `db:"user_id" json:"-"`
	LoginID   string    `db:"login_id" json:"userId"`
	SubjectID string    `db:"subject_id" json:"subjectId"`
	CanAccess bool      `db:"can_access" json:"canAccess"`
	CanEdit   bool      `db:"can_edit" json:"canEdit"`
	CanDelete bool      `db:"can_delete" json:"canDelete"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// PermissionFilter narrows permission listings. UserID is a login id.
type PermissionFilter struct {
	UserID    string
	SubjectID string
}
