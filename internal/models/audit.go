package models

import "time"

// Audit actions recorded by the services.
const (
	AuditActionLogin            = "LOGIN"
	AuditActionLogout           = "LOGOUT"
	AuditActionRegister         = "REGISTER"
	AuditActionRoleUpdate       = "ROLE_UPDATE"
	AuditActionPermissionUpdate = "PERMISSION_UPDATE"
	AuditActionSubjectCreate    = "SUBJECT_CREATE"
	AuditActionSubjectDelete    = "SUBJECT_DELETE"
	AuditActionSubjectRestore   = "SUBJECT_RESTORE"
	AuditActionSubjectPurge     = "SUBJECT_HARD_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"userId,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resourceId,omitempty"`
	OldValues  []byte    `db:"old_values" json:"oldValues,omitempty"`
	NewValues  []byte    `db:"new_values" json:"newValues,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ipAddress"`
	UserAgent  string    `db:"user_agent" json:"userAgent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
