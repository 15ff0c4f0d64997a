package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

// PermissionRepository persists per-subject access overrides.
type PermissionRepository struct {
	db *sqlx.DB
}

// NewPermissionRepository constructs the repository.
func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Get returns the override for a user id (internal) and subject slug.
func (r *PermissionRepository) Get(ctx context.Context, userID, subjectID string) (*models.AccessPermission, error) {
	const query = `SELECT p.user_id, u.login_id, p.subject_id, p.can_access, p.can_edit, p.can_delete, p.updated_at
FROM access_permissions p JOIN users u ON u.id = p.user_id
WHERE p.user_id = $1 AND p.subject_id = $2`
	var perm models.AccessPermission
	if err := r.db.GetContext(ctx, &perm, query, userID, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get access permission: %w", err)
	}
	return &perm, nil
}

// List returns overrides filtered by login id and/or subject slug.
func (r *PermissionRepository) List(ctx context.Context, filter models.PermissionFilter) ([]models.AccessPermission, error) {
	var conditions []string
	var args []interface{}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("u.login_id = $%d", len(args)))
	}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("p.subject_id = $%d", len(args)))
	}
	query := `SELECT p.user_id, u.login_id, p.subject_id, p.can_access, p.can_edit, p.can_delete, p.updated_at
FROM access_permissions p JOIN users u ON u.id = p.user_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY u.login_id, p.subject_id"

	perms := []models.AccessPermission{}
	if err := r.db.SelectContext(ctx, &perms, query, args...); err != nil {
		return nil, fmt.Errorf("list access permissions: %w", err)
	}
	return perms, nil
}

// Upsert creates or replaces the override on (user, subject).
func (r *PermissionRepository) Upsert(ctx context.Context, perm *models.AccessPermission) error {
	perm.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO access_permissions (user_id, subject_id, can_access, can_edit, can_delete, updated_at)
VALUES (:user_id, :subject_id, :can_access, :can_edit, :can_delete, :updated_at)
ON CONFLICT (user_id, subject_id)
DO UPDATE SET can_access = EXCLUDED.can_access, can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, perm); err != nil {
		return fmt.Errorf("upsert access permission: %w", err)
	}
	return nil
}
