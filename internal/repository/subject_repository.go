package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/database"
)

const subjectColumns = `id, subject_id, subject_name, exam_type, is_deleted, deleted_at, system_prompt_limit, created_by, created_at, updated_at`

// subjectDependents lists tables keyed by subject slug, children first.
var subjectDependents = []string{"work_progress", "prompt_uploads", "system_prompts", "access_permissions", "task_definitions"}

// SubjectRepository handles persistence for subjects.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository creates a new repository instance.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns live or soft-deleted subjects ordered by name.
func (r *SubjectRepository) List(ctx context.Context, deleted bool) ([]models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE is_deleted = $1 ORDER BY subject_name ASC`
	subjects := []models.Subject{}
	if err := r.db.SelectContext(ctx, &subjects, query, deleted); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindBySubjectID returns a subject by slug regardless of its deleted flag.
func (r *SubjectRepository) FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE subject_id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, subjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	return &subject, nil
}

// Collisions reports whether name (case-insensitive) or subjectID is used by
// any subject, live or deleted.
func (r *SubjectRepository) Collisions(ctx context.Context, name, subjectID string) (nameTaken, idTaken bool, err error) {
	const query = `SELECT
COALESCE(BOOL_OR(LOWER(subject_name) = LOWER($1)), FALSE) AS name_taken,
COALESCE(BOOL_OR(subject_id = $2), FALSE) AS id_taken
FROM subjects WHERE LOWER(subject_name) = LOWER($1) OR subject_id = $2`
	var row struct {
		NameTaken bool `db:"name_taken"`
		IDTaken   bool `db:"id_taken"`
	}
	if err := r.db.GetContext(ctx, &row, query, strings.TrimSpace(name), subjectID); err != nil {
		return false, false, fmt.Errorf("check subject collisions: %w", err)
	}
	return row.NameTaken, row.IDTaken, nil
}

// SubjectIDExists reports whether the slug is taken by any subject.
func (r *SubjectRepository) SubjectIDExists(ctx context.Context, subjectID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM subjects WHERE subject_id = $1)`, subjectID); err != nil {
		return false, fmt.Errorf("check subject id: %w", err)
	}
	return exists, nil
}

// Create inserts a subject. Name or slug collisions surface as ErrDuplicate.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	subject.CreatedAt = now
	subject.UpdatedAt = now

	const query = `INSERT INTO subjects (id, subject_id, subject_name, exam_type, is_deleted, deleted_at, system_prompt_limit, created_by, created_at, updated_at)
VALUES (:id, :subject_id, :subject_name, :exam_type, :is_deleted, :deleted_at, :system_prompt_limit, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return wrap("create subject", err)
	}
	return nil
}

// SetDeleted flips the soft-delete flag only when the subject is currently in
// the opposite state. It returns false when no row changed.
func (r *SubjectRepository) SetDeleted(ctx context.Context, subjectID string, deleted bool, at time.Time) (bool, error) {
	var deletedAt *time.Time
	if deleted {
		deletedAt = &at
	}
	const query = `UPDATE subjects SET is_deleted = $2, deleted_at = $3, updated_at = $4 WHERE subject_id = $1 AND is_deleted <> $2`
	res, err := r.db.ExecContext(ctx, query, subjectID, deleted, deletedAt, at)
	if err != nil {
		return false, fmt.Errorf("set subject deleted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set subject deleted rows: %w", err)
	}
	return n > 0, nil
}

// HardDelete removes the subject and every row keyed by its slug in one
// transaction. It returns false when the subject does not exist.
func (r *SubjectRepository) HardDelete(ctx context.Context, subjectID string) (bool, error) {
	err := database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var id string
		if err := tx.GetContext(ctx, &id, `SELECT id FROM subjects WHERE subject_id = $1 FOR UPDATE`, subjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock subject: %w", err)
		}
		for _, table := range subjectDependents {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE subject_id = $1`, table), subjectID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		return nil
	})
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("hard delete subject: %w", err)
	}
	return true, nil
}
