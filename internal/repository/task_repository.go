package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

// TaskRepository persists task definitions, one row per (subject, exam type).
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository constructs the repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Get returns the definition for subjectID and examType.
func (r *TaskRepository) Get(ctx context.Context, subjectID string, examType models.ExamType) (*models.TaskDefinition, error) {
	const query = `SELECT id, subject_id, exam_type, files, updated_by, created_at, updated_at
FROM task_definitions WHERE subject_id = $1 AND exam_type = $2`
	var def models.TaskDefinition
	if err := r.db.GetContext(ctx, &def, query, subjectID, examType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get task definition: %w", err)
	}
	return &def, nil
}

// Upsert inserts or replaces the files for (subject, exam type).
func (r *TaskRepository) Upsert(ctx context.Context, def *models.TaskDefinition) error {
	if def.ID == "" {
		def.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO task_definitions (id, subject_id, exam_type, files, updated_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
ON CONFLICT (subject_id, exam_type)
DO UPDATE SET files = EXCLUDED.files, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, def.ID, def.SubjectID, def.ExamType, def.Files, def.UpdatedBy, now)
	if err := row.Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return fmt.Errorf("upsert task definition: %w", err)
	}
	return nil
}
