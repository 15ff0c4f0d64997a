package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

const progressColumns = `id, user_id, subject_id, exam_type, task_id, file_type, question_number, reference_data, ai_output, completed, created_at, updated_at`

// ProgressRepository stores per-question work progress.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ListForUser returns the user's rows for a subject and exam type.
func (r *ProgressRepository) ListForUser(ctx context.Context, userID, subjectID string, examType models.ExamType) ([]models.WorkProgress, error) {
	query := `SELECT ` + progressColumns + ` FROM work_progress
WHERE user_id = $1 AND subject_id = $2 AND exam_type = $3
ORDER BY task_id, file_type, question_number`
	rows := []models.WorkProgress{}
	if err := r.db.SelectContext(ctx, &rows, query, userID, subjectID, examType); err != nil {
		return nil, fmt.Errorf("list work progress: %w", err)
	}
	return rows, nil
}

// Upsert stores one question keyed on the full coordinate including the
// question number, so submissions for different questions never overwrite
// each other.
func (r *ProgressRepository) Upsert(ctx context.Context, p *models.WorkProgress) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO work_progress (id, user_id, subject_id, exam_type, task_id, file_type, question_number, reference_data, ai_output, completed, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
ON CONFLICT (user_id, subject_id, exam_type, task_id, file_type, question_number)
DO UPDATE SET reference_data = EXCLUDED.reference_data, ai_output = EXCLUDED.ai_output, completed = EXCLUDED.completed, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		p.ID, p.UserID, p.SubjectID, p.ExamType, p.TaskID, p.FileType, p.QuestionNumber,
		p.ReferenceData, p.AIOutput, p.Completed, now)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return fmt.Errorf("upsert work progress: %w", err)
	}
	return nil
}

// ExportRows aggregates completed question counts per user, task and file
// type. Question numbers above maxQuestion are ignored.
func (r *ProgressRepository) ExportRows(ctx context.Context, subjectID string, examType models.ExamType, maxQuestion int) ([]models.ProgressExportRow, error) {
	const query = `SELECT u.login_id, u.display_name, wp.task_id, wp.file_type,
COUNT(DISTINCT wp.question_number) FILTER (WHERE wp.completed AND wp.question_number <= $3) AS completed_count
FROM work_progress wp
JOIN users u ON u.id = wp.user_id
WHERE wp.subject_id = $1 AND wp.exam_type = $2
GROUP BY u.login_id, u.display_name, wp.task_id, wp.file_type
ORDER BY u.login_id, wp.task_id, wp.file_type`
	rows := []models.ProgressExportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, subjectID, examType, maxQuestion); err != nil {
		return nil, fmt.Errorf("export work progress: %w", err)
	}
	return rows, nil
}
