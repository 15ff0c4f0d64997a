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

const (
	systemPromptColumns = `id, subject_id, name, content, task_ids, priority, is_active, created_by, created_at, updated_at`
	uploadColumns       = `id, subject_id, task_id, file_type, prompt_text, version, uploaded_by, is_active, created_at, updated_at`
)

// PromptRepository persists system prompts and per-coordinate prompt uploads.
type PromptRepository struct {
	db *sqlx.DB
}

// NewPromptRepository constructs the repository.
func NewPromptRepository(db *sqlx.DB) *PromptRepository {
	return &PromptRepository{db: db}
}

// ListSystem returns a subject's prompts by priority. activeOnly drops
// inactive rows.
func (r *PromptRepository) ListSystem(ctx context.Context, subjectID string, activeOnly bool) ([]models.SystemPrompt, error) {
	query := `SELECT ` + systemPromptColumns + ` FROM system_prompts WHERE subject_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY priority ASC, created_at ASC`
	prompts := []models.SystemPrompt{}
	if err := r.db.SelectContext(ctx, &prompts, query, subjectID); err != nil {
		return nil, fmt.Errorf("list system prompts: %w", err)
	}
	return prompts, nil
}

// GetSystem returns one system prompt.
func (r *PromptRepository) GetSystem(ctx context.Context, id string) (*models.SystemPrompt, error) {
	query := `SELECT ` + systemPromptColumns + ` FROM system_prompts WHERE id = $1`
	var prompt models.SystemPrompt
	if err := r.db.GetContext(ctx, &prompt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get system prompt: %w", err)
	}
	return &prompt, nil
}

// CreateSystemWithinLimit locks the live subject row, counts its prompts and
// inserts only while the count is below the subject's limit (or
// defaultLimit when the subject has none). It returns sql.ErrNoRows when the
// subject is missing or deleted and *LimitReachedError at the cap.
func (r *PromptRepository) CreateSystemWithinLimit(ctx context.Context, prompt *models.SystemPrompt, defaultLimit int) error {
	if prompt.ID == "" {
		prompt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	prompt.CreatedAt = now
	prompt.UpdatedAt = now

	const insert = `INSERT INTO system_prompts (id, subject_id, name, content, task_ids, priority, is_active, created_by, created_at, updated_at)
VALUES (:id, :subject_id, :name, :content, :task_ids, :priority, :is_active, :created_by, :created_at, :updated_at)`
	return database.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var limit sql.NullInt64
		if err := tx.GetContext(ctx, &limit, `SELECT system_prompt_limit FROM subjects WHERE subject_id = $1 AND is_deleted = FALSE FOR UPDATE`, prompt.SubjectID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("lock subject: %w", err)
		}
		capacity := defaultLimit
		if limit.Valid {
			capacity = int(limit.Int64)
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM system_prompts WHERE subject_id = $1`, prompt.SubjectID); err != nil {
			return fmt.Errorf("count system prompts: %w", err)
		}
		if count >= capacity {
			return &LimitReachedError{Limit: capacity, Count: count}
		}
		if _, err := tx.NamedExecContext(ctx, insert, prompt); err != nil {
			return wrap("insert system prompt", err)
		}
		return nil
	})
}

// UpdateSystem persists mutable prompt fields.
func (r *PromptRepository) UpdateSystem(ctx context.Context, prompt *models.SystemPrompt) error {
	prompt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE system_prompts SET name = :name, content = :content, task_ids = :task_ids, priority = :priority, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, prompt); err != nil {
		return fmt.Errorf("update system prompt: %w", err)
	}
	return nil
}

// DeleteSystem removes a prompt and reports whether it existed.
func (r *PromptRepository) DeleteSystem(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "system_prompts", id)
}

// ListUploads returns uploads matching the filter.
func (r *PromptRepository) ListUploads(ctx context.Context, filter models.PromptUploadFilter) ([]models.PromptUpload, error) {
	var conditions []string
	var args []interface{}
	if filter.SubjectID != "" {
		args = append(args, filter.SubjectID)
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)))
	}
	if filter.TaskID != "" {
		args = append(args, filter.TaskID)
		conditions = append(conditions, fmt.Sprintf("task_id = $%d", len(args)))
	}
	if filter.FileType != "" {
		args = append(args, filter.FileType)
		conditions = append(conditions, fmt.Sprintf("file_type = $%d", len(args)))
	}
	query := `SELECT ` + uploadColumns + ` FROM prompt_uploads`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY subject_id, task_id, file_type`

	uploads := []models.PromptUpload{}
	if err := r.db.SelectContext(ctx, &uploads, query, args...); err != nil {
		return nil, fmt.Errorf("list prompt uploads: %w", err)
	}
	return uploads, nil
}

// GetUpload returns the single upload at a coordinate.
func (r *PromptRepository) GetUpload(ctx context.Context, subjectID, taskID string, fileType models.FileType) (*models.PromptUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM prompt_uploads WHERE subject_id = $1 AND task_id = $2 AND file_type = $3`
	var upload models.PromptUpload
	if err := r.db.GetContext(ctx, &upload, query, subjectID, taskID, fileType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get prompt upload: %w", err)
	}
	return &upload, nil
}

// GetUploadByID returns one upload by primary key.
func (r *PromptRepository) GetUploadByID(ctx context.Context, id string) (*models.PromptUpload, error) {
	query := `SELECT ` + uploadColumns + ` FROM prompt_uploads WHERE id = $1`
	var upload models.PromptUpload
	if err := r.db.GetContext(ctx, &upload, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get prompt upload by id: %w", err)
	}
	return &upload, nil
}

// UpsertUpload replaces the upload at its coordinate, bumping version on
// every replacement.
func (r *PromptRepository) UpsertUpload(ctx context.Context, upload *models.PromptUpload) error {
	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `INSERT INTO prompt_uploads (id, subject_id, task_id, file_type, prompt_text, version, uploaded_by, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $8)
ON CONFLICT (subject_id, task_id, file_type)
DO UPDATE SET prompt_text = EXCLUDED.prompt_text, version = prompt_uploads.version + 1,
              uploaded_by = EXCLUDED.uploaded_by, is_active = EXCLUDED.is_active, updated_at = EXCLUDED.updated_at
RETURNING id, version, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		upload.ID, upload.SubjectID, upload.TaskID, upload.FileType, upload.PromptText, upload.UploadedBy, upload.IsActive, now)
	if err := row.Scan(&upload.ID, &upload.Version, &upload.CreatedAt, &upload.UpdatedAt); err != nil {
		return fmt.Errorf("upsert prompt upload: %w", err)
	}
	return nil
}

// DeleteUpload removes an upload and reports whether it existed.
func (r *PromptRepository) DeleteUpload(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "prompt_uploads", id)
}

func (r *PromptRepository) deleteByID(ctx context.Context, table, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s rows: %w", table, err)
	}
	return n > 0, nil
}
