package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

var systemPromptRowColumns = []string{"id", "subject_id", "name", "content", "task_ids", "priority", "is_active", "created_by", "created_at", "updated_at"}

func TestPromptRepositoryListSystemActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM system_prompts WHERE subject_id = \$1 AND is_active = TRUE ORDER BY priority ASC`).
		WithArgs("english").
		WillReturnRows(sqlmock.NewRows(systemPromptRowColumns).
			AddRow("sp-1", "english", "Tone", "Be strict", "{T1,T2}", 1, true, nil, now, now))

	prompts, err := repo.ListSystem(context.Background(), "english", true)
	require.NoError(t, err)
	require.Len(t, prompts, 1)
	assert.True(t, prompts[0].AppliesTo("T2"))
	assert.False(t, prompts[0].AppliesTo("T3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryCreateWithinLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT system_prompt_limit FROM subjects WHERE subject_id = \$1 AND is_deleted = FALSE FOR UPDATE`).
		WithArgs("english").
		WillReturnRows(sqlmock.NewRows([]string{"system_prompt_limit"}).AddRow(nil))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM system_prompts`).
		WithArgs("english").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO system_prompts`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	prompt := &models.SystemPrompt{SubjectID: "english", Name: "Tone", Content: "Be strict", IsActive: true}
	require.NoError(t, repo.CreateSystemWithinLimit(context.Background(), prompt, 3))
	assert.NotEmpty(t, prompt.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryCreateAtSubjectLimit(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("english").
		WillReturnRows(sqlmock.NewRows([]string{"system_prompt_limit"}).AddRow(1))
	mock.ExpectQuery(`SELECT COUNT`).WithArgs("english").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	err := repo.CreateSystemWithinLimit(context.Background(), &models.SystemPrompt{SubjectID: "english"}, 3)
	var limitErr *LimitReachedError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 1, limitErr.Limit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryCreateDeletedSubject(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("gone").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.CreateSystemWithinLimit(context.Background(), &models.SystemPrompt{SubjectID: "gone"}, 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryUpsertUploadBumpsVersion(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	now := time.Now()
	mock.ExpectQuery(`version = prompt_uploads.version \+ 1`).
		WithArgs(sqlmock.AnyArg(), "english", "T1", models.FileTypeProblem, "Check units", nil, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).AddRow("pu-1", 2, now, now))

	upload := &models.PromptUpload{SubjectID: "english", TaskID: "T1", FileType: models.FileTypeProblem, PromptText: "Check units", IsActive: true}
	require.NoError(t, repo.UpsertUpload(context.Background(), upload))
	assert.Equal(t, 2, upload.Version)
	assert.Equal(t, "pu-1", upload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryListUploadsFiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	mock.ExpectQuery(`FROM prompt_uploads WHERE subject_id = \$1 AND file_type = \$2`).
		WithArgs("english", models.FileTypeAnswer).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	uploads, err := repo.ListUploads(context.Background(), models.PromptUploadFilter{SubjectID: "english", FileType: models.FileTypeAnswer})
	require.NoError(t, err)
	assert.Empty(t, uploads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPromptRepositoryDeleteSystem(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	mock.ExpectExec(`DELETE FROM system_prompts WHERE id = \$1`).WithArgs("sp-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM system_prompts WHERE id = \$1`).WithArgs("sp-1").WillReturnResult(sqlmock.NewResult(0, 0))

	found, err := repo.DeleteSystem(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.DeleteSystem(context.Background(), "sp-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPromptRepositoryGetUploadByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPromptRepository(db)

	now := time.Now()
	cols := []string{"id", "subject_id", "task_id", "file_type", "prompt_text", "version", "uploaded_by", "is_active", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM prompt_uploads WHERE id = \$1`).
		WithArgs("pu-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("pu-1", "english", "T1", "answer", "v1", 2, "dev-1", true, now, now))
	mock.ExpectQuery(`FROM prompt_uploads WHERE id = \$1`).
		WithArgs("pu-2").
		WillReturnError(sql.ErrNoRows)

	upload, err := repo.GetUploadByID(context.Background(), "pu-1")
	require.NoError(t, err)
	assert.Equal(t, "english", upload.SubjectID)
	assert.Equal(t, models.FileTypeAnswer, upload.FileType)

	_, err = repo.GetUploadByID(context.Background(), "pu-2")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}
