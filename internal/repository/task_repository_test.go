package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

func TestTaskRepositoryGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	files := `[{"fileType":"problem","tasks":[{"taskId":"T1","remark":"","description":"Check wording"}]}]`
	mock.ExpectQuery(`FROM task_definitions WHERE subject_id = \$1 AND exam_type = \$2`).
		WithArgs("english", models.ExamTypeMock).
		WillReturnRows(sqlmock.NewRows([]string{"id", "subject_id", "exam_type", "files", "updated_by", "created_at", "updated_at"}).
			AddRow("td-1", "english", "mock", files, nil, now, now))

	def, err := repo.Get(context.Background(), "english", models.ExamTypeMock)
	require.NoError(t, err)
	require.Len(t, def.Files, 1)
	assert.Equal(t, []string{"T1"}, def.Files.TaskIDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	mock.ExpectQuery(`FROM task_definitions`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "english", models.ExamTypePast)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTaskRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	mock.ExpectQuery(`ON CONFLICT \(subject_id, exam_type\)`).
		WithArgs(sqlmock.AnyArg(), "english", models.ExamTypeMock, sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("td-existing", now.Add(-time.Hour), now))

	def := &models.TaskDefinition{SubjectID: "english", ExamType: models.ExamTypeMock, Files: models.EmptyTaskFiles()}
	require.NoError(t, repo.Upsert(context.Background(), def))
	assert.Equal(t, "td-existing", def.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
