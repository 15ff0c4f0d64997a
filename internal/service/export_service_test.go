package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/storage"
)

type progressExporterStub struct {
	rows []models.ProgressExportRow
	max  int
}

func (p *progressExporterStub) ExportRows(ctx context.Context, subjectID string, examType models.ExamType, maxQuestion int) ([]models.ProgressExportRow, error) {
	p.max = maxQuestion
	return p.rows, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage, *progressExporterStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	tasks := newFakeTaskRepo()
	require.NoError(t, tasks.Upsert(context.Background(), &models.TaskDefinition{
		SubjectID: "english",
		ExamType:  models.ExamTypeMock,
		Files: models.TaskFiles{
			{FileType: models.FileTypeProblem, Tasks: rows("T1", "T2")},
			{FileType: models.FileTypeAnswer, Tasks: rows("T1", "T2")},
		},
	}))
	progress := &progressExporterStub{rows: []models.ProgressExportRow{
		{LoginID: "alice", DisplayName: "Alice", TaskID: "T1", FileType: models.FileTypeProblem, CompletedCount: 4},
		{LoginID: "alice", DisplayName: "Alice", TaskID: "T2", FileType: models.FileTypeAnswer, CompletedCount: 2},
		{LoginID: "bob", DisplayName: "Bob", TaskID: "T1", FileType: models.FileTypeAnswer, CompletedCount: 1},
	}}
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour, QuestionCount: 4}
	return NewExportService(tasks, progress, store, signer, cfg, zap.NewNop()), store, progress
}

func exportJob(id string, format models.ExportFormat) *models.ExportJob {
	return &models.ExportJob{
		ID:        id,
		Params:    models.ExportParams{SubjectID: "english", ExamType: models.ExamTypeMock, Format: format},
		Status:    models.ExportStatusQueued,
		CreatedBy: "admin",
	}
}

func TestExportServiceGenerateCSV(t *testing.T) {
	svc, store, progress := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJob("job-1", models.ExportFormatCSV))
	require.NoError(t, err)
	assert.Equal(t, 4, progress.max)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".csv"))

	file, err := store.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	raw, err := io.ReadAll(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1+2*4)
	assert.Contains(t, lines[0], "User ID")
	assert.Contains(t, string(raw), "alice,Alice,T1,problem,4,4,completed")
	assert.Contains(t, string(raw), "alice,Alice,T2,answer,2,4,in_progress")
	assert.Contains(t, string(raw), "bob,Bob,T2,problem,0,4,not_started")

	grant, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, "job-1", grant.JobID)
	assert.Equal(t, result.RelativePath, grant.Path)
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc, store, _ := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), exportJob("job-2", models.ExportFormatPDF))
	require.NoError(t, err)

	file, err := store.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(file, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), exportJob("job-3", "xlsx"))
	assert.Error(t, err)
}
