package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/export"
	"github.com/noah-isme/qc-workbench-api/pkg/storage"
)

type progressExporter interface {
	ExportRows(ctx context.Context, subjectID string, examType models.ExamType, maxQuestion int) ([]models.ProgressExportRow, error)
}

type fileStorage interface {
	Save(name string, data []byte) error
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix     string
	ResultTTL     time.Duration
	QuestionCount int
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService builds progress report datasets and persists rendered files.
type ExportService struct {
	tasks    taskRepository
	progress progressExporter
	storage  fileStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(tasks taskRepository, progress progressExporter, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 4
	}
	return &ExportService{
		tasks:    tasks,
		progress: progress,
		storage:  store,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate renders the job's progress report and stores it behind a signed URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, err := export.RendererFor(export.Format(job.Params.Format))
	if err != nil {
		return nil, err
	}
	dataset, err := s.buildDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", job.Params.Format, err)
	}

	relPath := s.buildFilename(job, renderer.Extension())
	if err := s.storage.Save(relPath, payload); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("progress report generated",
		zap.String("job_id", job.ID),
		zap.String("path", relPath),
		zap.Int("rows", len(dataset.Rows)),
	)
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string) (storage.Grant, error) {
	return s.signer.Parse(token)
}

// Open returns a handle for a stored report.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored report.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes stored files older than ttl.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	return s.storage.CleanupOlderThan(ttl)
}

// buildDataset emits one row per user x task x file type. Users appear once
// they have submitted anything for the subject and exam type.
func (s *ExportService) buildDataset(ctx context.Context, params models.ExportParams) (export.Dataset, error) {
	files := models.EmptyTaskFiles()
	def, err := s.tasks.Get(ctx, params.SubjectID, params.ExamType)
	switch {
	case err == nil:
		files = def.Files
	case !errors.Is(err, sql.ErrNoRows):
		return export.Dataset{}, err
	}

	rows, err := s.progress.ExportRows(ctx, params.SubjectID, params.ExamType, s.cfg.QuestionCount)
	if err != nil {
		return export.Dataset{}, err
	}

	type user struct{ loginID, name string }
	var users []user
	seen := make(map[string]struct{})
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		if _, ok := seen[row.LoginID]; !ok {
			seen[row.LoginID] = struct{}{}
			users = append(users, user{loginID: row.LoginID, name: row.DisplayName})
		}
		counts[exportKey(row.LoginID, row.TaskID, row.FileType)] = row.CompletedCount
	}

	required := s.cfg.QuestionCount
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Progress report: %s (%s)", params.SubjectID, params.ExamType),
		Headers: []string{"User ID", "Name", "Task ID", "File Type", "Completed", "Required", "Status"},
		Rows:    [][]string{},
	}
	for _, u := range users {
		for _, file := range files {
			for _, task := range file.Tasks {
				done := counts[exportKey(u.loginID, task.TaskID, file.FileType)]
				dataset.Rows = append(dataset.Rows, []string{
					u.loginID,
					u.name,
					task.TaskID,
					string(file.FileType),
					strconv.Itoa(done),
					strconv.Itoa(required),
					string(progressStatus(done, required)),
				})
			}
		}
	}
	return dataset, nil
}

func (s *ExportService) buildFilename(job *models.ExportJob, ext string) string {
	stamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("progress/%s_%s_%s_%s.%s", job.Params.SubjectID, job.Params.ExamType, stamp, job.ID, ext)
}

func exportKey(loginID, taskID string, fileType models.FileType) string {
	return loginID + "\x00" + taskID + "\x00" + string(fileType)
}

func progressStatus(done, required int) models.ProgressStatus {
	switch {
	case done >= required:
		return models.ProgressCompleted
	case done > 0:
		return models.ProgressInProgress
	default:
		return models.ProgressNotStarted
	}
}
