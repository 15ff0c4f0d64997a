package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type progressRepository interface {
	ListForUser(ctx context.Context, userID, subjectID string, examType models.ExamType) ([]models.WorkProgress, error)
	Upsert(ctx context.Context, p *models.WorkProgress) error
}

type accessChecker interface {
	CheckAccess(ctx context.Context, userID, subjectID string) error
}

// ProgressService records and summarises per-question work.
type ProgressService struct {
	repo          progressRepository
	tasks         taskRepository
	subjects      liveSubjects
	access        accessChecker
	questionCount int
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
}

// NewProgressService constructs a ProgressService. questionCount is the
// number of question numbers required to complete a task/file type.
func NewProgressService(repo progressRepository, tasks taskRepository, subjects liveSubjects, access accessChecker, questionCount int, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if questionCount <= 0 {
		questionCount = 4
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		repo:          repo,
		tasks:         tasks,
		subjects:      subjects,
		access:        access,
		questionCount: questionCount,
		validator:     validate,
		logger:        logger,
	}
}

// WithMetrics makes Submit count recorded submissions.
func (s *ProgressService) WithMetrics(m *MetricsService) *ProgressService {
	s.metrics = m
	return s
}

// QuestionCount reports the configured completion threshold.
func (s *ProgressService) QuestionCount() int {
	return s.questionCount
}

// List returns the caller's rows for a subject and exam type.
func (s *ProgressService) List(ctx context.Context, userID, subjectID, rawExamType string) ([]models.WorkProgress, error) {
	examType, err := s.authorize(ctx, userID, subjectID, rawExamType)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListForUser(ctx, userID, subjectID, examType)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load progress")
	}
	return rows, nil
}

// Submit stores one question's content and marks it done.
func (s *ProgressService) Submit(ctx context.Context, userID string, req dto.SubmitProgressRequest) (*models.WorkProgress, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.TaskID = strings.TrimSpace(req.TaskID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid progress payload")
	}
	if req.QuestionNumber > s.questionCount {
		return nil, appErrors.Validation("questionNumber", fmt.Sprintf("questionNumber must be at most %d", s.questionCount))
	}
	examType, err := s.authorize(ctx, userID, req.SubjectID, req.ExamType)
	if err != nil {
		return nil, err
	}

	progress := &models.WorkProgress{
		UserID:         userID,
		SubjectID:      req.SubjectID,
		ExamType:       examType,
		TaskID:         req.TaskID,
		FileType:       models.FileType(req.FileType),
		QuestionNumber: req.QuestionNumber,
		ReferenceData:  req.ReferenceData,
		AIOutput:       req.AIOutput,
		Completed:      true,
	}
	if err := s.repo.Upsert(ctx, progress); err != nil {
		return nil, appErrors.Internal(err, "failed to save progress")
	}
	s.metrics.RecordWorkSubmission(string(examType), string(progress.FileType))
	return progress, nil
}

// Summary derives per task/file type completion over the subject's checklist.
func (s *ProgressService) Summary(ctx context.Context, userID, subjectID, rawExamType string) (*models.ProgressSummary, error) {
	examType, err := s.authorize(ctx, userID, subjectID, rawExamType)
	if err != nil {
		return nil, err
	}

	files := models.EmptyTaskFiles()
	def, err := s.tasks.Get(ctx, subjectID, examType)
	switch {
	case err == nil:
		files = def.Files
	case !errors.Is(err, sql.ErrNoRows):
		return nil, appErrors.Internal(err, "failed to load task definition")
	}

	rows, err := s.repo.ListForUser(ctx, userID, subjectID, examType)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load progress")
	}

	summary := SummarizeProgress(files, rows, s.questionCount)
	summary.SubjectID = subjectID
	summary.ExamType = examType
	return &summary, nil
}

func (s *ProgressService) authorize(ctx context.Context, userID, subjectID, rawExamType string) (models.ExamType, error) {
	examType, err := parseExamType(rawExamType)
	if err != nil {
		return "", err
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return "", err
	}
	if err := s.access.CheckAccess(ctx, userID, subjectID); err != nil {
		return "", err
	}
	return examType, nil
}

type progressKey struct {
	taskID   string
	fileType models.FileType
}

// SummarizeProgress builds one cell per task and file type of files. A cell
// is complete once question numbers 1..required are all present.
func SummarizeProgress(files models.TaskFiles, rows []models.WorkProgress, required int) models.ProgressSummary {
	done := make(map[progressKey]map[int]struct{})
	for _, row := range rows {
		if !row.Completed || row.QuestionNumber < 1 || row.QuestionNumber > required {
			continue
		}
		key := progressKey{taskID: row.TaskID, fileType: row.FileType}
		if done[key] == nil {
			done[key] = make(map[int]struct{})
		}
		done[key][row.QuestionNumber] = struct{}{}
	}

	summary := models.ProgressSummary{Required: required, Cells: []models.ProgressCell{}}
	for _, file := range files {
		for _, task := range file.Tasks {
			numbers := make([]int, 0, required)
			for n := range done[progressKey{taskID: task.TaskID, fileType: file.FileType}] {
				numbers = append(numbers, n)
			}
			sort.Ints(numbers)

			cell := models.ProgressCell{
				TaskID:          task.TaskID,
				FileType:        file.FileType,
				CompletedCount:  len(numbers),
				Required:        required,
				QuestionNumbers: numbers,
			}
			cell.Status = progressStatus(cell.CompletedCount, required)
			switch cell.Status {
			case models.ProgressCompleted:
				summary.Totals.Completed++
			case models.ProgressInProgress:
				summary.Totals.InProgress++
			default:
				summary.Totals.NotStarted++
			}
			summary.Cells = append(summary.Cells, cell)
		}
	}

	summary.Totals.Total = len(summary.Cells)
	if summary.Totals.Total > 0 {
		summary.Totals.Percent = summary.Totals.Completed * 100 / summary.Totals.Total
	}
	return summary
}
