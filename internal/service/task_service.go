package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

const maxTaskIDLength = 64

type taskRepository interface {
	Get(ctx context.Context, subjectID string, examType models.ExamType) (*models.TaskDefinition, error)
	Upsert(ctx context.Context, def *models.TaskDefinition) error
}

type liveSubjects interface {
	RequireLive(ctx context.Context, subjectID string) (*models.Subject, error)
}

// TaskService manages per-subject checklists.
type TaskService struct {
	repo      taskRepository
	subjects  liveSubjects
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTaskService constructs a TaskService.
func NewTaskService(repo taskRepository, subjects liveSubjects, validate *validator.Validate, logger *zap.Logger) *TaskService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{repo: repo, subjects: subjects, validator: validate, logger: logger}
}

// Get returns the checklist for a live subject. A subject without a stored
// definition gets all four file types with empty task lists.
func (s *TaskService) Get(ctx context.Context, subjectID, rawExamType string) (*dto.TaskDefinitionResponse, error) {
	examType, err := parseExamType(rawExamType)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return nil, err
	}

	def, err := s.repo.Get(ctx, subjectID, examType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &dto.TaskDefinitionResponse{SubjectID: subjectID, ExamType: examType, Files: models.EmptyTaskFiles()}, nil
		}
		return nil, appErrors.Internal(err, "failed to load task definition")
	}
	updatedAt := def.UpdatedAt
	return &dto.TaskDefinitionResponse{SubjectID: def.SubjectID, ExamType: def.ExamType, Files: def.Files, UpdatedAt: &updatedAt}, nil
}

// Upsert replaces the checklist for (subject, exam type).
func (s *TaskService) Upsert(ctx context.Context, actorID, subjectID, rawExamType string, req dto.UpsertTaskDefinitionRequest) (*dto.TaskDefinitionResponse, error) {
	examType, err := parseExamType(rawExamType)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid task definition payload")
	}
	files, err := NormalizeTaskFiles(req.Files)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return nil, err
	}

	def := &models.TaskDefinition{SubjectID: subjectID, ExamType: examType, Files: files}
	if actorID != "" {
		def.UpdatedBy = &actorID
	}
	if err := s.repo.Upsert(ctx, def); err != nil {
		return nil, appErrors.Internal(err, "failed to save task definition")
	}
	s.logger.Info("task definition saved",
		zap.String("subject_id", subjectID),
		zap.String("exam_type", string(examType)),
		zap.Int("tasks", len(files.TaskIDs())))

	updatedAt := def.UpdatedAt
	return &dto.TaskDefinitionResponse{SubjectID: subjectID, ExamType: examType, Files: files, UpdatedAt: &updatedAt}, nil
}

// NormalizeTaskFiles trims task ids and checks that file types are known and
// unique, that task ids are present and unique within a file, and that every
// file lists the same task ids in the same order.
func NormalizeTaskFiles(in []models.TaskFile) (models.TaskFiles, error) {
	files := make(models.TaskFiles, 0, len(in))
	seenTypes := make(map[models.FileType]struct{}, len(in))
	var reference []string

	for i, file := range in {
		field := fmt.Sprintf("files[%d]", i)
		if !file.FileType.Valid() {
			return nil, appErrors.Validation(field+".fileType", "fileType must be one of: problem, answer, explanation, scoring")
		}
		if _, dup := seenTypes[file.FileType]; dup {
			return nil, appErrors.Validation(field+".fileType", fmt.Sprintf("fileType %s appears more than once", file.FileType))
		}
		seenTypes[file.FileType] = struct{}{}

		rows := make([]models.TaskRow, 0, len(file.Tasks))
		ids := make([]string, 0, len(file.Tasks))
		seenIDs := make(map[string]struct{}, len(file.Tasks))
		for j, row := range file.Tasks {
			rowField := fmt.Sprintf("%s.tasks[%d].taskId", field, j)
			row.TaskID = strings.TrimSpace(row.TaskID)
			if row.TaskID == "" {
				return nil, appErrors.Validation(rowField, "taskId is required")
			}
			if len(row.TaskID) > maxTaskIDLength {
				return nil, appErrors.Validation(rowField, fmt.Sprintf("taskId must be at most %d characters", maxTaskIDLength))
			}
			if _, dup := seenIDs[row.TaskID]; dup {
				return nil, appErrors.Validation(rowField, fmt.Sprintf("taskId %s appears more than once in %s", row.TaskID, file.FileType))
			}
			seenIDs[row.TaskID] = struct{}{}
			rows = append(rows, row)
			ids = append(ids, row.TaskID)
		}

		if i == 0 {
			reference = ids
		} else if !equalStrings(reference, ids) {
			return nil, appErrors.Validation(field+".tasks", fmt.Sprintf("%s must list the same task ids in the same order as %s", file.FileType, in[0].FileType))
		}
		files = append(files, models.TaskFile{FileType: file.FileType, Tasks: rows})
	}
	return files, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
