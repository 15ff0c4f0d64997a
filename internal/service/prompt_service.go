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
	"github.com/noah-isme/qc-workbench-api/internal/repository"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type promptRepository interface {
	ListSystem(ctx context.Context, subjectID string, activeOnly bool) ([]models.SystemPrompt, error)
	GetSystem(ctx context.Context, id string) (*models.SystemPrompt, error)
	CreateSystemWithinLimit(ctx context.Context, prompt *models.SystemPrompt, defaultLimit int) error
	UpdateSystem(ctx context.Context, prompt *models.SystemPrompt) error
	DeleteSystem(ctx context.Context, id string) (bool, error)
	ListUploads(ctx context.Context, filter models.PromptUploadFilter) ([]models.PromptUpload, error)
	GetUpload(ctx context.Context, subjectID, taskID string, fileType models.FileType) (*models.PromptUpload, error)
	GetUploadByID(ctx context.Context, id string) (*models.PromptUpload, error)
	UpsertUpload(ctx context.Context, upload *models.PromptUpload) error
	DeleteUpload(ctx context.Context, id string) (bool, error)
}

// PromptService manages system prompts and per-coordinate prompt uploads.
type PromptService struct {
	repo         promptRepository
	subjects     liveSubjects
	defaultLimit int
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPromptService constructs a PromptService. defaultLimit caps system
// prompts for subjects without their own limit.
func NewPromptService(repo promptRepository, subjects liveSubjects, defaultLimit int, validate *validator.Validate, logger *zap.Logger) *PromptService {
	if defaultLimit <= 0 {
		defaultLimit = 3
	}
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptService{repo: repo, subjects: subjects, defaultLimit: defaultLimit, validator: validate, logger: logger}
}

// ListSystem returns every prompt of a live subject.
func (s *PromptService) ListSystem(ctx context.Context, subjectID string) ([]models.SystemPrompt, error) {
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return nil, err
	}
	prompts, err := s.repo.ListSystem(ctx, strings.TrimSpace(subjectID), false)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list system prompts")
	}
	return prompts, nil
}

// CreateSystem adds a prompt unless the subject is at its cap.
func (s *PromptService) CreateSystem(ctx context.Context, actorID string, req dto.CreateSystemPromptRequest) (*models.SystemPrompt, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid system prompt payload")
	}
	if _, err := s.subjects.RequireLive(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	prompt := &models.SystemPrompt{
		SubjectID: req.SubjectID,
		Name:      req.Name,
		Content:   req.Content,
		TaskIDs:   cleanTaskIDs(req.TaskIDs),
		Priority:  req.Priority,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}
	if actorID != "" {
		prompt.CreatedBy = &actorID
	}

	if err := s.repo.CreateSystemWithinLimit(ctx, prompt, s.defaultLimit); err != nil {
		var limitErr *repository.LimitReachedError
		switch {
		case errors.As(err, &limitErr):
			return nil, appErrors.Clone(appErrors.ErrLimitExceeded, fmt.Sprintf("system prompt limit reached (%d)", limitErr.Limit))
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to create system prompt")
	}
	s.logger.Info("system prompt created", zap.String("subject_id", prompt.SubjectID), zap.String("prompt_id", prompt.ID))
	return prompt, nil
}

// UpdateSystem patches the fields present in req.
func (s *PromptService) UpdateSystem(ctx context.Context, id string, req dto.UpdateSystemPromptRequest) (*models.SystemPrompt, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid system prompt payload")
	}
	prompt, err := s.liveSystemPrompt(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		prompt.Name = strings.TrimSpace(*req.Name)
	}
	if req.Content != nil {
		prompt.Content = *req.Content
	}
	if req.TaskIDs != nil {
		prompt.TaskIDs = cleanTaskIDs(*req.TaskIDs)
	}
	if req.Priority != nil {
		prompt.Priority = *req.Priority
	}
	if req.IsActive != nil {
		prompt.IsActive = *req.IsActive
	}
	if prompt.Name == "" {
		return nil, appErrors.Validation("name", "name is required")
	}

	if err := s.repo.UpdateSystem(ctx, prompt); err != nil {
		return nil, appErrors.Internal(err, "failed to update system prompt")
	}
	return prompt, nil
}

// DeleteSystem removes a system prompt.
func (s *PromptService) DeleteSystem(ctx context.Context, id string) error {
	if _, err := s.liveSystemPrompt(ctx, id); err != nil {
		return err
	}
	found, err := s.repo.DeleteSystem(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete system prompt")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "system prompt not found")
	}
	return nil
}

func (s *PromptService) liveSystemPrompt(ctx context.Context, id string) (*models.SystemPrompt, error) {
	prompt, err := s.repo.GetSystem(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "system prompt not found")
		}
		return nil, appErrors.Internal(err, "failed to load system prompt")
	}
	if _, err := s.subjects.RequireLive(ctx, prompt.SubjectID); err != nil {
		return nil, err
	}
	return prompt, nil
}

// ListUploads lists a live subject's uploads, optionally narrowed by task and
// file type.
func (s *PromptService) ListUploads(ctx context.Context, subjectID, taskID, rawFileType string) ([]models.PromptUpload, error) {
	fileType, err := parseOptionalFileType(rawFileType)
	if err != nil {
		return nil, err
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return nil, err
	}
	uploads, err := s.repo.ListUploads(ctx, models.PromptUploadFilter{
		SubjectID: strings.TrimSpace(subjectID),
		TaskID:    strings.TrimSpace(taskID),
		FileType:  fileType,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list prompt uploads")
	}
	return uploads, nil
}

// CurrentUpload returns the upload at one coordinate.
func (s *PromptService) CurrentUpload(ctx context.Context, subjectID, taskID, rawFileType string) (*models.PromptUpload, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, appErrors.Validation("taskId", "taskId is required")
	}
	fileType, err := parseOptionalFileType(rawFileType)
	if err != nil {
		return nil, err
	}
	if fileType == "" {
		return nil, appErrors.Validation("fileType", "fileType is required")
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		return nil, err
	}

	upload, err := s.repo.GetUpload(ctx, strings.TrimSpace(subjectID), taskID, fileType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prompt upload not found")
		}
		return nil, appErrors.Internal(err, "failed to load prompt upload")
	}
	return upload, nil
}

// UpsertUpload replaces the prompt at its coordinate and bumps the version.
func (s *PromptService) UpsertUpload(ctx context.Context, actorID string, req dto.UpsertPromptUploadRequest) (*models.PromptUpload, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	req.TaskID = strings.TrimSpace(req.TaskID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid prompt upload payload")
	}
	if _, err := s.subjects.RequireLive(ctx, req.SubjectID); err != nil {
		return nil, err
	}

	upload := &models.PromptUpload{
		SubjectID:  req.SubjectID,
		TaskID:     req.TaskID,
		FileType:   models.FileType(req.FileType),
		PromptText: req.PromptText,
		IsActive:   req.IsActive == nil || *req.IsActive,
	}
	if actorID != "" {
		upload.UploadedBy = &actorID
	}
	if err := s.repo.UpsertUpload(ctx, upload); err != nil {
		return nil, appErrors.Internal(err, "failed to save prompt upload")
	}
	return upload, nil
}

// DeleteUpload removes an upload by id. Uploads of deleted subjects are
// reported as missing.
func (s *PromptService) DeleteUpload(ctx context.Context, id string) error {
	upload, err := s.repo.GetUploadByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "prompt upload not found")
		}
		return appErrors.Internal(err, "failed to load prompt upload")
	}
	if _, err := s.subjects.RequireLive(ctx, upload.SubjectID); err != nil {
		return err
	}
	found, err := s.repo.DeleteUpload(ctx, id)
	if err != nil {
		return appErrors.Internal(err, "failed to delete prompt upload")
	}
	if !found {
		return appErrors.Clone(appErrors.ErrNotFound, "prompt upload not found")
	}
	return nil
}

// ResolveSystemPrompt picks the instruction for a chat call: the active upload
// at (subject, task, file type), else the subject's active system prompts that
// apply to the task joined by priority. An empty result means no stored prompt
// applies, including when the subject is unknown or deleted.
func (s *PromptService) ResolveSystemPrompt(ctx context.Context, subjectID, taskID string, fileType models.FileType) (string, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return "", nil
	}
	if _, err := s.subjects.RequireLive(ctx, subjectID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return "", nil
		}
		return "", err
	}

	taskID = strings.TrimSpace(taskID)
	if taskID != "" && fileType != "" {
		upload, err := s.repo.GetUpload(ctx, subjectID, taskID, fileType)
		switch {
		case err == nil && upload.IsActive && strings.TrimSpace(upload.PromptText) != "":
			return upload.PromptText, nil
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return "", appErrors.Internal(err, "failed to load prompt upload")
		}
	}

	prompts, err := s.repo.ListSystem(ctx, subjectID, true)
	if err != nil {
		return "", appErrors.Internal(err, "failed to list system prompts")
	}
	parts := make([]string, 0, len(prompts))
	for i := range prompts {
		if prompts[i].AppliesTo(taskID) && strings.TrimSpace(prompts[i].Content) != "" {
			parts = append(parts, prompts[i].Content)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func parseOptionalFileType(raw string) (models.FileType, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	ft := models.FileType(strings.ToLower(raw))
	if !ft.Valid() {
		return "", appErrors.Validation("fileType", "fileType must be one of: problem, answer, explanation, scoring")
	}
	return ft, nil
}

func cleanTaskIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
