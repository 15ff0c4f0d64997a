package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

const (
	citationPrompt = `You are a meticulous reviewer of Japanese university entrance mock exams.
Check every citation in the text: author, title, publisher and year must be accurate and consistently formatted.
List each problem with its location and a suggested correction. Answer "No issues found." when everything is correct.`

	factCheckPrompt = `You are a fact checker for Japanese university entrance mock exams.
Verify every factual statement, date, name and figure in the text.
For each doubtful statement give the location, the reason and the corrected fact. Answer "No issues found." when everything is correct.`

	defaultChatPrompt = `You are an assistant helping quality checkers review mock exam documents (problems, answers, explanations and scoring criteria).
Point out errors, ambiguities and inconsistencies concisely.`
)

type completer interface {
	Complete(ctx context.Context, systemPrompt, message string) (string, error)
	Mocked() bool
}

type systemPromptResolver interface {
	ResolveSystemPrompt(ctx context.Context, subjectID, taskID string, fileType models.FileType) (string, error)
}

// ChatService forwards review requests to the LLM with the most specific
// stored prompt.
type ChatService struct {
	llm       completer
	prompts   systemPromptResolver
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs a ChatService. prompts and metrics may be nil.
func NewChatService(llm completer, prompts systemPromptResolver, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{llm: llm, prompts: prompts, metrics: metrics, validator: validate, logger: logger}
}

// Chat sends req.Message to the LLM. Upstream failures surface as
// UPSTREAM_ERROR.
func (s *ChatService) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, appErrors.Validation("message", "message is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid chat payload")
	}

	systemPrompt, err := s.systemPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	reply, err := s.llm.Complete(ctx, systemPrompt, req.Message)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveLLMCall("error", elapsed)
		s.logger.Error("llm completion failed", zap.Error(err), zap.String("task_type", req.TaskType), zap.Duration("elapsed", elapsed))
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to get a response from the language model")
	}

	outcome := "ok"
	if s.llm.Mocked() {
		outcome = "mock"
	}
	s.metrics.ObserveLLMCall(outcome, elapsed)
	return &dto.ChatResponse{Response: reply}, nil
}

func (s *ChatService) systemPrompt(ctx context.Context, req dto.ChatRequest) (string, error) {
	if s.prompts != nil && strings.TrimSpace(req.SubjectID) != "" {
		stored, err := s.prompts.ResolveSystemPrompt(ctx, req.SubjectID, req.TaskID, models.FileType(strings.ToLower(req.FileType)))
		if err != nil {
			return "", err
		}
		if stored != "" {
			return stored, nil
		}
	}
	return BuiltinPrompt(req.TaskType), nil
}

// BuiltinPrompt returns the fallback instruction for a task type.
func BuiltinPrompt(taskType string) string {
	switch strings.ToLower(strings.TrimSpace(taskType)) {
	case "citation":
		return citationPrompt
	case "fact_check":
		return factCheckPrompt
	default:
		return defaultChatPrompt
	}
}
