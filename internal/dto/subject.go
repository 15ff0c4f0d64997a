package dto

import "github.com/noah-isme/qc-workbench-api/internal/models"

// CreateSubjectRequest is the POST /subjects payload.
type CreateSubjectRequest struct {
	SubjectName       string `json:"subjectName" validate:"required,max=100"`
	ExamType          string `json:"examType" validate:"omitempty,oneof=mock past"`
	SystemPromptLimit *int   `json:"systemPromptLimit" validate:"omitempty,min=1,max=50"`
}

// SubjectActionResponse reports the outcome of a lifecycle transition.
type SubjectActionResponse struct {
	Message string          `json:"message"`
	Action  string          `json:"action"`
	Subject *models.Subject `json:"subject,omitempty"`
}
