package dto

import (
	"time"

	"github.com/noah-isme/qc-workbench-api/internal/models"
)

// UpsertTaskDefinitionRequest replaces the checklist for a subject/exam type.
type UpsertTaskDefinitionRequest struct {
	Files []models.TaskFile `json:"files" validate:"required,min=1"`
}

// TaskDefinitionResponse is the GET/PUT /tasks/:subjectId body.
type TaskDefinitionResponse struct {
	SubjectID string           `json:"subjectId"`
	ExamType  models.ExamType  `json:"examType"`
	Files     models.TaskFiles `json:"files"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
}
