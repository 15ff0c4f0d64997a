package dto

import "github.com/noah-isme/qc-workbench-api/internal/models"

// SubmitProgressRequest records one question for a task/file type.
type SubmitProgressRequest struct {
	SubjectID      string `json:"subjectId" validate:"required"`
	ExamType       string `json:"examType" validate:"omitempty,oneof=mock past"`
	TaskID         string `json:"taskId" validate:"required,max=64"`
	FileType       string `json:"fileType" validate:"required,oneof=problem answer explanation scoring"`
	QuestionNumber int    `json:"questionNumber" validate:"required,min=1"`
	ReferenceData  string `json:"referenceData"`
	AIOutput       string `json:"aiOutput"`
}

// ProgressListResponse wraps the caller's progress rows.
type ProgressListResponse struct {
	Progress []models.WorkProgress `json:"progress"`
}
