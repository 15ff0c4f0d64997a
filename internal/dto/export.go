package dto

import "github.com/noah-isme/qc-workbench-api/internal/models"

// ExportRequest captures POST /admin/exports payload.
type ExportRequest struct {
	SubjectID string `json:"subjectId" validate:"required"`
	ExamType  string `json:"examType" validate:"omitempty,oneof=mock past"`
	Format    string `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
