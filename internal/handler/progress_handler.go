package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type progressService interface {
	List(ctx context.Context, userID, subjectID, rawExamType string) ([]models.WorkProgress, error)
	Submit(ctx context.Context, userID string, req dto.SubmitProgressRequest) (*models.WorkProgress, error)
	Summary(ctx context.Context, userID, subjectID, rawExamType string) (*models.ProgressSummary, error)
}

// ProgressHandler records and reports the caller's work.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs a progress handler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// List godoc
// @Summary List my progress
// @Tags Work
// @Produce json
// @Param subjectId query string true "Subject id"
// @Param examType query string false "mock or past"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /work/progress [get]
func (h *ProgressHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	rows, err := h.service.List(c.Request.Context(), claims.UserID, c.Query("subjectId"), c.Query("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ProgressListResponse{Progress: rows})
}

// Submit godoc
// @Summary Submit one question
// @Tags Work
// @Accept json
// @Produce json
// @Param payload body dto.SubmitProgressRequest true "Progress payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /work/progress [post]
func (h *ProgressHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SubmitProgressRequest
	if !bindJSON(c, &req, "invalid progress payload") {
		return
	}
	row, err := h.service.Submit(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, row)
}

// Summary godoc
// @Summary Progress summary
// @Description Completion per task and file type over the subject's checklist
// @Tags Work
// @Produce json
// @Param subjectId query string true "Subject id"
// @Param examType query string false "mock or past"
// @Success 200 {object} response.Envelope
// @Router /work/progress/summary [get]
func (h *ProgressHandler) Summary(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), claims.UserID, c.Query("subjectId"), c.Query("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
