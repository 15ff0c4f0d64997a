package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type promptService interface {
	ListSystem(ctx context.Context, subjectID string) ([]models.SystemPrompt, error)
	CreateSystem(ctx context.Context, actorID string, req dto.CreateSystemPromptRequest) (*models.SystemPrompt, error)
	UpdateSystem(ctx context.Context, id string, req dto.UpdateSystemPromptRequest) (*models.SystemPrompt, error)
	DeleteSystem(ctx context.Context, id string) error
	ListUploads(ctx context.Context, subjectID, taskID, rawFileType string) ([]models.PromptUpload, error)
	CurrentUpload(ctx context.Context, subjectID, taskID, rawFileType string) (*models.PromptUpload, error)
	UpsertUpload(ctx context.Context, actorID string, req dto.UpsertPromptUploadRequest) (*models.PromptUpload, error)
	DeleteUpload(ctx context.Context, id string) error
}

// PromptHandler manages system prompts and prompt uploads.
type PromptHandler struct {
	service promptService
}

// NewPromptHandler constructs a prompt handler.
func NewPromptHandler(svc promptService) *PromptHandler {
	return &PromptHandler{service: svc}
}

// ListSystem godoc
// @Summary List system prompts of a subject
// @Tags Prompts
// @Produce json
// @Param subjectId query string true "Subject id"
// @Success 200 {object} response.Envelope
// @Router /prompts/system [get]
func (h *PromptHandler) ListSystem(c *gin.Context) {
	subjectID := c.Query("subjectId")
	if subjectID == "" {
		response.Error(c, appErrors.Validation("subjectId", "subjectId is required"))
		return
	}
	prompts, err := h.service.ListSystem(c.Request.Context(), subjectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prompts)
}

// CreateSystem godoc
// @Summary Create system prompt
// @Tags Prompts
// @Accept json
// @Produce json
// @Param payload body dto.CreateSystemPromptRequest true "Prompt payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /prompts/system [post]
func (h *PromptHandler) CreateSystem(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateSystemPromptRequest
	if !bindJSON(c, &req, "invalid system prompt payload") {
		return
	}
	prompt, err := h.service.CreateSystem(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prompt)
}

// UpdateSystem godoc
// @Summary Update system prompt
// @Tags Prompts
// @Accept json
// @Produce json
// @Param id path string true "Prompt id"
// @Param payload body dto.UpdateSystemPromptRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /prompts/system/{id} [put]
func (h *PromptHandler) UpdateSystem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	var req dto.UpdateSystemPromptRequest
	if !bindJSON(c, &req, "invalid system prompt payload") {
		return
	}
	prompt, err := h.service.UpdateSystem(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, prompt)
}

// DeleteSystem godoc
// @Summary Delete system prompt
// @Tags Prompts
// @Param id path string true "Prompt id"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /prompts/system/{id} [delete]
func (h *PromptHandler) DeleteSystem(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.service.DeleteSystem(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListUploads godoc
// @Summary List prompt uploads
// @Tags Prompts
// @Produce json
// @Param subjectId query string true "Subject id"
// @Param taskId query string false "Task id"
// @Param fileType query string false "File type"
// @Success 200 {object} response.Envelope
// @Router /prompts/uploads [get]
func (h *PromptHandler) ListUploads(c *gin.Context) {
	subjectID := c.Query("subjectId")
	if subjectID == "" {
		response.Error(c, appErrors.Validation("subjectId", "subjectId is required"))
		return
	}
	uploads, err := h.service.ListUploads(c.Request.Context(), subjectID, c.Query("taskId"), c.Query("fileType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, uploads)
}

// CurrentUpload godoc
// @Summary Get the prompt upload at one coordinate
// @Tags Prompts
// @Produce json
// @Param subjectId query string true "Subject id"
// @Param taskId query string true "Task id"
// @Param fileType query string true "File type"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /prompts/uploads/current [get]
func (h *PromptHandler) CurrentUpload(c *gin.Context) {
	upload, err := h.service.CurrentUpload(c.Request.Context(), c.Query("subjectId"), c.Query("taskId"), c.Query("fileType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, upload)
}

// UpsertUpload godoc
// @Summary Replace a prompt upload
// @Tags Prompts
// @Accept json
// @Produce json
// @Param payload body dto.UpsertPromptUploadRequest true "Upload payload"
// @Success 200 {object} response.Envelope
// @Router /prompts/uploads [put]
func (h *PromptHandler) UpsertUpload(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpsertPromptUploadRequest
	if !bindJSON(c, &req, "invalid prompt upload payload") {
		return
	}
	upload, err := h.service.UpsertUpload(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, upload)
}

// DeleteUpload godoc
// @Summary Delete a prompt upload
// @Tags Prompts
// @Param id path string true "Upload id"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /prompts/uploads/{id} [delete]
func (h *PromptHandler) DeleteUpload(c *gin.Context) {
	id, valid := pathID(c)
	if !valid {
		return
	}
	if err := h.service.DeleteUpload(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
