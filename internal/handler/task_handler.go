package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type taskService interface {
	Get(ctx context.Context, subjectID, rawExamType string) (*dto.TaskDefinitionResponse, error)
	Upsert(ctx context.Context, actorID, subjectID, rawExamType string, req dto.UpsertTaskDefinitionRequest) (*dto.TaskDefinitionResponse, error)
}

// TaskHandler serves checklist definitions.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler constructs a task handler.
func NewTaskHandler(svc taskService) *TaskHandler {
	return &TaskHandler{service: svc}
}

// Get godoc
// @Summary Get task definition
// @Tags Tasks
// @Produce json
// @Param subjectId path string true "Subject id"
// @Param examType query string false "mock or past"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{subjectId} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	def, err := h.service.Get(c.Request.Context(), c.Param("subjectId"), c.Query("examType"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, def)
}

// Upsert godoc
// @Summary Replace task definition
// @Tags Tasks
// @Accept json
// @Produce json
// @Param subjectId path string true "Subject id"
// @Param examType query string false "mock or past"
// @Param payload body dto.UpsertTaskDefinitionRequest true "Task files"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /tasks/{subjectId} [put]
func (h *TaskHandler) Upsert(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpsertTaskDefinitionRequest
	if !bindJSON(c, &req, "invalid task definition payload") {
		return
	}
	def, err := h.service.Upsert(c.Request.Context(), claims.UserID, c.Param("subjectId"), c.Query("examType"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, def)
}
