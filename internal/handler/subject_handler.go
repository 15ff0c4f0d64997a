package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/middleware"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type subjectService interface {
	ListLiveCached(ctx context.Context) ([]models.Subject, bool, error)
	ListDeleted(ctx context.Context) ([]models.Subject, error)
	RequireLive(ctx context.Context, subjectID string) (*models.Subject, error)
	Create(ctx context.Context, actorID string, req dto.CreateSubjectRequest, meta dto.RequestMeta) (*models.Subject, error)
	ApplyAction(ctx context.Context, actorID, subjectID, action string, meta dto.RequestMeta) (*dto.SubjectActionResponse, error)
}

// SubjectHandler exposes the subject catalog.
type SubjectHandler struct {
	service subjectService
}

// NewSubjectHandler constructs a subject handler.
func NewSubjectHandler(svc subjectService) *SubjectHandler {
	return &SubjectHandler{service: svc}
}

// List godoc
// @Summary List live subjects
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *SubjectHandler) List(c *gin.Context) {
	subjects, hit, err := h.service.ListLiveCached(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	ok(c, subjects)
}

// ListDeleted godoc
// @Summary List soft-deleted subjects
// @Tags Subjects
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /subjects/deleted [get]
func (h *SubjectHandler) ListDeleted(c *gin.Context) {
	subjects, err := h.service.ListDeleted(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, subjects)
}

// Get godoc
// @Summary Get a live subject
// @Tags Subjects
// @Produce json
// @Param subjectId path string true "Subject id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /subjects/{subjectId} [get]
func (h *SubjectHandler) Get(c *gin.Context) {
	subject, err := h.service.RequireLive(c.Request.Context(), c.Param("subjectId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ok(c, subject)
}

// Create godoc
// @Summary Create subject
// @Description The subject id is derived from the name
// @Tags Subjects
// @Accept json
// @Produce json
// @Param payload body dto.CreateSubjectRequest true "Subject payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateSubjectRequest
	if !bindJSON(c, &req, "invalid subject payload") {
		return
	}
	subject, err := h.service.Create(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, subject)
}

// Delete godoc
// @Summary Soft delete, restore or hard delete a subject
// @Tags Subjects
// @Produce json
// @Param subjectId query string true "Subject id"
// @Param action query string true "soft_delete, restore or hard_delete"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /subjects [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	res, err := h.service.ApplyAction(c.Request.Context(), claims.UserID, c.Query("subjectId"), c.Query("action"), requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
