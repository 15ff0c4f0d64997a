package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type userService interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error)
	UpdateRole(ctx context.Context, actor *models.SessionClaims, req dto.UpdateUserRoleRequest, meta dto.RequestMeta) (*models.User, error)
}

type permissionService interface {
	List(ctx context.Context, filter models.PermissionFilter) ([]models.AccessPermission, error)
	Upsert(ctx context.Context, actorID string, req dto.UpsertPermissionRequest, meta dto.RequestMeta) (*models.AccessPermission, error)
}

// AdminHandler serves user, role and permission management.
type AdminHandler struct {
	users       userService
	permissions permissionService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(users userService, permissions permissionService) *AdminHandler {
	return &AdminHandler{users: users, permissions: permissions}
}

// ListUsers godoc
// @Summary List users
// @Description List users with their roles, paginated
// @Tags Admin
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param search query string false "Search by user id or name"
// @Param sort_by query string false "Sort by"
// @Param sort_order query string false "Sort order"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var filter models.UserFilter
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		filter.PageSize = size
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		r := models.Role(strings.ToUpper(role))
		filter.Role = &r
	}
	filter.Search = c.Query("search")
	filter.SortBy = c.Query("sort_by")
	filter.SortOrder = c.Query("sort_order")

	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, users, pagination)
}

// UpdateRole godoc
// @Summary Update user roles
// @Description Set a user's primary role and role set. Granting or removing SUPER_ADMIN requires SUPER_ADMIN.
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.UpdateUserRoleRequest true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/role [put]
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateUserRoleRequest
	if !bindJSON(c, &req, "invalid role payload") {
		return
	}
	user, err := h.users.UpdateRole(c.Request.Context(), claims, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// ListPermissions godoc
// @Summary List subject permissions
// @Tags Admin
// @Produce json
// @Param userId query string false "User id"
// @Param subjectId query string false "Subject id"
// @Success 200 {object} response.Envelope
// @Router /admin/permissions [get]
func (h *AdminHandler) ListPermissions(c *gin.Context) {
	perms, err := h.permissions.List(c.Request.Context(), models.PermissionFilter{
		UserID:    strings.TrimSpace(c.Query("userId")),
		SubjectID: strings.TrimSpace(c.Query("subjectId")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, perms)
}

// UpsertPermission godoc
// @Summary Create or replace a subject permission
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body dto.UpsertPermissionRequest true "Permission payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/permissions [put]
func (h *AdminHandler) UpsertPermission(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpsertPermissionRequest
	if !bindJSON(c, &req, "invalid permission payload") {
		return
	}
	perm, err := h.permissions.Upsert(c.Request.Context(), claims.UserID, req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, perm)
}
