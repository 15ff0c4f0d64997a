package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/authz"
	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByLoginID(ctx context.Context, loginID string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ReplaceRoles(ctx context.Context, userID string, primary models.Role, roles []models.Role) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionRevoker interface {
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
}

// UserService handles admin user management.
type UserService struct {
	repo      userRepository
	sessions  sessionRevoker
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, sessions sessionRevoker, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, sessions: sessions, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, nil, appErrors.Validation("role", "role must be one of: WORKER, DEVELOPER, ADMIN, SUPER_ADMIN")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	return users, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// UpdateRole replaces a user's primary role and role set. The primary role is
// always part of the stored set. Granting or taking away SUPER_ADMIN needs a
// SUPER_ADMIN caller. Existing sessions of the target are revoked so the new
// roles apply on next login.
func (s *UserService) UpdateRole(ctx context.Context, actor *models.SessionClaims, req dto.UpdateUserRoleRequest, meta dto.RequestMeta) (*models.User, error) {
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid role payload")
	}

	primary := models.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !primary.Valid() {
		return nil, appErrors.Validation("role", "role must be one of: WORKER, DEVELOPER, ADMIN, SUPER_ADMIN")
	}
	roles := []models.Role{primary}
	for _, raw := range req.Roles {
		role := models.Role(strings.ToUpper(strings.TrimSpace(raw)))
		if !role.Valid() {
			return nil, appErrors.Validation("roles", "unknown role "+raw)
		}
		if !containsRole(roles, role) {
			roles = append(roles, role)
		}
	}

	target, err := s.repo.FindByLoginID(ctx, strings.TrimSpace(req.UserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	before := target.RoleSet()
	touchesSuperAdmin := containsRole(before, models.RoleSuperAdmin) || containsRole(roles, models.RoleSuperAdmin)
	if touchesSuperAdmin && !authz.Can(actor.Roles, authz.ActionAdminGrantSuperAdmin) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only SUPER_ADMIN can grant or revoke SUPER_ADMIN")
	}

	if err := s.repo.ReplaceRoles(ctx, target.ID, primary, roles); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to update roles")
	}

	if s.sessions != nil {
		if n, err := s.sessions.DeleteAllForUser(ctx, target.ID); err != nil {
			s.logger.Warn("failed to revoke sessions after role change", zap.String("user_id", target.ID), zap.Error(err))
		} else if n > 0 {
			s.logger.Info("revoked sessions after role change", zap.String("user_id", target.ID), zap.Int("sessions", n))
		}
	}

	oldPayload, _ := json.Marshal(map[string]interface{}{"role": target.PrimaryRole, "roles": before})
	newPayload, _ := json.Marshal(map[string]interface{}{"role": primary, "roles": roles})
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionRoleUpdate,
		Resource:   "users",
		ResourceID: &target.ID,
		OldValues:  oldPayload,
		NewValues:  newPayload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record role update audit log", zap.Error(err))
	}

	target.PrimaryRole = primary
	target.Roles = make([]string, 0, len(roles))
	for _, r := range roles {
		target.Roles = append(target.Roles, string(r))
	}
	return target, nil
}

func containsRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
