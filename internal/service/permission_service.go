package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type permissionRepository interface {
	Get(ctx context.Context, userID, subjectID string) (*models.AccessPermission, error)
	List(ctx context.Context, filter models.PermissionFilter) ([]models.AccessPermission, error)
	Upsert(ctx context.Context, perm *models.AccessPermission) error
}

type permissionUserLookup interface {
	FindByLoginID(ctx context.Context, loginID string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type subjectLookup interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
}

// PermissionService manages per-subject access overrides.
type PermissionService struct {
	repo      permissionRepository
	users     permissionUserLookup
	subjects  subjectLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPermissionService constructs a PermissionService.
func NewPermissionService(repo permissionRepository, users permissionUserLookup, subjects subjectLookup, validate *validator.Validate, logger *zap.Logger) *PermissionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &PermissionService{repo: repo, users: users, subjects: subjects, validator: validate, logger: logger}
}

// List returns overrides filtered by login id and subject.
func (s *PermissionService) List(ctx context.Context, filter models.PermissionFilter) ([]models.AccessPermission, error) {
	perms, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list permissions")
	}
	return perms, nil
}

// Upsert creates or replaces the override for (user, subject).
func (s *PermissionService) Upsert(ctx context.Context, actorID string, req dto.UpsertPermissionRequest, meta dto.RequestMeta) (*models.AccessPermission, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid permission payload")
	}

	user, err := s.users.FindByLoginID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if _, err := s.subjects.FindBySubjectID(ctx, req.SubjectID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load subject")
	}

	perm := &models.AccessPermission{
		UserID:    user.ID,
		LoginID:   user.LoginID,
		SubjectID: req.SubjectID,
		CanAccess: req.CanAccess,
		CanEdit:   req.CanEdit,
		CanDelete: req.CanDelete,
	}
	if err := s.repo.Upsert(ctx, perm); err != nil {
		return nil, appErrors.Internal(err, "failed to save permission")
	}

	payload, _ := json.Marshal(perm)
	resourceID := user.ID + ":" + req.SubjectID
	if err := s.users.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionPermissionUpdate,
		Resource:   "access_permissions",
		ResourceID: &resourceID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record permission audit log", zap.Error(err))
	}
	return perm, nil
}

// CheckAccess returns FORBIDDEN when an override denies the user access to the
// subject. Without an override the user's roles decide alone.
func (s *PermissionService) CheckAccess(ctx context.Context, userID, subjectID string) error {
	perm, err := s.repo.Get(ctx, userID, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Internal(err, "failed to load permission")
	}
	if !perm.CanAccess {
		return appErrors.Clone(appErrors.ErrForbidden, "access to subject denied")
	}
	return nil
}
