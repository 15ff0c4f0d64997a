package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/internal/repository"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

const (
	subjectsCacheNamespace = "subjects"
	liveSubjectsCacheKey   = "live"
)

type subjectRepository interface {
	List(ctx context.Context, deleted bool) ([]models.Subject, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Subject, error)
	Collisions(ctx context.Context, name, subjectID string) (bool, bool, error)
	SubjectIDExists(ctx context.Context, subjectID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	SetDeleted(ctx context.Context, subjectID string, deleted bool, at time.Time) (bool, error)
	HardDelete(ctx context.Context, subjectID string) (bool, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// knownSubjectIDs maps well-known display names (lowercased) to fixed slugs.
var knownSubjectIDs = map[string]string{
	"english":          "english",
	"英語":               "english",
	"math":             "math",
	"mathematics":      "math",
	"数学":               "math",
	"japanese":         "japanese",
	"国語":               "japanese",
	"physics":          "physics",
	"物理":               "physics",
	"chemistry":        "chemistry",
	"化学":               "chemistry",
	"biology":          "biology",
	"生物":               "biology",
	"world history":    "world_history",
	"世界史":              "world_history",
	"japanese history": "japanese_history",
	"日本史":              "japanese_history",
	"geography":        "geography",
	"地理":               "geography",
	"civics":           "civics",
	"公民":               "civics",
	"information":      "information",
	"情報":               "information",
}

var (
	slugSeparators = regexp.MustCompile(`[\s\-]+`)
	slugInvalid    = regexp.MustCompile(`[^a-z0-9_]`)
	slugRepeats    = regexp.MustCompile(`_+`)
)

// DeriveSubjectID returns the slug for a display name: the fixed table entry
// when known, else the lowercase [a-z0-9_] form. It returns "" when nothing
// usable remains.
func DeriveSubjectID(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := knownSubjectIDs[key]; ok {
		return id
	}
	slug := slugSeparators.ReplaceAllString(key, "_")
	slug = slugInvalid.ReplaceAllString(slug, "")
	slug = slugRepeats.ReplaceAllString(slug, "_")
	return strings.Trim(slug, "_")
}

// SubjectService manages the subject catalog and its lifecycle.
type SubjectService struct {
	repo      subjectRepository
	audit     auditRecorder
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService creates a new subject service. cache may be nil.
func NewSubjectService(repo subjectRepository, audit auditRecorder, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{repo: repo, audit: audit, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// ListLive returns subjects that are not soft-deleted, ordered by name.
func (s *SubjectService) ListLive(ctx context.Context) ([]models.Subject, error) {
	subjects, _, err := s.ListLiveCached(ctx)
	return subjects, err
}

// ListLiveCached is ListLive that also reports whether the cache served the
// list. Any cache failure falls through to the database.
func (s *SubjectService) ListLiveCached(ctx context.Context) ([]models.Subject, bool, error) {
	var cached []models.Subject
	entry, hit, _ := s.cache.Get(ctx, subjectsCacheNamespace, liveSubjectsCacheKey, &cached)
	if hit {
		return cached, true, nil
	}

	subjects, err := s.repo.List(ctx, false)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to list subjects")
	}
	_ = s.cache.Fill(ctx, entry, subjects, s.cacheTTL)
	return subjects, false, nil
}

// ListDeleted returns soft-deleted subjects.
func (s *SubjectService) ListDeleted(ctx context.Context) ([]models.Subject, error) {
	subjects, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list deleted subjects")
	}
	return subjects, nil
}

// RequireLive returns the subject or NOT_FOUND when it is missing or
// soft-deleted. Dependent resources use it so their rows stay hidden while
// the subject is deleted.
func (s *SubjectService) RequireLive(ctx context.Context, subjectID string) (*models.Subject, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, appErrors.Validation("subjectId", "subjectId is required")
	}
	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load subject")
	}
	if subject.IsDeleted {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return subject, nil
}

// Create adds a subject. Both the display name and the derived id must be
// unused by every subject, live or deleted.
func (s *SubjectService) Create(ctx context.Context, actorID string, req dto.CreateSubjectRequest, meta dto.RequestMeta) (*models.Subject, error) {
	req.SubjectName = strings.TrimSpace(req.SubjectName)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid subject payload")
	}
	examType, ok := models.ParseExamType(req.ExamType)
	if !ok {
		return nil, appErrors.Validation("examType", "examType must be one of: mock, past")
	}

	subjectID := DeriveSubjectID(req.SubjectName)
	if subjectID == "" {
		generated, err := s.randomSubjectID(ctx)
		if err != nil {
			return nil, err
		}
		subjectID = generated
	}

	nameTaken, idTaken, err := s.repo.Collisions(ctx, req.SubjectName, subjectID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check subject uniqueness")
	}
	if nameTaken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject name already exists")
	}
	if idTaken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subject id already exists")
	}

	subject := &models.Subject{
		SubjectID:         subjectID,
		SubjectName:       req.SubjectName,
		ExamType:          examType,
		SystemPromptLimit: req.SystemPromptLimit,
	}
	if actorID != "" {
		subject.CreatedBy = &actorID
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject already exists")
		}
		return nil, appErrors.Internal(err, "failed to create subject")
	}

	s.invalidate(ctx)
	s.record(ctx, actorID, models.AuditActionSubjectCreate, subject, meta)
	return subject, nil
}

// ApplyAction runs a soft_delete, restore or hard_delete transition.
func (s *SubjectService) ApplyAction(ctx context.Context, actorID, subjectID, action string, meta dto.RequestMeta) (*dto.SubjectActionResponse, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, appErrors.Validation("subjectId", "subjectId is required")
	}
	act := models.SubjectDeleteAction(strings.TrimSpace(action))
	switch act {
	case models.SubjectSoftDelete, models.SubjectRestore, models.SubjectHardDelete:
	default:
		return nil, appErrors.Validation("action", "action must be one of: soft_delete, restore, hard_delete")
	}

	subject, err := s.repo.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Internal(err, "failed to load subject")
	}

	now := time.Now().UTC()
	resp := &dto.SubjectActionResponse{Action: string(act)}
	switch act {
	case models.SubjectSoftDelete:
		if subject.IsDeleted {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject is already deleted")
		}
		if err := s.setDeleted(ctx, subjectID, true, now); err != nil {
			return nil, err
		}
		subject.IsDeleted = true
		subject.DeletedAt = &now
		resp.Message = "subject deleted"
		resp.Subject = subject
		s.record(ctx, actorID, models.AuditActionSubjectDelete, subject, meta)
	case models.SubjectRestore:
		if !subject.IsDeleted {
			return nil, appErrors.Clone(appErrors.ErrConflict, "subject is not deleted")
		}
		if err := s.setDeleted(ctx, subjectID, false, now); err != nil {
			return nil, err
		}
		subject.IsDeleted = false
		subject.DeletedAt = nil
		resp.Message = "subject restored"
		resp.Subject = subject
		s.record(ctx, actorID, models.AuditActionSubjectRestore, subject, meta)
	case models.SubjectHardDelete:
		found, err := s.repo.HardDelete(ctx, subjectID)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to delete subject")
		}
		if !found {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		resp.Message = "subject permanently deleted"
		s.record(ctx, actorID, models.AuditActionSubjectPurge, subject, meta)
	}

	s.invalidate(ctx)
	return resp, nil
}

func (s *SubjectService) setDeleted(ctx context.Context, subjectID string, deleted bool, at time.Time) error {
	changed, err := s.repo.SetDeleted(ctx, subjectID, deleted, at)
	if err != nil {
		return appErrors.Internal(err, "failed to update subject")
	}
	if !changed {
		return appErrors.Clone(appErrors.ErrConflict, "subject state changed concurrently")
	}
	return nil
}

func (s *SubjectService) randomSubjectID(ctx context.Context) (string, error) {
	for i := 0; i < 5; i++ {
		candidate := "subject_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		exists, err := s.repo.SubjectIDExists(ctx, candidate)
		if err != nil {
			return "", appErrors.Internal(err, "failed to check subject id")
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrConflict, "could not allocate a subject id")
}

func (s *SubjectService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, subjectsCacheNamespace)
}

func (s *SubjectService) record(ctx context.Context, actorID, action string, subject *models.Subject, meta dto.RequestMeta) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"subjectId":   subject.SubjectID,
		"subjectName": subject.SubjectName,
		"examType":    subject.ExamType,
	})
	log := &models.AuditLog{
		Action:     action,
		Resource:   "subjects",
		ResourceID: &subject.SubjectID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		log.UserID = &actorID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record subject audit log", zap.String("action", action), zap.Error(err))
	}
}
