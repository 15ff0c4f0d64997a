package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/qc-workbench-api/internal/authz"
	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/internal/repository"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type authUserRepository interface {
	FindByLoginID(ctx context.Context, loginID string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	EnsureRole(ctx context.Context, userID string, role models.Role) error
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type sessionStore interface {
	Create(ctx context.Context, jti, userID string, ttl time.Duration) error
	Exists(ctx context.Context, jti string) (bool, error)
	Delete(ctx context.Context, jti, userID string) error
}

// AuthConfig defines configuration for session issuing.
type AuthConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// AuthService provides registration, login and session validation.
type AuthService struct {
	repo      authUserRepository
	sessions  sessionStore
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, sessions sessionStore, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.TTL <= 0 {
		config.TTL = 30 * 24 * time.Hour
	}
	return &AuthService{repo: repo, sessions: sessions, validator: validate, logger: logger, config: config}
}

// Register creates a WORKER account. The user row and its role row are
// written in one transaction; a taken login id is a conflict.
func (s *AuthService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserInfo, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid registration payload")
	}
	if !loginIDPattern.MatchString(req.UserID) {
		return nil, appErrors.Validation("userId", "userId may only contain letters, digits, '_', '-' and '.'")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		LoginID:      req.UserID,
		DisplayName:  req.Name,
		PasswordHash: string(hash),
		PrimaryRole:  models.RoleWorker,
		Active:       true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user id already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	s.audit(ctx, user.ID, models.AuditActionRegister, dto.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, map[string]string{"userId": user.LoginID})

	info := userInfo(user)
	return &info, nil
}

// Login verifies credentials and issues a session token registered in the
// session store.
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}

	user, err := s.repo.FindByLoginID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if !user.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "")
	}

	if user.PrimaryRole != "" && !user.HasRole(user.PrimaryRole) {
		if err := s.repo.EnsureRole(ctx, user.ID, user.PrimaryRole); err != nil {
			s.logger.Warn("failed to back-fill primary role", zap.String("user_id", user.ID), zap.Error(err))
		} else {
			user.Roles = append(user.Roles, string(user.PrimaryRole))
		}
	}

	token, claims, err := s.issue(user)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create session token")
	}
	if err := s.sessions.Create(ctx, claims.ID, user.ID, s.config.TTL); err != nil {
		return nil, appErrors.Internal(err, "failed to register session")
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, dto.RequestMeta{IP: req.IP, UserAgent: req.UserAgent}, map[string]string{"status": "success"})

	return &dto.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      userInfo(user),
		Access:    authz.Resolve(claims.Roles),
	}, nil
}

// Logout removes the session entry so the token stops validating.
func (s *AuthService) Logout(ctx context.Context, claims *models.SessionClaims, meta dto.RequestMeta) error {
	if claims == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if err := s.sessions.Delete(ctx, claims.ID, claims.UserID); err != nil {
		return appErrors.Internal(err, "failed to revoke session")
	}
	s.audit(ctx, claims.UserID, models.AuditActionLogout, meta, map[string]string{"status": "logout"})
	return nil
}

// Me returns the stored user together with its resolved access.
func (s *AuthService) Me(ctx context.Context, claims *models.SessionClaims) (*dto.MeResponse, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}

	resp := &dto.MeResponse{
		User:   userInfo(user),
		Access: authz.Resolve(user.RoleSet()),
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	return resp, nil
}

// ValidateToken verifies the signature and expiry of a session token and that
// its session entry has not been revoked.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*models.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid session")
	}

	claims, ok := token.Claims.(*models.SessionClaims)
	if !ok || !token.Valid || claims.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid session")
	}

	active, err := s.sessions.Exists(ctx, claims.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check session")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired or revoked")
	}
	return claims, nil
}

func (s *AuthService) issue(user *models.User) (string, *models.SessionClaims, error) {
	issuedAt := time.Now().UTC()
	claims := &models.SessionClaims{
		UserID:  user.ID,
		LoginID: user.LoginID,
		Name:    user.DisplayName,
		Role:    user.PrimaryRole,
		Roles:   user.RoleSet(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *AuthService) audit(ctx context.Context, userID, action string, meta dto.RequestMeta, values interface{}) {
	payload, _ := json.Marshal(values)
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func userInfo(user *models.User) dto.UserInfo {
	return dto.UserInfo{
		ID:     user.ID,
		UserID: user.LoginID,
		Name:   user.DisplayName,
		Role:   user.PrimaryRole,
		Roles:  user.RoleSet(),
	}
}
