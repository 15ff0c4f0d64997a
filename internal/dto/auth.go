package dto

import (
	"time"

	"github.com/noah-isme/qc-workbench-api/internal/authz"
	"github.com/noah-isme/qc-workbench-api/internal/models"
)

// RegisterRequest is the POST /auth/register payload.
type RegisterRequest struct {
	UserID    string `json:"userId" validate:"required,min=3,max=64"`
	Name      string `json:"name" validate:"required,max=100"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID     string        `json:"id"`
	UserID string        `json:"userId"`
	Name   string        `json:"name"`
	Role   models.Role   `json:"role"`
	Roles  []models.Role `json:"roles"`
}

// LoginResponse carries the session token. The same token is set as an
// HttpOnly cookie.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserInfo     `json:"user"`
	Access    authz.Access `json:"access"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	User      UserInfo     `json:"user"`
	Access    authz.Access `json:"access"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
}

// RequestMeta carries caller details recorded in audit logs.
type RequestMeta struct {
	IP        string
	UserAgent string
}
