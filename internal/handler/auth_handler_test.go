package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/middleware"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type authServiceMock struct {
	loginResp *dto.LoginResponse
	loginErr  error
	loggedOut bool
}

func (m *authServiceMock) Register(ctx context.Context, req dto.RegisterRequest) (*dto.UserInfo, error) {
	return &dto.UserInfo{ID: "u-1", UserID: req.UserID, Name: req.Name, Role: models.RoleWorker}, nil
}

func (m *authServiceMock) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.loginResp, m.loginErr
}

func (m *authServiceMock) Logout(ctx context.Context, claims *models.SessionClaims, meta dto.RequestMeta) error {
	m.loggedOut = true
	return nil
}

func (m *authServiceMock) Me(ctx context.Context, claims *models.SessionClaims) (*dto.MeResponse, error) {
	return &dto.MeResponse{User: dto.UserInfo{ID: claims.UserID, UserID: claims.LoginID, Role: claims.Role}}, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, role models.Role) {
	c.Set(middleware.ContextUserKey, &models.SessionClaims{UserID: "u-1", LoginID: "alice", Role: role, Roles: []models.Role{role}})
}

func TestAuthHandlerLoginSetsCookie(t *testing.T) {
	svc := &authServiceMock{loginResp: &dto.LoginResponse{
		Token:     "tok-123",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      dto.UserInfo{ID: "u-1", UserID: "alice", Role: models.RoleWorker},
	}}
	h := NewAuthHandler(svc, CookieConfig{Name: "qc_session"})

	payload, _ := json.Marshal(dto.LoginRequest{UserID: "alice", Password: "secret1"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, "qc_session=tok-123")
	assert.Contains(t, cookie, "HttpOnly")
	assert.Contains(t, cookie, "SameSite=Lax")
}

func TestAuthHandlerLoginRejectsBadCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials}, CookieConfig{})

	payload, _ := json.Marshal(dto.LoginRequest{UserID: "alice", Password: "nope"})
	c, w := newGinContext(http.MethodPost, "/auth/login", payload)
	h.Login(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Header().Get("Set-Cookie"))
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandlerLoginMalformedBody(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, CookieConfig{})
	c, w := newGinContext(http.MethodPost, "/auth/login", []byte("{"))
	h.Login(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerLogoutWithoutSession(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, CookieConfig{Name: "qc_session"})

	c, w := newGinContext(http.MethodPost, "/auth/logout", nil)
	h.Logout(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, svc.loggedOut)
	assert.True(t, strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0"))
}

func TestAuthHandlerLogoutRevokesSession(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc, CookieConfig{})

	c, _ := newGinContext(http.MethodPost, "/auth/logout", nil)
	withClaims(c, models.RoleWorker)
	h.Logout(c)

	assert.True(t, svc.loggedOut)
}

func TestAuthHandlerMeRequiresSession(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, CookieConfig{})
	c, w := newGinContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	withClaims(c, models.RoleAdmin)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"alice"`)
}
