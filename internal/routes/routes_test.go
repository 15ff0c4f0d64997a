package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/handler"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	"github.com/noah-isme/qc-workbench-api/internal/service"
	"github.com/noah-isme/qc-workbench-api/pkg/config"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type workerSessions struct{}

func (workerSessions) ValidateToken(ctx context.Context, token string) (*models.SessionClaims, error) {
	if token != "worker-token" {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.SessionClaims{UserID: "u-1", LoginID: "alice", Role: models.RoleWorker, Roles: []models.Role{models.RoleWorker}}, nil
}

type discardAudit struct{}

func (discardAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error { return nil }

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: config.EnvProduction, APIPrefix: "/api/v1"}
	cfg.Session.CookieName = "qc_session"

	metrics := service.NewMetricsService()
	router := gin.New()
	Setup(router, cfg, Handlers{
		Auth:     handler.NewAuthHandler(nil, handler.CookieConfig{}),
		Admin:    handler.NewAdminHandler(nil, nil),
		Subjects: handler.NewSubjectHandler(nil),
		Tasks:    handler.NewTaskHandler(nil),
		Progress: handler.NewProgressHandler(nil),
		Prompts:  handler.NewPromptHandler(nil),
		Chat:     handler.NewChatHandler(nil),
		Metrics:  handler.NewMetricsHandler(metrics, nil),
	}, Deps{Sessions: workerSessions{}, Audit: discardAudit{}, Metrics: metrics, Logger: zap.NewNop()})
	return router
}

func serve(router *gin.Engine, method, path, token string) int {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestSetupGuardsRoutes(t *testing.T) {
	router := newRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"subjects need a session", http.MethodGet, "/api/v1/subjects", "", http.StatusUnauthorized},
		{"worker cannot create subjects", http.MethodPost, "/api/v1/subjects", "worker-token", http.StatusForbidden},
		{"worker cannot view deleted subjects", http.MethodGet, "/api/v1/subjects/deleted", "worker-token", http.StatusForbidden},
		{"worker cannot read tasks", http.MethodGet, "/api/v1/tasks/english", "worker-token", http.StatusForbidden},
		{"worker cannot write tasks", http.MethodPut, "/api/v1/tasks/english", "worker-token", http.StatusForbidden},
		{"worker cannot write prompts", http.MethodPost, "/api/v1/prompts/system", "worker-token", http.StatusForbidden},
		{"worker cannot list users", http.MethodGet, "/api/v1/admin/users", "worker-token", http.StatusForbidden},
		{"exports are not mounted when disabled", http.MethodGet, "/api/v1/exports/abc", "", http.StatusNotFound},
		{"docs hidden in production", http.MethodGet, "/docs/index.html", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, serve(router, tc.method, tc.path, tc.token))
		})
	}
}

func TestAPIPrefix(t *testing.T) {
	assert.Equal(t, "/api/v1", apiPrefix(""))
	assert.Equal(t, "/api/v2", apiPrefix("/api/v2/"))
}
