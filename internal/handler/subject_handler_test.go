package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/middleware"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type subjectServiceMock struct {
	subjects   []models.Subject
	hit        bool
	lastAction string
}

func (m *subjectServiceMock) ListLiveCached(ctx context.Context) ([]models.Subject, bool, error) {
	return m.subjects, m.hit, nil
}

func (m *subjectServiceMock) ListDeleted(ctx context.Context) ([]models.Subject, error) {
	return nil, nil
}

func (m *subjectServiceMock) RequireLive(ctx context.Context, subjectID string) (*models.Subject, error) {
	for i := range m.subjects {
		if m.subjects[i].SubjectID == subjectID {
			return &m.subjects[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
}

func (m *subjectServiceMock) Create(ctx context.Context, actorID string, req dto.CreateSubjectRequest, meta dto.RequestMeta) (*models.Subject, error) {
	return &models.Subject{SubjectID: "english", SubjectName: req.SubjectName, ExamType: models.ExamTypeMock}, nil
}

func (m *subjectServiceMock) ApplyAction(ctx context.Context, actorID, subjectID, action string, meta dto.RequestMeta) (*dto.SubjectActionResponse, error) {
	m.lastAction = action
	return &dto.SubjectActionResponse{Action: action, Message: "ok"}, nil
}

func TestSubjectHandlerListReportsCacheHit(t *testing.T) {
	svc := &subjectServiceMock{subjects: []models.Subject{{SubjectID: "english"}}, hit: true}
	h := NewSubjectHandler(svc)

	c, w := newGinContext(http.MethodGet, "/subjects", nil)
	middleware.WithResponseMeta()(c)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []models.Subject      `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, true, body.Meta["cache_hit"])
}

func TestSubjectHandlerGetMissing(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{})
	c, w := newGinContext(http.MethodGet, "/subjects/ghost", nil)
	c.Params = gin.Params{{Key: "subjectId", Value: "ghost"}}
	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubjectHandlerCreate(t *testing.T) {
	h := NewSubjectHandler(&subjectServiceMock{})
	payload, _ := json.Marshal(dto.CreateSubjectRequest{SubjectName: "English"})

	c, w := newGinContext(http.MethodPost, "/subjects", payload)
	h.Create(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPost, "/subjects", payload)
	withClaims(c, models.RoleAdmin)
	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"subjectId":"english"`)
}

func TestSubjectHandlerDeleteForwardsAction(t *testing.T) {
	svc := &subjectServiceMock{}
	h := NewSubjectHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/subjects?subjectId=english&action=restore", nil)
	withClaims(c, models.RoleSuperAdmin)
	h.Delete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "restore", svc.lastAction)
}
