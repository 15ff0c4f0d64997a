package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/internal/models"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type taskServiceMock struct {
	subjectID string
	examType  string
	actorID   string
	files     []models.TaskFile
}

func (m *taskServiceMock) Get(ctx context.Context, subjectID, rawExamType string) (*dto.TaskDefinitionResponse, error) {
	m.subjectID, m.examType = subjectID, rawExamType
	if subjectID == "gone" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	return &dto.TaskDefinitionResponse{SubjectID: subjectID, ExamType: models.ExamTypeMock, Files: models.EmptyTaskFiles()}, nil
}

func (m *taskServiceMock) Upsert(ctx context.Context, actorID, subjectID, rawExamType string, req dto.UpsertTaskDefinitionRequest) (*dto.TaskDefinitionResponse, error) {
	m.actorID, m.subjectID, m.examType, m.files = actorID, subjectID, rawExamType, req.Files
	return &dto.TaskDefinitionResponse{SubjectID: subjectID, Files: req.Files}, nil
}

func TestTaskHandlerGet(t *testing.T) {
	svc := &taskServiceMock{}
	h := NewTaskHandler(svc)

	c, w := newGinContext(http.MethodGet, "/tasks/english?examType=past", nil)
	c.Params = gin.Params{{Key: "subjectId", Value: "english"}}
	h.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "past", svc.examType)

	c, w = newGinContext(http.MethodGet, "/tasks/gone", nil)
	c.Params = gin.Params{{Key: "subjectId", Value: "gone"}}
	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskHandlerUpsert(t *testing.T) {
	svc := &taskServiceMock{}
	h := NewTaskHandler(svc)
	payload := []byte(`{"files":[{"fileType":"problem","tasks":[{"taskId":"T1"}]}]}`)

	c, w := newGinContext(http.MethodPut, "/tasks/english", payload)
	c.Params = gin.Params{{Key: "subjectId", Value: "english"}}
	h.Upsert(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodPut, "/tasks/english", payload)
	c.Params = gin.Params{{Key: "subjectId", Value: "english"}}
	withClaims(c, models.RoleDeveloper)
	h.Upsert(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1", svc.actorID)
	require.Len(t, svc.files, 1)
	assert.Equal(t, "T1", svc.files[0].Tasks[0].TaskID)
}
