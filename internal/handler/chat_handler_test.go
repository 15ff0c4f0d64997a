package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	appErrors "github.com/noah-isme/qc-workbench-api/pkg/errors"
)

type chatServiceMock struct {
	req dto.ChatRequest
	err error
}

func (m *chatServiceMock) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.ChatResponse{Response: "checked: " + req.Message}, nil
}

func TestChatHandler(t *testing.T) {
	svc := &chatServiceMock{}
	h := NewChatHandler(svc)

	c, w := newGinContext(http.MethodPost, "/chat", []byte(`{"message":"Q1","taskType":"fact_check","subjectId":"english"}`))
	h.Chat(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"response":"checked: Q1"`)
	assert.Equal(t, "fact_check", svc.req.TaskType)

	svc.err = appErrors.Clone(appErrors.ErrUpstream, "llm request failed")
	c, w = newGinContext(http.MethodPost, "/chat", []byte(`{"message":"Q1"}`))
	h.Chat(c)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_ERROR")

	c, w = newGinContext(http.MethodPost, "/chat", []byte(`not json`))
	h.Chat(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
