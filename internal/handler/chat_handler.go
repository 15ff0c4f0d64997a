package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/qc-workbench-api/internal/dto"
	"github.com/noah-isme/qc-workbench-api/pkg/response"
)

type chatService interface {
	Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error)
}

// ChatHandler proxies messages to the LLM.
type ChatHandler struct {
	service chatService
}

// NewChatHandler constructs a chat handler.
func NewChatHandler(svc chatService) *ChatHandler {
	return &ChatHandler{service: svc}
}

// Chat godoc
// @Summary Ask the LLM
// @Description Uses the stored prompt for the subject, task and file type when present, else the built-in prompt of taskType
// @Tags Chat
// @Accept json
// @Produce json
// @Param payload body dto.ChatRequest true "Chat payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req, "invalid chat payload") {
		return
	}
	resp, err := h.service.Chat(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}
