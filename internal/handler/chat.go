// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/agent"
	"github.com/concierge-ai/assistant-platform/internal/middleware"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// ChatHandler handles chat turn endpoints.
type ChatHandler struct {
	dispatcher *agent.Dispatcher
	logger     *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(d *agent.Dispatcher, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		dispatcher: d,
		logger:     log,
	}
}

// Chat handles POST /api/v1/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An absent thread id starts a fresh thread.
	if req.ThreadID == "" {
		req.ThreadID = uuid.Must(uuid.NewV7()).String()
	} else if err := middleware.ValidateThreadID(req.ThreadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, intent := h.dispatcher.HandleTurn(ctx, req.ThreadID, req.Message)

	h.logger.Debug("chat turn served",
		zap.String("thread_id", req.ThreadID),
		zap.String("intent", string(intent)),
	)

	writeJSON(w, http.StatusOK, model.ChatResponse{
		ThreadID: req.ThreadID,
		Response: reply,
	})
}
