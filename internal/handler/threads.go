package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/agent"
	"github.com/concierge-ai/assistant-platform/internal/middleware"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// ThreadHandler handles thread management endpoints.
type ThreadHandler struct {
	dispatcher *agent.Dispatcher
	logger     *logger.Logger
}

// NewThreadHandler creates a new thread handler.
func NewThreadHandler(d *agent.Dispatcher, log *logger.Logger) *ThreadHandler {
	return &ThreadHandler{
		dispatcher: d,
		logger:     log,
	}
}

// Clear handles DELETE /api/v1/threads/{id}
// It wipes the thread's history and abandons any in-progress flow.
func (h *ThreadHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	threadID := chi.URLParam(r, "id")
	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.dispatcher.ClearThread(ctx, threadID); err != nil {
		h.logger.Error("failed to clear thread", zap.String("thread_id", threadID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to clear thread")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"thread_id": threadID,
		"status":    "cleared",
	})
}
