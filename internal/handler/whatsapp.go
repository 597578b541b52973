package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/agent"
	"github.com/concierge-ai/assistant-platform/internal/middleware"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// WhatsAppHandler handles inbound messages from the WhatsApp bridge.
// The sender's number is the thread id, so each contact gets one
// continuous conversation.
type WhatsAppHandler struct {
	dispatcher *agent.Dispatcher
	logger     *logger.Logger
}

// NewWhatsAppHandler creates a new WhatsApp webhook handler.
func NewWhatsAppHandler(d *agent.Dispatcher, log *logger.Logger) *WhatsAppHandler {
	return &WhatsAppHandler{
		dispatcher: d,
		logger:     log,
	}
}

// Webhook handles POST /webhook/whatsapp
func (h *WhatsAppHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var inbound model.WhatsAppInbound
	if err := json.NewDecoder(r.Body).Decode(&inbound); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateThreadID(inbound.From); err != nil {
		writeError(w, http.StatusBadRequest, "invalid sender")
		return
	}
	if err := middleware.ValidateMessageContent(inbound.Body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, intent := h.dispatcher.HandleTurn(ctx, inbound.From, inbound.Body)

	h.logger.Info("whatsapp turn served",
		zap.String("from", inbound.From),
		zap.String("intent", string(intent)),
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"to":   inbound.From,
		"body": reply,
	})
}
