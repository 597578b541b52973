package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concierge-ai/assistant-platform/internal/agent"
	"github.com/concierge-ai/assistant-platform/internal/history"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/internal/state"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

type staticLLM struct {
	content string
}

func (s staticLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (staticLLM) Name() string     { return "static" }
func (staticLLM) Models() []string { return nil }

type staticHandler struct {
	text string
}

func (h staticHandler) Handle(ctx context.Context, st *model.ThreadState) {
	st.Response = h.text
	st.Append(model.Message{ID: "r", Role: model.RoleAssistant, Content: h.text})
}

func newTestRig(t *testing.T) (*agent.Dispatcher, *state.MemoryStore) {
	t.Helper()
	log := logger.NewNop()
	store := state.NewMemoryStore()
	client := staticLLM{content: "general_chat"}
	d := agent.NewDispatcher(
		store,
		agent.NewRouter(client, log),
		map[model.Intent]agent.Handler{model.IntentGeneralChat: staticHandler{text: "olá!"}},
		staticHandler{text: "fallback"},
		history.NewSummarizer(client, log),
		nil,
		agent.DispatcherConfig{MaxHistoryTokens: 2000, KeepRecentMessages: 4, SummaryEnabled: true},
		log,
	)
	return d, store
}

func TestChatEndpoint(t *testing.T) {
	d, store := newTestRig(t)
	h := NewChatHandler(d, logger.NewNop())

	body, _ := json.Marshal(model.ChatRequest{ThreadID: "t-1", Message: "oi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t-1", resp.ThreadID)
	assert.Equal(t, "olá!", resp.Response)

	_, err := store.Load(context.Background(), "t-1")
	assert.NoError(t, err)
}

// An absent thread id starts a fresh thread and reports its id back.
func TestChatEndpointGeneratesThreadID(t *testing.T) {
	d, _ := newTestRig(t)
	h := NewChatHandler(d, logger.NewNop())

	body, _ := json.Marshal(model.ChatRequest{Message: "oi"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ThreadID)
}

func TestChatEndpointRejectsEmptyMessage(t *testing.T) {
	d, _ := newTestRig(t)
	h := NewChatHandler(d, logger.NewNop())

	body, _ := json.Marshal(model.ChatRequest{ThreadID: "t-1", Message: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointRejectsBadBody(t *testing.T) {
	d, _ := newTestRig(t)
	h := NewChatHandler(d, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()

	h.Chat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWhatsAppWebhook(t *testing.T) {
	d, store := newTestRig(t)
	h := NewWhatsAppHandler(d, logger.NewNop())

	body, _ := json.Marshal(model.WhatsAppInbound{From: "+5511999990000", Body: "oi"})
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.Webhook(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "+5511999990000", resp["to"])
	assert.Equal(t, "olá!", resp["body"])

	// The sender's number is the thread id.
	_, err := store.Load(context.Background(), "+5511999990000")
	assert.NoError(t, err)
}

func TestThreadClearEndpoint(t *testing.T) {
	d, store := newTestRig(t)

	pre := model.NewThreadState("t-1")
	require.NoError(t, store.Save(context.Background(), pre))

	h := NewThreadHandler(d, logger.NewNop())

	r := chi.NewRouter()
	r.Delete("/api/v1/threads/{id}", h.Clear)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/threads/t-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	_, err := store.Load(context.Background(), "t-1")
	assert.ErrorIs(t, err, state.ErrNotFound)
}
