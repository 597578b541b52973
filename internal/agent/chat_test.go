package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

func TestChatRepliesFromHistory(t *testing.T) {
	var seen []llm.ChatMessage
	fake := &fakeLLM{respond: func(req *llm.CompletionRequest) (string, error) {
		seen = req.Messages
		return "Olá! Como posso ajudar?", nil
	}}
	a := NewChatAgent(fake, logger.NewNop())

	st := threadWithUserMessage("oi, tudo bem?")
	a.Handle(context.Background(), st)

	assert.Equal(t, "Olá! Como posso ajudar?", st.Response)
	// System prompt plus the single user turn.
	require.Len(t, seen, 2)
	assert.Equal(t, "system", seen[0].Role)
	assert.Equal(t, "oi, tudo bem?", seen[1].Content)

	// The reply lands in history.
	assert.Equal(t, model.RoleAssistant, st.Messages[len(st.Messages)-1].Role)
}

// Only the recent window goes to the model, but the compression summary
// always rides along.
func TestChatWindowsHistoryAndKeepsSummary(t *testing.T) {
	var seen []llm.ChatMessage
	fake := &fakeLLM{respond: func(req *llm.CompletionRequest) (string, error) {
		seen = req.Messages
		return "ok", nil
	}}
	a := NewChatAgent(fake, logger.NewNop())

	st := model.NewThreadState("t-1")
	st.Append(model.Message{ID: "s", Role: model.RoleSystem, Content: "Resumo da conversa anterior:\ncontexto antigo", Summary: true})
	for i := 0; i < 8; i++ {
		st.Append(model.Message{ID: fmt.Sprintf("m%d", i), Role: model.RoleUser, Content: fmt.Sprintf("mensagem %d", i)})
	}

	a.Handle(context.Background(), st)

	// system prompt + summary + 5 recent.
	require.Len(t, seen, 7)
	assert.Contains(t, seen[1].Content, "contexto antigo")
	assert.Equal(t, "mensagem 7", seen[6].Content)
}

func TestChatProviderErrorApologizes(t *testing.T) {
	a := NewChatAgent(&fakeLLM{err: errors.New("provider down")}, logger.NewNop())

	st := threadWithUserMessage("oi")
	a.Handle(context.Background(), st)

	assert.Equal(t, apology, st.Response)
}
