package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// ChatAgent handles general conversation that no specialized agent claims.
type ChatAgent struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewChatAgent creates a general chat agent.
func NewChatAgent(client llm.Client, log *logger.Logger) *ChatAgent {
	return &ChatAgent{llm: client, logger: log}
}

const chatSystemPrompt = `Você é um assistente pessoal amigável e prestativo.

Você pode ajudar com agendamento de reuniões, envio de emails, gerenciamento
de tarefas, busca em documentos e pesquisas na web. Quando o usuário fizer
uma pergunta casual ou cumprimentar, responda de forma natural e simpática,
em português.`

// chatHistoryWindow limits how much context the general chat sends to the
// model. The compressed summary, when present, always rides along.
const chatHistoryWindow = 5

// Handle generates a conversational reply from recent history.
func (a *ChatAgent) Handle(ctx context.Context, st *model.ThreadState) {
	messages := []llm.ChatMessage{{Role: "system", Content: chatSystemPrompt}}

	recent := st.Messages
	if len(recent) > chatHistoryWindow {
		for _, m := range recent[:len(recent)-chatHistoryWindow] {
			if m.Summary {
				messages = append(messages, llm.ChatMessage{Role: "system", Content: m.Content})
			}
		}
		recent = recent[len(recent)-chatHistoryWindow:]
	}
	for _, m := range recent {
		messages = append(messages, llm.ChatMessage{Role: string(m.Role), Content: m.Content})
	}

	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{Messages: messages})
	if err != nil {
		a.logger.Error("chat completion failed", zap.Error(err))
		reply(st, apology)
		return
	}
	reply(st, resp.Content)
}
