// Package history manages conversation history size: token estimation and
// compression of older turns into a running summary.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
	"github.com/concierge-ai/assistant-platform/pkg/metrics"
)

// perMessageOverhead approximates the per-message framing cost.
const perMessageOverhead = 4

// EstimateTokens returns a deterministic, monotonic proxy for the context
// budget consumed by a message list. Roughly one token per four characters.
func EstimateTokens(messages []model.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(msg.Content)/4 + perMessageOverhead
	}
	return total
}

// ShouldCompress reports whether the history exceeds the token budget.
func ShouldCompress(messages []model.Message, maxTokens int) bool {
	return EstimateTokens(messages) > maxTokens
}

// Summarizer folds older messages into a bounded summary via the LLM.
type Summarizer struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewSummarizer creates a summarizer.
func NewSummarizer(client llm.Client, log *logger.Logger) *Summarizer {
	return &Summarizer{llm: client, logger: log}
}

const summarySystemPrompt = `Você é um assistente especializado em resumir conversas.

Sua tarefa é criar um resumo conciso que preserve:
1. O contexto principal da conversa
2. Informações importantes mencionadas
3. Decisões ou acordos feitos
4. Estado atual da conversa

Seja breve mas completo. Use bullets para organizar informações chave.
Máximo de 200 palavras.`

// Compress summarizes everything older than the last keepRecent messages,
// returning the new message list (one synthetic summary message plus the
// retained window) and the updated summary.
//
// If the history fits inside the window, or the summarization call fails,
// the input is returned unchanged: compression degrades, it never crashes
// a turn. Compression is monotonic; a summary is never re-expanded.
func (s *Summarizer) Compress(ctx context.Context, messages []model.Message, existingSummary string, keepRecent int) ([]model.Message, string) {
	if keepRecent < 0 {
		keepRecent = 0
	}
	if len(messages) <= keepRecent {
		return messages, existingSummary
	}

	older := messages[:len(messages)-keepRecent]
	recent := messages[len(messages)-keepRecent:]

	newSummary, err := s.summarize(ctx, older, existingSummary)
	if err != nil {
		s.logger.Warn("summarization failed, skipping compression", zap.Error(err))
		return messages, existingSummary
	}

	summaryMsg := model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleSystem,
		Content:   "Resumo da conversa anterior:\n" + newSummary,
		CreatedAt: time.Now(),
		Summary:   true,
	}

	compressed := make([]model.Message, 0, 1+len(recent))
	compressed = append(compressed, summaryMsg)
	compressed = append(compressed, recent...)

	metrics.CompressionsTotal.Inc()
	s.logger.Info("history compressed",
		zap.Int("original_count", len(messages)),
		zap.Int("compressed_count", len(compressed)),
		zap.Int("kept_recent", keepRecent),
	)

	return compressed, newSummary
}

func (s *Summarizer) summarize(ctx context.Context, messages []model.Message, existingSummary string) (string, error) {
	var lines []string
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleUser:
			lines = append(lines, "Usuário: "+msg.Content)
		case model.RoleAssistant:
			lines = append(lines, "Assistente: "+msg.Content)
		}
	}
	conversation := strings.Join(lines, "\n")

	var userPrompt string
	if existingSummary != "" {
		userPrompt = fmt.Sprintf(`Resumo anterior da conversa:
%s

Novas mensagens:
%s

Atualize o resumo incorporando as novas informações. Mantenha apenas o essencial.`, existingSummary, conversation)
	} else {
		userPrompt = fmt.Sprintf(`Resuma a seguinte conversa:

%s

Crie um resumo conciso que capture o essencial.`, conversation)
	}

	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.Content)
	if summary == "" {
		return "", fmt.Errorf("empty summary from provider")
	}
	return summary, nil
}
