package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// KnowledgeAgent answers questions from the local document store, falling
// back to web search when the documents have nothing relevant.
type KnowledgeAgent struct {
	llm    llm.Client
	docs   capability.DocumentSearch
	web    capability.WebSearch
	logger *logger.Logger
}

// NewKnowledgeAgent creates a knowledge agent.
func NewKnowledgeAgent(client llm.Client, docs capability.DocumentSearch, web capability.WebSearch, log *logger.Logger) *KnowledgeAgent {
	return &KnowledgeAgent{llm: client, docs: docs, web: web, logger: log}
}

// genericPhrases mark retrieved chunks that carry no real content. A result
// set made only of these is treated as a miss.
var genericPhrases = []string{
	"não tenho informações",
	"não sei",
	"não há dados",
	"sem informações",
}

const knowledgeAnswerPrompt = `Você é um assistente que responde perguntas com base em documentos.

Use APENAS as informações fornecidas no contexto abaixo para responder.
Se o contexto não contém a resposta, diga que não encontrou a informação.
Responda em português, de forma clara e objetiva.`

// Handle answers one knowledge query.
func (a *KnowledgeAgent) Handle(ctx context.Context, st *model.ThreadState) {
	question := st.LastMessage()

	chunks, err := a.docs.Search(ctx, question, 3)
	if err != nil {
		a.logger.Error("document search failed", zap.Error(err))
		chunks = nil
	}
	chunks = filterGeneric(chunks)

	if len(chunks) > 0 {
		if answer := a.compose(ctx, question, strings.Join(chunks, "\n\n")); answer != "" {
			reply(st, answer)
			return
		}
	}

	a.logger.Info("no local documents matched, falling back to web search")
	results, err := a.web.Search(ctx, question, 3)
	if err != nil || len(results) == 0 {
		reply(st, "Desculpe, não encontrei informações sobre isso nos documentos nem na web.")
		return
	}

	var b strings.Builder
	for _, r := range results {
		b.WriteString(r.Title + "\n" + r.Snippet + "\n\n")
	}
	if answer := a.compose(ctx, question, b.String()); answer != "" {
		reply(st, "🌐 Não encontrei nos documentos locais, mas pesquisei na web:\n\n"+answer)
		return
	}
	reply(st, "Desculpe, ocorreu um erro ao processar sua pergunta. Por favor, tente novamente.")
}

func (a *KnowledgeAgent) compose(ctx context.Context, question, context_ string) string {
	resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: knowledgeAnswerPrompt + "\n\nContexto:\n" + context_},
			{Role: "user", Content: question},
		},
	})
	if err != nil {
		a.logger.Error("knowledge answer generation failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

func filterGeneric(chunks []string) []string {
	kept := chunks[:0]
	for _, c := range chunks {
		lower := strings.ToLower(c)
		generic := false
		for _, p := range genericPhrases {
			if strings.Contains(lower, p) {
				generic = true
				break
			}
		}
		if !generic && strings.TrimSpace(c) != "" {
			kept = append(kept, c)
		}
	}
	return kept
}
