package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

// WebSearchAgent runs general web and news searches.
type WebSearchAgent struct {
	llm    llm.Client
	web    capability.WebSearch
	logger *logger.Logger
}

// NewWebSearchAgent creates a web search agent.
func NewWebSearchAgent(client llm.Client, web capability.WebSearch, log *logger.Logger) *WebSearchAgent {
	return &WebSearchAgent{llm: client, web: web, logger: log}
}

const searchQueryPrompt = `Você é um assistente que prepara buscas na web.

Analise a mensagem do usuário e retorne um JSON:
{
    "query": "termos de busca otimizados",
    "is_news": true se o usuário quer NOTÍCIAS recentes, false caso contrário
}

Retorne apenas o JSON.`

type searchExtraction struct {
	Query  string `json:"query"`
	IsNews bool   `json:"is_news"`
}

// Handle processes one web search turn.
func (a *WebSearchAgent) Handle(ctx context.Context, st *model.ThreadState) {
	extraction := searchExtraction{Query: st.LastMessage()}
	if resp, err := a.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: searchQueryPrompt},
			{Role: "user", Content: st.LastMessage()},
		},
	}); err == nil {
		var parsed searchExtraction
		if decodeJSON(resp.Content, &parsed) == nil && parsed.Query != "" {
			extraction = parsed
		}
	} else {
		a.logger.Warn("search query extraction failed, using raw message", zap.Error(err))
	}

	var (
		results []capability.WebResult
		err     error
		header  string
	)
	if extraction.IsNews {
		results, err = a.web.SearchNews(ctx, extraction.Query, 5)
		header = "📰 **Notícias recentes:**"
	} else {
		results, err = a.web.Search(ctx, extraction.Query, 5)
		header = "🔍 **Resultados da busca:**"
	}
	if err != nil {
		a.logger.Error("web search failed", zap.String("query", extraction.Query), zap.Error(err))
		reply(st, "Desculpe, ocorreu um erro na busca. Por favor, tente novamente.")
		return
	}
	if len(results) == 0 {
		reply(st, fmt.Sprintf("Não encontrei resultados para \"%s\".", extraction.Query))
		return
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, r.Title)
		if r.Snippet != "" {
			fmt.Fprintf(&b, "   %s\n", r.Snippet)
		}
		if r.URL != "" {
			fmt.Fprintf(&b, "   🔗 %s\n", r.URL)
		}
		b.WriteString("\n")
	}
	reply(st, b.String())
}
