package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

type fakeDocs struct {
	search func(query string, k int) ([]string, error)
}

func (f *fakeDocs) Search(ctx context.Context, query string, k int) ([]string, error) {
	return f.search(query, k)
}

type fakeWeb struct {
	search func(query string, k int) ([]capability.WebResult, error)
	news   func(query string, k int) ([]capability.WebResult, error)
}

func (f *fakeWeb) Search(ctx context.Context, query string, k int) ([]capability.WebResult, error) {
	if f.search == nil {
		return nil, errNotScripted
	}
	return f.search(query, k)
}

func (f *fakeWeb) SearchNews(ctx context.Context, query string, k int) ([]capability.WebResult, error) {
	if f.news == nil {
		return nil, errNotScripted
	}
	return f.news(query, k)
}

func TestKnowledgeAnswersFromDocuments(t *testing.T) {
	docs := &fakeDocs{
		search: func(query string, k int) ([]string, error) {
			assert.Equal(t, 3, k)
			return []string{"A política de férias prevê 30 dias por ano."}, nil
		},
	}
	fake := &fakeLLM{respond: func(req *llm.CompletionRequest) (string, error) {
		assert.Contains(t, req.Messages[0].Content, "política de férias")
		return "Você tem direito a 30 dias de férias por ano.", nil
	}}
	a := NewKnowledgeAgent(fake, docs, &fakeWeb{}, logger.NewNop())

	st := threadWithUserMessage("quantos dias de férias eu tenho?")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "30 dias de férias")
	assert.NotContains(t, st.Response, "pesquisei na web")
}

// Chunks that only say "I don't know" count as a miss and trigger the
// web fallback.
func TestKnowledgeGenericChunksFallBackToWeb(t *testing.T) {
	docs := &fakeDocs{
		search: func(query string, k int) ([]string, error) {
			return []string{"Não tenho informações sobre isso."}, nil
		},
	}
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) {
			return []capability.WebResult{{Title: "Resultado", Snippet: "conteúdo relevante"}}, nil
		},
	}
	fake := &fakeLLM{respond: func(req *llm.CompletionRequest) (string, error) {
		if strings.Contains(req.Messages[0].Content, "conteúdo relevante") {
			return "Resposta baseada na web.", nil
		}
		return "", errors.New("unexpected call")
	}}
	a := NewKnowledgeAgent(fake, docs, web, logger.NewNop())

	st := threadWithUserMessage("pergunta fora da base")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "pesquisei na web")
	assert.Contains(t, st.Response, "Resposta baseada na web")
}

func TestKnowledgeDocSearchErrorFallsBackToWeb(t *testing.T) {
	docs := &fakeDocs{
		search: func(query string, k int) ([]string, error) {
			return nil, errors.New("index offline")
		},
	}
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) {
			return []capability.WebResult{{Title: "Alternativa", Snippet: "achado na web"}}, nil
		},
	}
	fake := &fakeLLM{replies: []string{"Resposta da web."}}
	a := NewKnowledgeAgent(fake, docs, web, logger.NewNop())

	st := threadWithUserMessage("qualquer pergunta")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "Resposta da web")
}

func TestKnowledgeNothingAnywhere(t *testing.T) {
	docs := &fakeDocs{search: func(query string, k int) ([]string, error) { return nil, nil }}
	web := &fakeWeb{search: func(query string, k int) ([]capability.WebResult, error) { return nil, nil }}
	a := NewKnowledgeAgent(&fakeLLM{}, docs, web, logger.NewNop())

	st := threadWithUserMessage("pergunta sem resposta")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "não encontrei informações")
}

func TestFilterGeneric(t *testing.T) {
	in := []string{
		"Conteúdo real.",
		"Não sei responder isso.",
		"   ",
		"Sem informações disponíveis.",
	}
	out := filterGeneric(in)
	assert.Equal(t, []string{"Conteúdo real."}, out)
}
