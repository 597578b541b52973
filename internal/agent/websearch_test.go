package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

func TestWebSearchPlain(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"query": "cotação dólar hoje", "is_news": false}`}}
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) {
			assert.Equal(t, "cotação dólar hoje", query)
			assert.Equal(t, 5, k)
			return []capability.WebResult{
				{Title: "Dólar hoje", Snippet: "R$ 5,10", URL: "https://example.com/dolar"},
			}, nil
		},
	}
	a := NewWebSearchAgent(fake, web, logger.NewNop())

	st := threadWithUserMessage("quanto tá o dólar?")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "Resultados da busca")
	assert.Contains(t, st.Response, "Dólar hoje")
	assert.Contains(t, st.Response, "https://example.com/dolar")
}

func TestWebSearchNews(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"query": "eleições", "is_news": true}`}}
	web := &fakeWeb{
		news: func(query string, k int) ([]capability.WebResult, error) {
			return []capability.WebResult{{Title: "Última hora", Snippet: "apuração em andamento"}}, nil
		},
	}
	a := NewWebSearchAgent(fake, web, logger.NewNop())

	st := threadWithUserMessage("notícias das eleições")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "Notícias recentes")
	assert.Contains(t, st.Response, "Última hora")
}

// Extraction failure searches with the raw message instead of giving up.
func TestWebSearchExtractionFailureUsesRawMessage(t *testing.T) {
	fake := &fakeLLM{err: errors.New("provider down")}
	var searched string
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) {
			searched = query
			return []capability.WebResult{{Title: "Algo"}}, nil
		},
	}
	a := NewWebSearchAgent(fake, web, logger.NewNop())

	st := threadWithUserMessage("busca isso na internet")
	a.Handle(context.Background(), st)

	assert.Equal(t, "busca isso na internet", searched)
}

func TestWebSearchNoResults(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"query": "xyzzy", "is_news": false}`}}
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) { return nil, nil },
	}
	a := NewWebSearchAgent(fake, web, logger.NewNop())

	st := threadWithUserMessage("procura xyzzy")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, `Não encontrei resultados para "xyzzy"`)
}

func TestWebSearchBackendError(t *testing.T) {
	fake := &fakeLLM{replies: []string{`{"query": "algo", "is_news": false}`}}
	web := &fakeWeb{
		search: func(query string, k int) ([]capability.WebResult, error) {
			return nil, errors.New("quota exceeded")
		},
	}
	a := NewWebSearchAgent(fake, web, logger.NewNop())

	st := threadWithUserMessage("procura algo")
	a.Handle(context.Background(), st)

	assert.Contains(t, st.Response, "erro na busca")
}
