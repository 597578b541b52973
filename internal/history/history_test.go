package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/model"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
)

type stubLLM struct {
	content string
	err     error
	lastReq *llm.CompletionRequest
}

func (s *stubLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func (s *stubLLM) Name() string     { return "stub" }
func (s *stubLLM) Models() []string { return nil }

func msg(role model.Role, content string) model.Message {
	return model.Message{ID: "m", Role: role, Content: content}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(nil))

	// 8 chars -> 2 tokens + 4 overhead.
	assert.Equal(t, 6, EstimateTokens([]model.Message{msg(model.RoleUser, "12345678")}))

	// Two messages accumulate.
	msgs := []model.Message{
		msg(model.RoleUser, "12345678"),
		msg(model.RoleAssistant, "1234"),
	}
	assert.Equal(t, 11, EstimateTokens(msgs))
}

// Appending never decreases the estimate.
func TestEstimateTokensMonotonic(t *testing.T) {
	msgs := []model.Message{}
	prev := 0
	for i := 0; i < 20; i++ {
		msgs = append(msgs, msg(model.RoleUser, strings.Repeat("a", i)))
		cur := EstimateTokens(msgs)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestShouldCompress(t *testing.T) {
	small := []model.Message{msg(model.RoleUser, "oi")}
	assert.False(t, ShouldCompress(small, 2000))

	big := []model.Message{msg(model.RoleUser, strings.Repeat("a", 10000))}
	assert.True(t, ShouldCompress(big, 2000))
}

func TestCompressKeepsRecentWindow(t *testing.T) {
	stub := &stubLLM{content: "resumo gerado"}
	s := NewSummarizer(stub, logger.NewNop())

	var msgs []model.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg(model.RoleUser, "mensagem"))
	}

	out, summary := s.Compress(context.Background(), msgs, "", 4)

	require.Len(t, out, 5)
	assert.True(t, out[0].Summary)
	assert.Equal(t, model.RoleSystem, out[0].Role)
	assert.Contains(t, out[0].Content, "Resumo da conversa anterior")
	assert.Contains(t, out[0].Content, "resumo gerado")
	assert.Equal(t, "resumo gerado", summary)

	// The retained window is the original tail, untouched.
	assert.Equal(t, msgs[6:], out[1:])
}

func TestCompressShortHistoryUnchanged(t *testing.T) {
	stub := &stubLLM{content: "resumo"}
	s := NewSummarizer(stub, logger.NewNop())

	msgs := []model.Message{msg(model.RoleUser, "oi"), msg(model.RoleAssistant, "olá")}
	out, summary := s.Compress(context.Background(), msgs, "anterior", 4)

	assert.Equal(t, msgs, out)
	assert.Equal(t, "anterior", summary)
	assert.Nil(t, stub.lastReq, "no provider call for a history inside the window")
}

// Summarization failure degrades to no compression this turn.
func TestCompressFailureReturnsInputUnchanged(t *testing.T) {
	stub := &stubLLM{err: errors.New("provider down")}
	s := NewSummarizer(stub, logger.NewNop())

	var msgs []model.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, msg(model.RoleUser, "mensagem"))
	}

	out, summary := s.Compress(context.Background(), msgs, "resumo anterior", 4)

	assert.Equal(t, msgs, out)
	assert.Equal(t, "resumo anterior", summary)
}

// An existing summary is folded into the prompt so compression stays
// monotonic across repeated rounds.
func TestCompressFeedsExistingSummary(t *testing.T) {
	stub := &stubLLM{content: "resumo atualizado"}
	s := NewSummarizer(stub, logger.NewNop())

	var msgs []model.Message
	for i := 0; i < 6; i++ {
		msgs = append(msgs, msg(model.RoleUser, "mensagem nova"))
	}

	_, summary := s.Compress(context.Background(), msgs, "resumo antigo", 2)

	assert.Equal(t, "resumo atualizado", summary)
	require.NotNil(t, stub.lastReq)
	userPrompt := stub.lastReq.Messages[1].Content
	assert.Contains(t, userPrompt, "resumo antigo")
	assert.Contains(t, userPrompt, "mensagem nova")
}

func TestCompressEmptySummaryFromProviderIsFailure(t *testing.T) {
	stub := &stubLLM{content: "   "}
	s := NewSummarizer(stub, logger.NewNop())

	var msgs []model.Message
	for i := 0; i < 6; i++ {
		msgs = append(msgs, msg(model.RoleUser, "mensagem"))
	}

	out, summary := s.Compress(context.Background(), msgs, "anterior", 2)
	assert.Equal(t, msgs, out)
	assert.Equal(t, "anterior", summary)
}
