package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concierge-ai/assistant-platform/pkg/metrics"
)

type stubProvider struct {
	resp *CompletionResponse
	err  error
}

func (s stubProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	return s.resp, s.err
}

func (s stubProvider) Name() string { return "stub" }

func (s stubProvider) Models() []string { return nil }

func TestInstrumentRecordsTokenCounters(t *testing.T) {
	inBefore := testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "in"))
	outBefore := testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "out"))

	client := Instrument(stubProvider{resp: &CompletionResponse{
		Content:   "oi",
		TokensIn:  12,
		TokensOut: 7,
	}})

	resp, err := client.Complete(context.Background(), &CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "oi", resp.Content)

	assert.Equal(t, inBefore+12, testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "in")))
	assert.Equal(t, outBefore+7, testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "out")))
}

func TestInstrumentPassesThroughErrors(t *testing.T) {
	inBefore := testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "in"))

	client := Instrument(stubProvider{err: errors.New("provider down")})

	_, err := client.Complete(context.Background(), &CompletionRequest{})
	require.Error(t, err)

	// A failed call records no tokens.
	assert.Equal(t, inBefore, testutil.ToFloat64(metrics.LLMTokensTotal.WithLabelValues("stub", "in")))
}
