// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"time"

	"github.com/concierge-ai/assistant-platform/pkg/metrics"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers. The dispatcher and agents treat
// it as an opaque, possibly-failing capability: a prompt in, text out.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string

	// Models returns available models.
	Models() []string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// NewClient creates a new LLM client based on provider. The returned client
// records call duration and token counters for every completion.
func NewClient(provider Provider, apiKey string) (Client, error) {
	var (
		client Client
		err    error
	)
	switch provider {
	case ProviderAnthropic:
		client, err = NewAnthropicClient(apiKey)
	default:
		client, err = NewOpenAIClient(apiKey)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(client), nil
}

// Instrument wraps a provider so every completion is recorded in the LLM call
// metrics, labeled by provider name and outcome.
func Instrument(c Client) Client {
	return instrumented{c}
}

type instrumented struct {
	Client
}

func (c instrumented) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	resp, err := c.Client.Complete(ctx, req)

	status := "success"
	tokensIn, tokensOut := 0, 0
	if err != nil {
		status = "error"
	} else {
		tokensIn, tokensOut = resp.TokensIn, resp.TokensOut
	}
	metrics.RecordLLMCall(c.Name(), status, time.Since(start).Seconds(), tokensIn, tokensOut)

	return resp, err
}
