// Package llm provides the model clients driving the edit loop. Z.AI,
// OpenAI and xAI share the /chat/completions wire format and are served
// by one client; Anthropic and Gemini have their own.
package llm

import (
	"context"
	"time"
)

const defaultSystemPrompt = "You are graft, a code editing assistant. Respond in English. Be concise. Ground answers only in provided file content; do not claim to browse the filesystem or network."

// defaultMaxTokens bounds completion length. Edit replies carry whole
// replacement blocks, so this is deliberately generous.
const defaultMaxTokens = 8192

// defaultTemperature keeps edit output deterministic.
const defaultTemperature = 0.1

// maxRetries bounds the 429 retry loop (backoff 1s, 2s, 4s).
const maxRetries = 3

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderZAI       Provider = "zai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderXAI       Provider = "xai"
)

// Config holds connection settings shared by all providers.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	MinSpacing       time.Duration // minimum gap between requests
	RetryBackoffBase time.Duration // first 429 retry delay, doubling per attempt
}

// Reply is a completed model response with its token accounting.
type Reply struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens returns the combined prompt and completion token count.
func (r Reply) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Client is the interface all providers implement.
type Client interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (Reply, error)
	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (Reply, error)
	// SetModel changes the model used for completions.
	SetModel(model string)
	// GetModel returns the current model.
	GetModel() string
	// ProviderName returns the backend identifier used for usage attribution.
	ProviderName() Provider
}

// StreamingClient is implemented by providers that can stream deltas.
type StreamingClient interface {
	Client
	// CompleteStream sends a prompt and returns channels of incremental
	// content deltas. Both channels close when the stream ends.
	CompleteStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error)
}

// backoffDelay returns the sleep before retry attempt i (1-based):
// base, 2*base, 4*base.
func backoffDelay(base time.Duration, i int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	return base << uint(i-1)
}
