package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"graft/internal/logging"
	"graft/internal/usage"
)

// GeminiClient implements Client on the Google GenAI SDK.
type GeminiClient struct {
	client           *genai.Client
	model            string
	retryBackoffBase time.Duration
	mu               sync.Mutex
	lastRequest      time.Time
}

// NewGeminiClient creates a new Gemini client. An empty model selects
// the flash default.
func NewGeminiClient(apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	if model == "" {
		model = "gemini-3-flash-preview"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:           client,
		model:            model,
		retryBackoffBase: time.Second,
	}, nil
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (Reply, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (Reply, error) {
	startTime := time.Now()
	logging.LLMDebug("[gemini] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](defaultTemperature),
	}

	// Retry loop for rate limits
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(backoffDelay(c.retryBackoffBase, i))
		}

		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			lastErr = fmt.Errorf("GenAI request failed: %w", err)
			if isRateLimited(err) {
				continue
			}
			logging.LLMError("[gemini] CompleteWithSystem: %v", lastErr)
			logging.Audit().LLMCall(c.model, 0, time.Since(startTime).Milliseconds(), false, fmt.Sprint(lastErr))
			return Reply{}, lastErr
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			logging.LLMError("[gemini] CompleteWithSystem: no completion returned")
			return Reply{}, fmt.Errorf("no completion returned")
		}

		var promptTokens, completionTokens int
		if resp.UsageMetadata != nil {
			promptTokens = int(resp.UsageMetadata.PromptTokenCount)
			completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		}

		if tracker := usage.FromContext(ctx); tracker != nil {
			tracker.Track(ctx, c.model, string(ProviderGemini), promptTokens, completionTokens, "chat")
		}

		reply := Reply{
			Text:             text,
			Model:            c.model,
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
		}
		logging.Audit().LLMCall(c.model, reply.TotalTokens(), time.Since(startTime).Milliseconds(), true, "")
		logging.LLM("[gemini] CompleteWithSystem: completed in %v response_len=%d", time.Since(startTime), len(text))
		return reply, nil
	}

	logging.LLMError("[gemini] CompleteWithSystem: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	logging.Audit().LLMCall(c.model, 0, time.Since(startTime).Milliseconds(), false, fmt.Sprint(lastErr))
	return Reply{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// isRateLimited reports whether err looks like a quota rejection.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// SetModel changes the model used for completions.
func (c *GeminiClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// ProviderName returns the backend identifier.
func (c *GeminiClient) ProviderName() Provider {
	return ProviderGemini
}

// Close is a no-op; the SDK client holds no resources that need
// explicit release.
func (c *GeminiClient) Close() error {
	return nil
}
