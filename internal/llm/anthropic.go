package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"graft/internal/logging"
	"graft/internal/usage"
)

// AnthropicClient implements Client for the Anthropic Messages API.
type AnthropicClient struct {
	apiKey           string
	baseURL          string
	model            string
	httpClient       *http.Client
	retryBackoffBase time.Duration
	mu               sync.Mutex
	lastRequest      time.Time
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		BaseURL:    "https://api.anthropic.com/v1",
		Model:      "claude-sonnet-4-5-20250514",
		Timeout:    10 * time.Minute, // Large context models need extended timeout
		MinSpacing: 100 * time.Millisecond,
	}
}

// NewAnthropicClient creates a new Anthropic client.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return NewAnthropicClientWithConfig(DefaultAnthropicConfig(apiKey))
}

// NewAnthropicClientWithConfig creates a new Anthropic client with custom config.
func NewAnthropicClientWithConfig(config Config) *AnthropicClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute
	}
	if config.RetryBackoffBase == 0 {
		config.RetryBackoffBase = time.Second
	}
	return &AnthropicClient{
		apiKey:           config.APIKey,
		baseURL:          strings.TrimSuffix(config.BaseURL, "/"),
		model:            config.Model,
		retryBackoffBase: config.RetryBackoffBase,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Complete sends a prompt and returns the completion.
func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (Reply, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *AnthropicClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (Reply, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.LLMDebug("[anthropic] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.model, len(systemPrompt), len(userPrompt))

	if c.apiKey == "" {
		logging.LLMError("[anthropic] CompleteWithSystem: API key not configured")
		return Reply{}, fmt.Errorf("API key not configured")
	}

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

	reqBody := AnthropicRequest{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Messages: []AnthropicMessage{
			{Role: "user", Content: []AnthropicContentBlock{{Type: "text", Text: userPrompt}}},
		},
		Temperature: defaultTemperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for rate limits and transient errors
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(backoffDelay(c.retryBackoffBase, i))
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/messages", bytes.NewReader(jsonData))
		if err != nil {
			return Reply{}, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			logging.LLMError("[anthropic] CompleteWithSystem: API returned status %d", resp.StatusCode)
			return Reply{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var anthropicResp AnthropicResponse
		if err := json.Unmarshal(body, &anthropicResp); err != nil {
			return Reply{}, fmt.Errorf("failed to parse response: %w", err)
		}

		if anthropicResp.Error != nil {
			return Reply{}, fmt.Errorf("API error: %s", anthropicResp.Error.Message)
		}

		if len(anthropicResp.Content) == 0 {
			logging.LLMError("[anthropic] CompleteWithSystem: no completion returned")
			return Reply{}, fmt.Errorf("no completion returned")
		}

		var result strings.Builder
		for _, content := range anthropicResp.Content {
			if content.Type == "text" {
				result.WriteString(content.Text)
			}
		}

		if tracker := usage.FromContext(ctx); tracker != nil {
			tracker.Track(ctx, c.model, string(ProviderAnthropic), anthropicResp.Usage.InputTokens, anthropicResp.Usage.OutputTokens, "chat")
		}

		reply := Reply{
			Text:             strings.TrimSpace(result.String()),
			Model:            c.model,
			PromptTokens:     anthropicResp.Usage.InputTokens,
			CompletionTokens: anthropicResp.Usage.OutputTokens,
		}
		logging.Audit().LLMCall(c.model, reply.TotalTokens(), time.Since(startTime).Milliseconds(), true, "")
		logging.LLM("[anthropic] CompleteWithSystem: completed in %v response_len=%d", time.Since(startTime), len(reply.Text))
		return reply, nil
	}

	logging.LLMError("[anthropic] CompleteWithSystem: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	logging.Audit().LLMCall(c.model, 0, time.Since(startTime).Milliseconds(), false, fmt.Sprint(lastErr))
	return Reply{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// SetModel changes the model used for completions.
func (c *AnthropicClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *AnthropicClient) GetModel() string {
	return c.model
}

// ProviderName returns the backend identifier.
func (c *AnthropicClient) ProviderName() Provider {
	return ProviderAnthropic
}
