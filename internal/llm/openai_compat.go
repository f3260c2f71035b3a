package llm

import (
	"bufio"
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

// OpenAICompatClient implements Client for any /chat/completions-style
// endpoint. Z.AI, OpenAI and xAI differ only in base URL, default model
// and request pacing.
type OpenAICompatClient struct {
	provider         Provider
	apiKey           string
	baseURL          string
	model            string
	httpClient       *http.Client
	minSpacing       time.Duration
	retryBackoffBase time.Duration
	mu               sync.Mutex
	lastRequest      time.Time
}

// DefaultZAIConfig returns sensible defaults for the Z.AI coding endpoint.
func DefaultZAIConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		BaseURL:    "https://api.z.ai/api/coding/paas/v4",
		Model:      "glm-4.6",
		Timeout:    10 * time.Minute, // Large context models need extended timeout
		MinSpacing: 600 * time.Millisecond,
	}
}

// DefaultOpenAIConfig returns sensible defaults for the OpenAI API.
func DefaultOpenAIConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		BaseURL:    "https://api.openai.com/v1",
		Model:      "gpt-4o",
		Timeout:    10 * time.Minute,
		MinSpacing: 100 * time.Millisecond,
	}
}

// DefaultXAIConfig returns sensible defaults for the xAI (Grok) API.
func DefaultXAIConfig(apiKey string) Config {
	return Config{
		APIKey:     apiKey,
		BaseURL:    "https://api.x.ai/v1",
		Model:      "grok-2-latest",
		Timeout:    10 * time.Minute,
		MinSpacing: 100 * time.Millisecond,
	}
}

// NewZAIClient creates a Z.AI client with default config.
func NewZAIClient(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient(ProviderZAI, DefaultZAIConfig(apiKey))
}

// NewOpenAIClient creates an OpenAI client with default config.
func NewOpenAIClient(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient(ProviderOpenAI, DefaultOpenAIConfig(apiKey))
}

// NewXAIClient creates an xAI client with default config.
func NewXAIClient(apiKey string) *OpenAICompatClient {
	return NewOpenAICompatClient(ProviderXAI, DefaultXAIConfig(apiKey))
}

// NewOpenAICompatClient creates a client for the given provider with
// custom config. Zero config fields fall back to defaults.
func NewOpenAICompatClient(provider Provider, config Config) *OpenAICompatClient {
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Minute
	}
	if config.RetryBackoffBase == 0 {
		config.RetryBackoffBase = time.Second
	}
	return &OpenAICompatClient{
		provider:         provider,
		apiKey:           config.APIKey,
		baseURL:          strings.TrimSuffix(config.BaseURL, "/"),
		model:            config.Model,
		minSpacing:       config.MinSpacing,
		retryBackoffBase: config.RetryBackoffBase,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Complete sends a prompt and returns the completion.
func (c *OpenAICompatClient) Complete(ctx context.Context, prompt string) (Reply, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message.
func (c *OpenAICompatClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (Reply, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.LLMDebug("[%s] CompleteWithSystem: model=%s system_len=%d user_len=%d", c.provider, c.model, len(systemPrompt), len(userPrompt))

	if c.apiKey == "" {
		logging.LLMError("[%s] CompleteWithSystem: API key not configured", c.provider)
		return Reply{}, fmt.Errorf("API key not configured")
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	c.pace()

	reqBody := ChatRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   defaultMaxTokens,
		Temperature: defaultTemperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry loop for 429 errors
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(backoffDelay(c.retryBackoffBase, i))
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return Reply{}, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

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
			return Reply{}, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var chatResp ChatResponse
		if err := json.Unmarshal(body, &chatResp); err != nil {
			return Reply{}, fmt.Errorf("failed to parse response: %w", err)
		}

		if chatResp.Error != nil {
			return Reply{}, fmt.Errorf("API error: %s", chatResp.Error.Message)
		}

		if len(chatResp.Choices) == 0 {
			logging.LLMError("[%s] CompleteWithSystem: no completion returned", c.provider)
			return Reply{}, fmt.Errorf("no completion returned")
		}

		// Track usage if a tracker rides the context
		if tracker := usage.FromContext(ctx); tracker != nil {
			tracker.Track(ctx, c.model, string(c.provider), chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, "chat")
		}

		reply := Reply{
			Text:             strings.TrimSpace(chatResp.Choices[0].Message.Content),
			Model:            c.model,
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
		}
		logging.Audit().LLMCall(c.model, reply.TotalTokens(), time.Since(startTime).Milliseconds(), true, "")
		logging.LLM("[%s] CompleteWithSystem: completed in %v response_len=%d", c.provider, time.Since(startTime), len(reply.Text))
		return reply, nil
	}

	logging.LLMError("[%s] CompleteWithSystem: max retries exceeded after %v: %v", c.provider, time.Since(startTime), lastErr)
	logging.Audit().LLMCall(c.model, 0, time.Since(startTime).Milliseconds(), false, fmt.Sprint(lastErr))
	return Reply{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// CompleteStream sends a prompt with streaming enabled and returns
// channels of incremental content deltas.
func (c *OpenAICompatClient) CompleteStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, <-chan error) {
	contentChan := make(chan string, 100)
	errorChan := make(chan error, 1)

	logging.LLMDebug("[%s] CompleteStream: starting model=%s", c.provider, c.model)

	go func() {
		defer close(contentChan)
		defer close(errorChan)

		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
			defer cancel()
		}

		startTime := time.Now()

		if c.apiKey == "" {
			logging.LLMError("[%s] CompleteStream: API key not configured", c.provider)
			errorChan <- fmt.Errorf("API key not configured")
			return
		}

		if strings.TrimSpace(systemPrompt) == "" {
			systemPrompt = defaultSystemPrompt
		}

		c.pace()

		reqBody := ChatRequest{
			Model: c.model,
			Messages: []ChatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: userPrompt},
			},
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
			Stream:      true,
			StreamOptions: &ChatStreamOptions{
				IncludeUsage: true,
			},
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			errorChan <- fmt.Errorf("failed to marshal request: %w", err)
			return
		}

		// Retry loop covers the initial request only; once the stream
		// starts, errors surface on errorChan.
		var lastErr error

		for attempt := 0; attempt <= maxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(backoffDelay(c.retryBackoffBase, attempt))
			}

			req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
			if err != nil {
				errorChan <- fmt.Errorf("failed to create request: %w", err)
				return
			}

			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
			req.Header.Set("Accept", "text/event-stream")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = fmt.Errorf("request failed: %w", err)
				continue
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				lastErr = fmt.Errorf("rate limit exceeded (429): %s", strings.TrimSpace(string(body)))
				continue
			}

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				errorChan <- fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
				return
			}

			c.consumeStream(ctx, resp, contentChan, errorChan, startTime)
			return
		}

		logging.LLMError("[%s] CompleteStream: max retries exceeded after %v: %v", c.provider, time.Since(startTime), lastErr)
		errorChan <- fmt.Errorf("max retries exceeded: %w", lastErr)
	}()

	return contentChan, errorChan
}

// consumeStream reads SSE chunks from resp and forwards content deltas.
// Closing the body force-unblocks the scanner on cancellation.
func (c *OpenAICompatClient) consumeStream(ctx context.Context, resp *http.Response, contentChan chan<- string, errorChan chan<- error, startTime time.Time) {
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var promptTokens, completionTokens int

	scanDone := make(chan struct{})
	scanErrChan := make(chan error, 1)

	go func() {
		defer close(scanDone)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var chunk ChatResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				scanErrChan <- fmt.Errorf("API error: %s", chunk.Error.Message)
				return
			}
			if chunk.Usage.TotalTokens > 0 {
				promptTokens = chunk.Usage.PromptTokens
				completionTokens = chunk.Usage.CompletionTokens
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta != nil {
				delta := chunk.Choices[0].Delta.Content
				if delta != "" {
					select {
					case contentChan <- delta:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := scanner.Err(); err != nil {
			scanErrChan <- err
		}
	}()

	select {
	case <-scanDone:
		select {
		case err := <-scanErrChan:
			logging.LLMError("[%s] CompleteStream: stream error after %v: %v", c.provider, time.Since(startTime), err)
			errorChan <- fmt.Errorf("stream error: %w", err)
		default:
			if tracker := usage.FromContext(ctx); tracker != nil && promptTokens+completionTokens > 0 {
				tracker.Track(ctx, c.model, string(c.provider), promptTokens, completionTokens, "chat")
			}
			logging.LLM("[%s] CompleteStream: completed in %v", c.provider, time.Since(startTime))
		}
	case <-ctx.Done():
		resp.Body.Close()
		<-scanDone
		logging.LLMWarn("[%s] CompleteStream: cancelled after %v", c.provider, time.Since(startTime))
		errorChan <- ctx.Err()
	}
}

// pace enforces a minimum gap between requests.
func (c *OpenAICompatClient) pace() {
	if c.minSpacing <= 0 {
		return
	}
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minSpacing {
		time.Sleep(c.minSpacing - elapsed)
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()
}

// SetModel changes the model used for completions.
func (c *OpenAICompatClient) SetModel(model string) {
	c.model = model
}

// GetModel returns the current model.
func (c *OpenAICompatClient) GetModel() string {
	return c.model
}

// ProviderName returns the backend identifier.
func (c *OpenAICompatClient) ProviderName() Provider {
	return c.provider
}
