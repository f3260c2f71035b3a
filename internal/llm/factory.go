package llm

import (
	"fmt"
	"time"

	"graft/internal/config"
	"graft/internal/logging"
)

// NewClient builds the provider client described by cfg. Model, base URL
// and timeout overrides apply on top of provider defaults.
func NewClient(cfg config.LLMConfig, timeout time.Duration) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key found; set one of: ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, XAI_API_KEY, ZAI_API_KEY")
	}

	switch Provider(cfg.Provider) {
	case ProviderZAI:
		return NewOpenAICompatClient(ProviderZAI, overlay(DefaultZAIConfig(cfg.APIKey), cfg, timeout)), nil
	case ProviderOpenAI:
		return NewOpenAICompatClient(ProviderOpenAI, overlay(DefaultOpenAIConfig(cfg.APIKey), cfg, timeout)), nil
	case ProviderXAI:
		return NewOpenAICompatClient(ProviderXAI, overlay(DefaultXAIConfig(cfg.APIKey), cfg, timeout)), nil
	case ProviderAnthropic:
		return NewAnthropicClientWithConfig(overlay(DefaultAnthropicConfig(cfg.APIKey), cfg, timeout)), nil
	case ProviderGemini:
		// The GenAI SDK manages its own endpoint; only the model carries over.
		return NewGeminiClient(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// NewClientFromConfig builds the client from a fully loaded config.
func NewClientFromConfig(cfg *config.Config) (Client, error) {
	client, err := NewClient(cfg.LLM, cfg.GetLLMTimeout())
	if err != nil {
		return nil, err
	}
	logging.LLM("Client ready: provider=%s model=%s", client.ProviderName(), client.GetModel())
	return client, nil
}

// overlay applies config overrides on top of provider defaults.
func overlay(base Config, cfg config.LLMConfig, timeout time.Duration) Config {
	if cfg.BaseURL != "" {
		base.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		base.Model = cfg.Model
	}
	if timeout > 0 {
		base.Timeout = timeout
	}
	return base
}
