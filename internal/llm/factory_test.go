package llm

import (
	"strings"
	"testing"
	"time"

	"graft/internal/config"
)

func TestNewClient_ProviderSelection(t *testing.T) {
	tests := []struct {
		provider string
		want     Provider
	}{
		{"zai", ProviderZAI},
		{"openai", ProviderOpenAI},
		{"xai", ProviderXAI},
		{"anthropic", ProviderAnthropic},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			client, err := NewClient(config.LLMConfig{
				Provider: tt.provider,
				APIKey:   "test-key",
				Model:    "custom-model",
			}, 0)
			if err != nil {
				t.Fatalf("NewClient(%s): %v", tt.provider, err)
			}
			if client.ProviderName() != tt.want {
				t.Errorf("ProviderName = %s, want %s", client.ProviderName(), tt.want)
			}
			if client.GetModel() != "custom-model" {
				t.Errorf("Model override not applied, got %s", client.GetModel())
			}
		})
	}
}

func TestNewClient_DefaultModelsWhenUnset(t *testing.T) {
	client, err := NewClient(config.LLMConfig{Provider: "zai", APIKey: "k"}, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.GetModel() == "" {
		t.Error("Expected a default model")
	}
}

func TestNewClient_BaseURLAndTimeoutOverride(t *testing.T) {
	client, err := NewClient(config.LLMConfig{
		Provider: "zai",
		APIKey:   "k",
		BaseURL:  "http://localhost:8080/v1/",
	}, 42*time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	compat, ok := client.(*OpenAICompatClient)
	if !ok {
		t.Fatalf("Expected OpenAICompatClient, got %T", client)
	}
	if compat.baseURL != "http://localhost:8080/v1" {
		t.Errorf("Expected trailing slash trimmed, got %q", compat.baseURL)
	}
	if compat.httpClient.Timeout != 42*time.Second {
		t.Errorf("Expected 42s timeout, got %v", compat.httpClient.Timeout)
	}
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "zai"}, 0)
	if err == nil {
		t.Fatal("Expected error without API key")
	}
	if !strings.Contains(err.Error(), "no API key found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(config.LLMConfig{Provider: "dialup", APIKey: "k"}, 0)
	if err == nil {
		t.Fatal("Expected error for unknown provider")
	}
	if !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("Unexpected error: %v", err)
	}
}
