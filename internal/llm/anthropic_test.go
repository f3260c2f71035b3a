package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnthropicClient_Complete_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("Expected /messages, got %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Error("Expected x-api-key header")
		}
		if r.Header.Get("anthropic-version") != "2023-06-01" {
			t.Error("Expected anthropic-version header")
		}

		var req AnthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.System == "" {
			t.Error("Expected a system prompt")
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("Expected single user message, got %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"id": "msg_1",
			"content": [
				{"type": "text", "text": "The answer"},
				{"type": "text", "text": " is 42"}
			],
			"usage": {"input_tokens": 7, "output_tokens": 3}
		}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	reply, err := client.Complete(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply.Text != "The answer is 42" {
		t.Errorf("Expected concatenated text blocks, got %q", reply.Text)
	}
	if reply.PromptTokens != 7 || reply.CompletionTokens != 3 {
		t.Errorf("Expected usage 7/3, got %d/%d", reply.PromptTokens, reply.CompletionTokens)
	}
}

func TestAnthropicClient_RetryOn429(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}], "usage": {"input_tokens": 1, "output_tokens": 1}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL
	client.retryBackoffBase = time.Millisecond

	reply, err := client.Complete(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts)
	}
	if reply.Text != "ok" {
		t.Errorf("Unexpected response: %q", reply.Text)
	}
}

func TestAnthropicClient_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "prompt too long"}}`))
	}))
	defer server.Close()

	client := NewAnthropicClient("test-key")
	client.baseURL = server.URL

	_, err := client.Complete(context.Background(), "Hello")
	if err == nil {
		t.Fatal("Expected API error")
	}
	if !strings.Contains(err.Error(), "prompt too long") {
		t.Errorf("Expected error message passthrough, got: %v", err)
	}
}

func TestAnthropicClient_NoAPIKey(t *testing.T) {
	client := NewAnthropicClient("")

	_, err := client.Complete(context.Background(), "Hello")
	if err == nil {
		t.Fatal("Expected error without API key")
	}
	if !strings.Contains(err.Error(), "API key not configured") {
		t.Errorf("Unexpected error: %v", err)
	}
}
