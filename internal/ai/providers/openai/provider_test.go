package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yildizm/feedcluster/internal/ai"
)

const testAPIKey = "test-api-key"

func testProvider(t *testing.T, url string) *Provider {
	t.Helper()
	config := DefaultConfig()
	config.APIKey = testAPIKey
	config.BaseURL = url
	provider, err := New(config)
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return provider
}

func TestProvider_New(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: true, // missing API key
		},
		{
			name: "valid config",
			config: &Config{
				APIKey:             testAPIKey,
				BaseURL:            DefaultBaseURL,
				DefaultModel:       DefaultModel,
				MaxTokens:          DefaultMaxTokens,
				DefaultTemperature: DefaultTemperature,
				Timeout:            DefaultTimeout,
			},
			wantErr: false,
		},
		{
			name: "invalid base URL",
			config: &Config{
				APIKey:  testAPIKey,
				BaseURL: "http://[::1]:namedport",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("Expected path '/v1/chat/completions', got '%s'", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer "+testAPIKey {
			t.Errorf("Unexpected Authorization header %q", got)
		}

		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("Unexpected messages: %+v", req.Messages)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("Expected json_object response format, got %+v", req.ResponseFormat)
		}
		if req.Model != DefaultModel {
			t.Errorf("Expected default model, got %s", req.Model)
		}

		_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID:    "chatcmpl-1",
			Model: req.Model,
			Choices: []ChatCompletionChoice{{
				Message:      ChatMessage{Role: "assistant", Content: `{"theme":"Billing"}`},
				FinishReason: "stop",
			}},
			Usage: ChatCompletionUsage{PromptTokens: 20, CompletionTokens: 4, TotalTokens: 24},
		})
	}))
	defer server.Close()

	provider := testProvider(t, server.URL)
	resp, err := provider.Complete(context.Background(), &ai.CompletionRequest{
		SystemPrompt: "Answer in JSON",
		Prompt:       "Name the theme",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != `{"theme":"Billing"}` || resp.FinishReason != "stop" {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 24 {
		t.Errorf("Expected 24 tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestProvider_CompleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantType ai.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, ai.ErrTypeAuthentication},
		{"rate limited", http.StatusTooManyRequests, ai.ErrTypeRateLimit},
		{"server error", http.StatusInternalServerError, ai.ErrTypeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(ErrorResponse{Error: ErrorDetail{Message: "nope"}})
			}))
			defer server.Close()

			_, err := testProvider(t, server.URL).Complete(context.Background(), &ai.CompletionRequest{Prompt: "x"})
			pe, ok := err.(*ai.ProviderError)
			if !ok {
				t.Fatalf("Expected *ai.ProviderError, got %T (%v)", err, err)
			}
			if pe.Type != tt.wantType || pe.StatusCode != tt.status || pe.Message != "nope" {
				t.Errorf("Unexpected error: %+v", pe)
			}
		})
	}
}

func TestProvider_CompleteNilRequest(t *testing.T) {
	provider := testProvider(t, DefaultBaseURL)
	if _, err := provider.Complete(context.Background(), nil); err == nil {
		t.Error("Expected error for nil request")
	}
}

func TestProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("Expected path '/v1/models', got '%s'", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	if err := testProvider(t, server.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("Expected healthy provider, got %v", err)
	}
}
