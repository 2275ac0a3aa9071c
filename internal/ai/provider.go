package ai

import (
	"context"
)

// Provider is an LLM backend that can complete prompts
type Provider interface {
	// Name returns the provider name (e.g., "ollama", "openai")
	Name() string

	// Complete performs a single, non-streaming completion
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// HealthCheck verifies provider connectivity and status
	HealthCheck(ctx context.Context) error

	// Close cleans up provider resources
	Close() error
}
