package cli

import (
	"fmt"
	"strings"

	"github.com/yildizm/feedcluster/internal/ai"
	"github.com/yildizm/feedcluster/internal/ai/providers/ollama"
	"github.com/yildizm/feedcluster/internal/ai/providers/openai"
	"github.com/yildizm/feedcluster/internal/config"
)

// createAIProvider creates an AI provider based on configuration.
func createAIProvider(aiConfig *config.AIConfig) (ai.Provider, error) {
	switch strings.ToLower(aiConfig.Provider) {
	case "openai":
		return createOpenAIProvider(aiConfig)
	case "", "ollama":
		return createOllamaProvider(aiConfig)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", aiConfig.Provider)
	}
}

// createOpenAIProvider creates an OpenAI provider with configuration.
// Endpoint and model values still pointing at the Ollama defaults are
// replaced with the OpenAI ones.
func createOpenAIProvider(aiConfig *config.AIConfig) (ai.Provider, error) {
	defaults := config.DefaultConfig().AI
	openaiConfig := openai.DefaultConfig()
	openaiConfig.APIKey = aiConfig.APIKey

	if aiConfig.Endpoint != "" && aiConfig.Endpoint != defaults.Endpoint {
		openaiConfig.BaseURL = aiConfig.Endpoint
	}
	if aiConfig.Model != "" && aiConfig.Model != defaults.Model {
		openaiConfig.DefaultModel = aiConfig.Model
	}
	if aiConfig.Timeout > 0 {
		openaiConfig.Timeout = aiConfig.Timeout
	}

	provider, err := openai.New(openaiConfig)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// createOllamaProvider creates an Ollama provider with configuration.
func createOllamaProvider(aiConfig *config.AIConfig) (ai.Provider, error) {
	ollamaConfig := ollama.DefaultConfig()
	if aiConfig.Endpoint != "" {
		ollamaConfig.BaseURL = aiConfig.Endpoint
	}
	if aiConfig.Model != "" {
		ollamaConfig.DefaultModel = aiConfig.Model
	}
	if aiConfig.Timeout > 0 {
		ollamaConfig.Timeout = aiConfig.Timeout
	}

	provider, err := ollama.New(ollamaConfig)
	if err != nil {
		return nil, err
	}
	return provider, nil
}
