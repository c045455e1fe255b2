package factory

import (
	"fmt"

	"spatial-search-be/pkg/llm"
	"spatial-search-be/pkg/llm/huggingface"
	"spatial-search-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, hfAPIKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(hfAPIKey, "", modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
