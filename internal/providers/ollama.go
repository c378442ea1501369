package providers

import (
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllama creates a provider for Ollama and LM Studio (OpenAI-compatible
// API). No API key is required by default.
func NewOllama(opts Options) (*OpenAI, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OLLAMA_HOST")
	}
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}

	// Normalize URL: strip trailing /, /v1, /v1/chat/completions
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	// Optional API key for servers that require it (e.g., LM Studio)
	key := opts.apiKey("CODEAUDIT_OLLAMA_API_KEY")

	return newOpenAICompatible("ollama", key, withDefault(opts.Model, "qwen2.5-coder"), baseURL+"/v1", opts.client(300*time.Second)), nil
}
