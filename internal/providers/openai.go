package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOpenAIURL   = "https://api.openai.com/v1"
	defaultDeepSeekURL = "https://api.deepseek.com"
)

// OpenAI implements Provider for any OpenAI-compatible chat completions
// endpoint. It backs the openai, deepseek and ollama variants.
type OpenAI struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates a provider for OpenAI's API.
func NewOpenAI(opts Options) (*OpenAI, error) {
	key := opts.apiKey("OPENAI_API_KEY")
	if key == "" {
		return nil, &AuthError{Provider: "openai", Message: "OPENAI_API_KEY is not set"}
	}
	return newOpenAICompatible("openai", key, withDefault(opts.Model, "gpt-4o-mini"), withDefault(opts.BaseURL, defaultOpenAIURL), opts.client(120*time.Second)), nil
}

// NewDeepSeek creates a provider for DeepSeek's OpenAI-compatible API.
func NewDeepSeek(opts Options) (*OpenAI, error) {
	key := opts.apiKey("DEEPSEEK_API_KEY")
	if key == "" {
		return nil, &AuthError{Provider: "deepseek", Message: "DEEPSEEK_API_KEY is not set"}
	}
	return newOpenAICompatible("deepseek", key, withDefault(opts.Model, "deepseek-chat"), withDefault(opts.BaseURL, defaultDeepSeekURL), opts.client(120*time.Second)), nil
}

func newOpenAICompatible(name, key, model, baseURL string, client *http.Client) *OpenAI {
	// Accept either the API root or the full completions URL.
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/chat/completions")
	return &OpenAI{
		name:    name,
		apiKey:  key,
		model:   model,
		baseURL: baseURL,
		client:  client,
	}
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Model() string { return o.model }

// Framing is fenced: these backends wrap the document in a ```json block.
func (o *OpenAI) Framing() Framing { return FramingFenced }

func (o *OpenAI) headers() map[string]string {
	if o.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + o.apiKey}
}

func (o *OpenAI) Submit(ctx context.Context, req Request) (Response, error) {
	body := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = &req.Temperature
	}

	var result openaiResponse
	if err := doJSON(ctx, o.client, o.name, http.MethodPost, o.baseURL+"/chat/completions", o.headers(), body, &result); err != nil {
		return Response{}, err
	}

	if len(result.Choices) == 0 {
		return Response{}, fmt.Errorf("no choices in %s response", o.name)
	}

	return Response{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

// ListModels returns the models the endpoint exposes at /models.
func (o *OpenAI) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var result openaiModelList
	if err := doJSON(ctx, o.client, o.name, http.MethodGet, o.baseURL+"/models", o.headers(), nil, &result); err != nil {
		return nil, err
	}
	models := make([]ModelInfo, 0, len(result.Data))
	for _, m := range result.Data {
		models = append(models, ModelInfo{ID: m.ID, Description: m.OwnedBy})
	}
	return models, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}

type openaiUsage struct {
	TotalTokens int `json:"total_tokens"`
}

type openaiModelList struct {
	Data []struct {
		ID      string `json:"id"`
		OwnedBy string `json:"owned_by"`
	} `json:"data"`
}
