package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// Gemini implements Provider on top of the Google GenAI SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a new Gemini provider.
func NewGemini(opts Options) (*Gemini, error) {
	key := opts.apiKey("GEMINI_API_KEY", "GOOGLE_API_KEY")
	if key == "" {
		return nil, &AuthError{Provider: "gemini", Message: "GEMINI_API_KEY (or GOOGLE_API_KEY) is not set"}
	}

	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.client(120 * time.Second),
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating GenAI client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  withDefault(opts.Model, geminiModel),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Model() string { return g.model }

// Framing is fenced: Gemini wraps JSON in a ```json block even when told not to.
func (g *Gemini) Framing() Framing { return FramingFenced }

func (g *Gemini) Submit(ctx context.Context, req Request) (Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return Response{}, g.classify(err)
	}

	resp := Response{Content: result.Text()}
	if result.UsageMetadata != nil {
		resp.TokensUsed = int(result.UsageMetadata.TotalTokenCount)
	}
	return resp, nil
}

// ListModels returns every model the key can see.
func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range g.client.Models.All(ctx) {
		if err != nil {
			return models, g.classify(err)
		}
		models = append(models, ModelInfo{
			ID:          strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Description: m.Description,
		})
	}
	return models, nil
}

// classify maps SDK errors onto the package's error types.
func (g *Gemini) classify(err error) error {
	code := 0
	msg := err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, msg = apiErrPtr.Code, apiErrPtr.Message
	default:
		return &TransportError{Provider: g.Name(), Err: err}
	}

	switch code {
	case http.StatusTooManyRequests:
		return &RateLimitError{Provider: g.Name()}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Provider: g.Name(), Message: msg}
	default:
		return &StatusError{Provider: g.Name(), StatusCode: code, Body: msg}
	}
}
