package providers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Request contains the prompt sent to a backend for one analysis attempt.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Response contains the raw text returned by a backend.
type Response struct {
	Content    string
	TokensUsed int
}

// Framing describes how a backend wraps the JSON document in its reply.
type Framing int

const (
	// FramingBare means the document is returned as-is.
	FramingBare Framing = iota
	// FramingFenced means the first and last lines wrap the document
	// (typically a ```json fence) and must be stripped before decoding.
	FramingFenced
)

func (f Framing) String() string {
	if f == FramingFenced {
		return "fenced"
	}
	return "bare"
}

// ParseFraming converts a config value into a Framing. "auto" and "" return
// ok=false so the caller keeps the variant's own default.
func ParseFraming(s string) (Framing, bool, error) {
	switch s {
	case "", "auto":
		return FramingBare, false, nil
	case "bare":
		return FramingBare, true, nil
	case "fenced":
		return FramingFenced, true, nil
	default:
		return FramingBare, false, fmt.Errorf("unknown framing %q (want auto, bare or fenced)", s)
	}
}

// Provider is the backend abstraction. Submit performs exactly one outbound
// call; retrying is the caller's concern.
type Provider interface {
	Name() string
	Model() string
	Submit(ctx context.Context, req Request) (Response, error)
	Framing() Framing
}

// ModelInfo describes one model reported by a backend.
type ModelInfo struct {
	ID          string
	DisplayName string
	Description string
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Options configures a backend variant.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout. Used by tests.
	HTTPClient *http.Client
}

func (o Options) client(defaultTimeout time.Duration) *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// apiKey returns the configured key or the first non-empty env var.
func (o Options) apiKey(envVars ...string) string {
	if o.APIKey != "" {
		return o.APIKey
	}
	for _, v := range envVars {
		if key := os.Getenv(v); key != "" {
			return key
		}
	}
	return ""
}

// Names lists the accepted provider names, aliases excluded.
func Names() []string {
	return []string{"anthropic", "gemini", "deepseek", "openai", "huggingface", "ollama"}
}

// New creates a provider by name.
func New(name string, opts Options) (Provider, error) {
	switch name {
	case "anthropic", "claude":
		return NewAnthropic(opts)
	case "gemini", "google":
		return NewGemini(opts)
	case "deepseek":
		return NewDeepSeek(opts)
	case "openai":
		return NewOpenAI(opts)
	case "huggingface", "hf":
		return NewHuggingFace(opts)
	case "ollama", "lmstudio":
		return NewOllama(opts)
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// WithFraming overrides the framing reported by p.
func WithFraming(p Provider, f Framing) Provider {
	if p.Framing() == f {
		return p
	}
	return &framed{Provider: p, framing: f}
}

type framed struct {
	Provider
	framing Framing
}

func (f *framed) Framing() Framing { return f.framing }

// ListModels forwards to the wrapped provider when it can list models.
func (f *framed) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if l, ok := f.Provider.(ModelLister); ok {
		return l.ListModels(ctx)
	}
	return nil, fmt.Errorf("%s does not support listing models", f.Name())
}
