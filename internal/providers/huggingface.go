package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	defaultHuggingFaceURL = "https://api-inference.huggingface.co/models"
	huggingFaceModel      = "bigcode/starcoder"
)

// HuggingFace implements Provider for the Hugging Face Inference API
// text-generation task. The API has no model listing endpoint, so it does
// not implement ModelLister.
type HuggingFace struct {
	token   string
	model   string
	baseURL string
	client  *http.Client
}

// NewHuggingFace creates a new Hugging Face provider.
func NewHuggingFace(opts Options) (*HuggingFace, error) {
	token := opts.apiKey("HF_TOKEN", "HUGGINGFACE_TOKEN")
	if token == "" {
		return nil, &AuthError{Provider: "huggingface", Message: "HF_TOKEN is not set"}
	}
	return &HuggingFace{
		token:   token,
		model:   withDefault(opts.Model, huggingFaceModel),
		baseURL: strings.TrimRight(withDefault(opts.BaseURL, defaultHuggingFaceURL), "/"),
		client:  opts.client(300 * time.Second),
	}, nil
}

func (h *HuggingFace) Name() string { return "huggingface" }

func (h *HuggingFace) Model() string { return h.model }

func (h *HuggingFace) Framing() Framing { return FramingFenced }

func (h *HuggingFace) Submit(ctx context.Context, req Request) (Response, error) {
	body := hfRequest{Inputs: req.Prompt}
	body.Parameters.ReturnFullText = false
	if req.MaxTokens > 0 {
		body.Parameters.MaxNewTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Parameters.Temperature = &req.Temperature
		body.Parameters.DoSample = true
	}

	headers := map[string]string{"Authorization": "Bearer " + h.token}

	var result []hfGeneration
	if err := doJSON(ctx, h.client, h.Name(), http.MethodPost, h.baseURL+"/"+h.model, headers, body, &result); err != nil {
		return Response{}, err
	}
	if len(result) == 0 {
		return Response{}, fmt.Errorf("no generations in huggingface response")
	}
	return Response{Content: result[0].GeneratedText}, nil
}

type hfRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int      `json:"max_new_tokens,omitempty"`
		Temperature    *float64 `json:"temperature,omitempty"`
		DoSample       bool     `json:"do_sample,omitempty"`
		ReturnFullText bool     `json:"return_full_text"`
	} `json:"parameters"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}
