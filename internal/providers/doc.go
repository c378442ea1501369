// Package providers implements the Provider interface for each supported
// analysis backend.
//
// Supported backends: Anthropic (Claude), Google (Gemini, through the GenAI
// SDK), DeepSeek and OpenAI (chat completions), Hugging Face Inference, and
// Ollama / LM Studio for local models.
//
// A Submit call performs exactly one outbound request. Failures come back as
// *TransportError, *AuthError, *RateLimitError or *StatusError; the retry
// policy around them lives in package retry. Each variant also reports its
// Framing, the way it wraps the JSON document in its reply, so the parser
// can strip the wrapper per backend instead of globally.
//
// HTTP clients are injected through Options so that tests can redirect calls
// to local httptest servers without making live API requests.
//
// Use [New] to obtain a Provider by name.
package providers
