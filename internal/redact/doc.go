// Package redact removes secrets from source content before it is sent to
// any analysis backend.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, database connection strings with inline passwords, and
// provider-specific tokens (Anthropic, OpenAI, Google, Hugging Face, GitHub,
// Slack).
//
// Path-based redaction is also supported: files whose paths match configured
// doublestar patterns are replaced with a placeholder rather than being
// scanned line by line.
package redact
