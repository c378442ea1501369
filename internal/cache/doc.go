// Package cache provides a file-based cache for raw backend replies.
//
// Entries are keyed by a SHA-256 hash of the provider name, the model and
// the full prompt, which embeds the already-redacted file content. Each
// entry stores the reply together with its provider, model, source file and
// creation time. Expired entries are skipped and removed on read.
//
// The default cache directory is $XDG_CACHE_HOME/codeaudit (or the
// OS-appropriate equivalent).
package cache
