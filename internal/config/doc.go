// Package config loads and merges codeaudit configuration from multiple
// sources using viper.
//
// Precedence (highest to lowest):
//  1. CLI flags bound by package cli
//  2. Environment variables (CODEAUDIT_PROVIDER, CODEAUDIT_MAX_FILES,
//     CODEAUDIT_RETRY_ATTEMPTS, etc.)
//  3. Config file (.codeaudit.yaml in the working directory, then $HOME)
//  4. Built-in defaults
//
// Use [New] and [Load] to obtain a merged [Config], [Write] to write a
// default config file, and [Set] to update a single key in the config file.
package config
