// Codeaudit is a CLI that asks an LLM backend to review every source file
// under a directory and collects the answers into two tables.
//
// Each file gets five quality scores (maintainability, readability,
// performance, security, modularity) and a list of issues with line,
// type, severity, description and suggestion.
//
// Usage:
//
//	codeaudit analyze ./src                      # review with the default backend
//	codeaudit analyze ./src --provider anthropic # pick a backend
//	codeaudit analyze --format parquet --out-dir out
//	codeaudit models list                        # offline model catalogue
//	codeaudit models doctor                      # check credentials
//	codeaudit config init                        # write .codeaudit.yaml
package main
