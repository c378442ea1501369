package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeaudit/internal/cache"
	"github.com/dshills/codeaudit/internal/config"
	"github.com/dshills/codeaudit/internal/providers"
)

// isolate points HOME and the working directory at a fresh temp dir and
// clears credentials so no real config or key leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, ".cache"))
	for _, k := range []string{
		"CODEAUDIT_API_KEY", "CODEAUDIT_PROVIDER", "CODEAUDIT_MODEL",
		"ANTHROPIC_API_KEY", "CLAUDE_API_KEY", "OPENAI_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_API_KEY", "DEEPSEEK_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(dir)
	return dir
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Equal(t, "codeaudit version "+version+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "Error:")
}

func TestConfigInitSetShow(t *testing.T) {
	dir := isolate(t)

	code, out, _ := runCLI(t, "config", "init")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, config.FileName)
	_, err := os.Stat(filepath.Join(dir, config.FileName))
	require.NoError(t, err)

	code, _, errOut := runCLI(t, "config", "init")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, errOut, "already exists")

	code, out, _ = runCLI(t, "config", "set", "max_files", "7")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Set max_files = 7\n", out)

	code, _, _ = runCLI(t, "config", "set", "api_key", "sk-secret")
	require.Equal(t, ExitSuccess, code)

	code, out, _ = runCLI(t, "config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "max_files: 7")
	assert.NotContains(t, out, "sk-secret")
	assert.Contains(t, out, "# from ")
}

func TestConfigSet_Invalid(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "config", "set", "no.such.key", "1")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "unknown config key")

	code, _, _ = runCLI(t, "config", "set", "retry.strategy", "sometimes")
	assert.Equal(t, ExitUsageError, code)

	code, _, _ = runCLI(t, "config", "set", "max_files")
	assert.Equal(t, ExitUsageError, code)
}

func TestConfigShow_EnvOverridesFile(t *testing.T) {
	isolate(t)
	code, _, _ := runCLI(t, "config", "set", "max_files", "7")
	require.Equal(t, ExitSuccess, code)
	t.Setenv("CODEAUDIT_MAX_FILES", "12")

	code, out, _ := runCLI(t, "config", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "max_files: 12")
}

func TestConfigShow_InvalidFileValue(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: xlsx\n"), 0o600))

	code, _, errOut := runCLI(t, "--config", path, "config", "show")
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "output.format")
}

func TestConfigKeys(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "config", "keys")
	require.Equal(t, ExitSuccess, code)
	keys := strings.Fields(out)
	assert.Equal(t, config.Keys(), keys)
	assert.Contains(t, keys, "retry.attempts")
}

func TestModelsList(t *testing.T) {
	isolate(t)
	code, out, _ := runCLI(t, "models", "list")
	require.Equal(t, ExitSuccess, code)
	for _, name := range providers.Names() {
		assert.Contains(t, out, name+":")
	}
	assert.Contains(t, out, "gemini-2.0-flash (default)")
}

func TestModelsListRemote(t *testing.T) {
	isolate(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-test","owned_by":"acme"}]}`))
	}))
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")

	code, out, _ := runCLI(t, "models", "list", "--remote", "--provider", "openai", "--base-url", server.URL)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "gpt-test")
	assert.Contains(t, out, "1 model(s) available from openai")
}

func TestModelsDoctor_NoKey(t *testing.T) {
	isolate(t)
	code, _, errOut := runCLI(t, "models", "doctor", "--provider", "anthropic")
	assert.Equal(t, ExitAuthError, code)
	assert.Contains(t, errOut, "ANTHROPIC_API_KEY")
}

func TestModelsDoctor_OK(t *testing.T) {
	isolate(t)
	server := chatServer(t, "ok")
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")

	code, out, _ := runCLI(t, "models", "doctor", "--provider", "openai", "--base-url", server.URL)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "OK: openai (gpt-4o-mini) is configured and responding")
}

func TestBuildProvider_Framing(t *testing.T) {
	cfg := config.Default()
	cfg.Provider = "openai"
	cfg.APIKey = "k"

	p, err := buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, providers.FramingFenced, p.Framing())

	cfg.Framing = "bare"
	p, err = buildProvider(cfg)
	require.NoError(t, err)
	assert.Equal(t, providers.FramingBare, p.Framing())
	assert.Equal(t, "openai", p.Name())

	cfg.Provider = "nope"
	_, err = buildProvider(cfg)
	assert.Error(t, err)
}

func TestCacheShowAndClear(t *testing.T) {
	dir := isolate(t)
	cacheDir := filepath.Join(dir, "replies")
	t.Setenv("CODEAUDIT_CACHE_DIR", cacheDir)

	c, err := cache.New(true, cacheDir, time.Hour)
	require.NoError(t, err)
	require.NoError(t, c.Put(cache.BuildKey("openai", "gpt-test", "p"), cache.Meta{Provider: "openai", Model: "gpt-test"}, "{}"))

	code, out, _ := runCLI(t, "cache", "show")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "Cache is disabled")
	start := strings.Index(out, "{")
	require.GreaterOrEqual(t, start, 0)
	var stats cache.Stats
	require.NoError(t, json.Unmarshal([]byte(out[start:]), &stats))
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 1, stats.ByProvider["openai/gpt-test"])

	code, out, _ = runCLI(t, "cache", "clear")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "Cache cleared (1 entries).\n", out)
}

func TestAnalyze_MissingRoot(t *testing.T) {
	dir := isolate(t)
	code, _, errOut := runCLI(t, "analyze", filepath.Join(dir, "nowhere"))
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, errOut, "source root")
}

func TestAnalyze_BadFormat(t *testing.T) {
	dir := isolate(t)
	code, _, _ := runCLI(t, "analyze", dir, "--format", "xlsx")
	assert.Equal(t, ExitUsageError, code)
}

func TestAnalyze_NoAPIKey(t *testing.T) {
	dir := isolate(t)
	code, _, errOut := runCLI(t, "analyze", dir, "--provider", "anthropic")
	assert.Equal(t, ExitAuthError, code)
	assert.Contains(t, errOut, "ANTHROPIC_API_KEY")
}

const chatReply = "```json\n" + `{
  "Metriche": [{"Filename": "a.py", "Manutenibilità": 4, "Leggibilità": 3, "Performance": 5, "Sicurezza": 2, "Modularità": 4}],
  "Issue": [{"Filename": "a.py", "Line": 2, "Tipo": "Bug", "Severità": "High", "Descrizione": "division by zero", "Suggestion": "check b"}]
}` + "\n```"

// chatServer answers every chat completion with content.
func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
			"usage":   map[string]int{"total_tokens": 10},
		})
	}))
}

func TestAnalyze_EndToEnd(t *testing.T) {
	dir := isolate(t)
	root := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("def f(a, b):\n    return a / b\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# skip me\n"), 0o644))

	server := chatServer(t, chatReply)
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")

	outDir := filepath.Join(dir, "Report")
	metricsFile := filepath.Join(dir, "run.prom")
	code, out, errOut := runCLI(t, "analyze", root,
		"--provider", "openai",
		"--model", "gpt-test",
		"--base-url", server.URL,
		"--retries", "1",
		"--out-dir", outDir,
		"--metrics-file", metricsFile,
	)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, errOut, "[1/1] a.py")

	metricsPath := filepath.Join(outDir, "Valutazioni_openai-gpt-test.csv")
	issuesPath := filepath.Join(outDir, "Issues_openai-gpt-test.csv")
	assert.Contains(t, out, "Metrics: "+metricsPath)
	assert.Contains(t, out, "High")

	rows := readCSV(t, metricsPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"File", "Manutenibilità", "Leggibilità", "Performance", "Sicurezza", "Modularità", "FullPath"}, rows[0])
	assert.Equal(t, []string{"a.py", "4", "3", "5", "2", "4"}, rows[1][:6])
	assert.Equal(t, "a.py", filepath.Base(rows[1][6]))

	rows = readCSV(t, issuesPath)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a.py", "2", "Bug", "High", "division by zero", "check b"}, rows[1][:6])

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "codeaudit_")
}

func TestAnalyze_UnwritableOutDir(t *testing.T) {
	dir := isolate(t)
	root := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))

	server := chatServer(t, chatReply)
	defer server.Close()
	t.Setenv("OPENAI_API_KEY", "test-key")

	code, _, errOut := runCLI(t, "analyze", root,
		"--provider", "openai",
		"--base-url", server.URL,
		"--retries", "1",
		"--out-dir", filepath.Join(blocker, "out"),
	)
	assert.Equal(t, ExitRuntimeError, code)
	assert.Contains(t, errOut, "writing report")
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}
