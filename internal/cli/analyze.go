package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/codeaudit/internal/analysis"
	"github.com/dshills/codeaudit/internal/cache"
	"github.com/dshills/codeaudit/internal/config"
	"github.com/dshills/codeaudit/internal/pipeline"
	"github.com/dshills/codeaudit/internal/providers"
	"github.com/dshills/codeaudit/internal/redact"
	"github.com/dshills/codeaudit/internal/report"
	"github.com/dshills/codeaudit/internal/retry"
	"github.com/dshills/codeaudit/internal/sink"
	"github.com/dshills/codeaudit/internal/source"
	"github.com/dshills/codeaudit/internal/telemetry"
)

// addProviderFlags registers the flags that select and reach a backend.
func (a *app) addProviderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", "", "Backend (anthropic, gemini, deepseek, openai, huggingface, ollama)")
	f.String("model", "", "Model name (default depends on the provider)")
	f.String("base-url", "", "Override the backend endpoint")
	f.Duration("timeout", 0, "HTTP timeout per backend call")
	a.bind(cmd, "provider", "provider")
	a.bind(cmd, "model", "model")
	a.bind(cmd, "base-url", "base_url")
	a.bind(cmd, "timeout", "timeout")
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [root]",
		Short: "Analyze every eligible file under root and write the report tables",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runAnalyze,
	}
	a.addProviderFlags(cmd)

	f := cmd.Flags()
	f.Int("max-files", 0, "Stop after this many eligible files")
	f.StringSlice("extensions", nil, "Eligible file extensions, e.g. .py,.js")
	f.StringSlice("exclude", nil, "Exclude path globs (doublestar syntax)")
	f.String("framing", "", "Reply framing (auto, bare, fenced)")
	f.String("format", "", "Output format ("+strings.Join(report.Formats(), ", ")+")")
	f.String("out-dir", "", "Directory for the report tables")
	f.Bool("summary", true, "Print a summary table after the run")
	f.String("strategy", "", "Retry strategy (fixed, exponential)")
	f.Int("retries", 0, "Attempts per file")
	f.Duration("wait", 0, "Wait between attempts")
	f.Duration("pause", 0, "Pause between files")
	f.String("guidelines", "", "YAML file with extra review guidelines")
	f.Bool("cache", false, "Reuse cached replies for unchanged files")
	f.String("sink", "", "Append records to a database as they arrive (none, sqlite, mysql, postgres)")
	f.String("sink-dsn", "", "Database connection string for --sink")
	f.String("metrics-file", "", "Write run counters in Prometheus text format to this path")
	f.Bool("no-redact", false, "Send file content without secret redaction")
	f.Bool("list-models", false, "Print the provider's models before the run")

	for flag, key := range map[string]string{
		"max-files":    "max_files",
		"extensions":   "extensions",
		"exclude":      "exclude",
		"framing":      "framing",
		"format":       "output.format",
		"out-dir":      "output.dir",
		"summary":      "output.summary",
		"strategy":     "retry.strategy",
		"retries":      "retry.attempts",
		"wait":         "retry.wait",
		"pause":        "pause_between_files",
		"guidelines":   "guidelines_file",
		"cache":        "cache.enabled",
		"sink":         "sink.backend",
		"sink-dsn":     "sink.dsn",
		"metrics-file": "metrics_file",
	} {
		a.bind(cmd, flag, key)
	}
	return cmd
}

// fail records the exit code for err and returns it.
func (a *app) fail(code int, err error) error {
	a.exitCode = code
	return err
}

// failProvider maps a backend error onto the auth or runtime exit code.
func (a *app) failProvider(err error) error {
	if providers.IsAuthError(err) {
		return a.fail(ExitAuthError, err)
	}
	return a.fail(ExitRuntimeError, err)
}

// buildProvider creates the configured backend with any framing override.
func buildProvider(cfg config.Config) (providers.Provider, error) {
	p, err := providers.New(cfg.Provider, providers.Options{
		Model:   cfg.Model,
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	framing, override, err := providers.ParseFraming(cfg.Framing)
	if err != nil {
		return nil, err
	}
	if override {
		p = providers.WithFraming(p, framing)
	}
	return p, nil
}

func (a *app) runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, _, err := a.load(cmd)
	if err != nil {
		return a.fail(ExitUsageError, err)
	}
	if len(args) == 1 {
		cfg.Root = args[0]
	}
	if flag, _ := cmd.Flags().GetBool("no-redact"); flag {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(a.stderr, "WARNING: secret redaction is disabled")
	}
	logger := a.logger
	ctx := context.Background()

	if err := source.ValidateRoot(cfg.Root); err != nil {
		return a.fail(ExitUsageError, fmt.Errorf("source root: %w", err))
	}
	enum, err := source.New(cfg.Extensions, cfg.Exclude, cfg.MaxFiles)
	if err != nil {
		return a.fail(ExitUsageError, err)
	}
	policy, err := retry.NewPolicy(cfg.Retry.Strategy, cfg.Retry.Attempts, cfg.Retry.Wait, cfg.Retry.MaxWait, cfg.Retry.StopOnAuth)
	if err != nil {
		return a.fail(ExitUsageError, err)
	}
	var guidelines *analysis.Guidelines
	if cfg.GuidelinesFile != "" {
		if guidelines, err = analysis.LoadGuidelines(cfg.GuidelinesFile); err != nil {
			return a.fail(ExitUsageError, err)
		}
	}
	if _, err := report.GetEncoder(cfg.Output.Format); err != nil {
		return a.fail(ExitUsageError, err)
	}

	p, err := buildProvider(cfg)
	if err != nil {
		if providers.IsAuthError(err) {
			return a.fail(ExitAuthError, err)
		}
		return a.fail(ExitUsageError, err)
	}

	if list, _ := cmd.Flags().GetBool("list-models"); list {
		if err := a.printRemoteModels(ctx, p); err != nil {
			logger.Warn("listing models failed", zap.Error(err))
		}
	}

	c, err := cache.New(cfg.Cache.Enabled, cfg.Cache.Dir, cfg.Cache.TTL)
	if err != nil {
		logger.Warn("cache unavailable, continuing without it", zap.Error(err))
		c = nil
	}
	store, err := sink.Open(ctx, cfg.Sink.Backend, cfg.Sink.DSN)
	if err != nil {
		logger.Warn("sink unavailable, continuing without it", zap.Error(err))
		store = nil
	}
	defer store.Close()

	var rec *telemetry.Recorder
	if cfg.MetricsFile != "" {
		rec = telemetry.New(p.Name(), p.Model())
	}

	runner := &pipeline.Runner{
		Provider:   p,
		Enumerator: enum,
		Retry:      retry.New(policy, logger),
		Cache:      c,
		Sink:       store,
		Telemetry:  rec,
		Progress:   pipeline.AutoPrinter(a.stderr),
		Logger:     logger,
		Options: pipeline.Options{
			Root:        cfg.Root,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Pause:       cfg.PauseBetweenFiles,
			Guidelines:  guidelines,
			Redact:      redact.Policy{Secrets: cfg.Privacy.RedactSecrets, Paths: cfg.Privacy.RedactPaths},
		},
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return a.fail(ExitRuntimeError, err)
	}

	if err := a.writeReport(cfg, p, res); err != nil {
		return a.fail(ExitRuntimeError, err)
	}
	if err := rec.WriteFile(cfg.MetricsFile, time.Now()); err != nil {
		logger.Warn("metrics file not written", zap.Error(err))
	}
	return nil
}

func (a *app) writeReport(cfg config.Config, p providers.Provider, res *pipeline.Result) error {
	w, err := report.NewWriter(cfg.Output.Format)
	if err != nil {
		return err
	}
	paths, err := w.Write(cfg.Output.Dir, report.Label(p.Name(), p.Model()), res.Metrics, res.Issues)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Fprintf(a.stdout, "Metrics: %s\nIssues:  %s\n", paths.Metrics, paths.Issues)
	if cfg.Output.Summary {
		if err := report.WriteSummary(a.stdout, report.Summarize(res.Metrics, res.Issues)); err != nil {
			return fmt.Errorf("printing summary: %w", err)
		}
	}
	return nil
}
