package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/codeaudit/internal/config"
)

const version = "0.1.0"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

// app carries what the commands share for one invocation.
type app struct {
	stdout, stderr io.Writer
	configFile     string
	// bindings maps flag names to config keys, per command.
	bindings map[*cobra.Command]map[string]string
	exitCode int
	logger   *zap.Logger
}

// Run executes the root command with os.Args and returns an exit code.
func Run() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, bindings: map[*cobra.Command]map[string]string{}}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if a.exitCode == ExitSuccess {
			a.exitCode = ExitUsageError
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return a.exitCode
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codeaudit",
		Short:         "Score source files and collect issues with an LLM backend",
		Long:          "codeaudit walks a source tree, asks a language model to review each file, and writes per-file quality scores and issues to two tables.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Config file (default .codeaudit.yaml in . or $HOME)")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console, json)")

	root.AddCommand(
		a.analyzeCmd(),
		a.modelsCmd(),
		a.configCmd(),
		a.cacheCmd(),
		a.versionCmd(),
	)
	return root
}

// bind records that flag name on cmd overrides config key.
func (a *app) bind(cmd *cobra.Command, flag, key string) {
	if a.bindings[cmd] == nil {
		a.bindings[cmd] = map[string]string{}
	}
	a.bindings[cmd][flag] = key
}

// load builds the effective config for cmd: defaults, file, env, then the
// flags bound for cmd and the persistent logging flags.
func (a *app) load(cmd *cobra.Command) (config.Config, *viper.Viper, error) {
	v := config.New(a.configFile)
	flags := map[string]string{"log-level": "log.level", "log-format": "log.format"}
	for flag, key := range a.bindings[cmd] {
		flags[flag] = key
	}
	for flag, key := range flags {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return config.Config{}, nil, fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	cfg, err := config.Load(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	if a.logger == nil {
		logger, err := newLogger(cfg.Log)
		if err != nil {
			return config.Config{}, nil, err
		}
		a.logger = logger
	}
	return cfg, v, nil
}

// newLogger builds the diagnostic logger. Output goes to stderr.
func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log.level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.Encoding = lc.Format
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lc.Format == "console" {
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		zc.DisableStacktrace = true
		zc.Sampling = nil
	}
	return zc.Build()
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print codeaudit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "codeaudit version %s\n", version)
		},
	}
}
