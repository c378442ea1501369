package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory and $HOME.
const FileName = ".codeaudit.yaml"

// EnvPrefix prefixes every environment override, e.g. CODEAUDIT_MAX_FILES.
const EnvPrefix = "CODEAUDIT"

// Config represents the codeaudit configuration.
type Config struct {
	Provider          string        `mapstructure:"provider"`
	Model             string        `mapstructure:"model"`
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Temperature       float64       `mapstructure:"temperature"`
	Framing           string        `mapstructure:"framing"`
	Root              string        `mapstructure:"root"`
	MaxFiles          int           `mapstructure:"max_files"`
	Extensions        []string      `mapstructure:"extensions"`
	Exclude           []string      `mapstructure:"exclude"`
	PauseBetweenFiles time.Duration `mapstructure:"pause_between_files"`
	GuidelinesFile    string        `mapstructure:"guidelines_file"`
	MetricsFile       string        `mapstructure:"metrics_file"`
	Retry             RetryConfig   `mapstructure:"retry"`
	Output            OutputConfig  `mapstructure:"output"`
	Cache             CacheConfig   `mapstructure:"cache"`
	Privacy           PrivacyConfig `mapstructure:"privacy"`
	Sink              SinkConfig    `mapstructure:"sink"`
	Log               LogConfig     `mapstructure:"log"`
}

// RetryConfig controls the retry loop around each backend call.
type RetryConfig struct {
	Strategy   string        `mapstructure:"strategy"`
	Attempts   int           `mapstructure:"attempts"`
	Wait       time.Duration `mapstructure:"wait"`
	MaxWait    time.Duration `mapstructure:"max_wait"`
	StopOnAuth bool          `mapstructure:"stop_on_auth"`
}

// OutputConfig controls the end-of-run artifacts.
type OutputConfig struct {
	Dir     string `mapstructure:"dir"`
	Format  string `mapstructure:"format"`
	Summary bool   `mapstructure:"summary"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Dir     string        `mapstructure:"dir"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// PrivacyConfig controls privacy/redaction behavior.
type PrivacyConfig struct {
	RedactSecrets bool     `mapstructure:"redact_secrets"`
	RedactPaths   []string `mapstructure:"redact_paths"`
}

// SinkConfig selects the optional incremental database sink.
type SinkConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:   "gemini",
		Timeout:    0,
		MaxTokens:  4096,
		Framing:    "auto",
		Root:       ".",
		MaxFiles:   50,
		Extensions: []string{".py", ".js", ".java", ".cpp", ".cs", ".ts", ".c"},
		Exclude:    []string{},
		Retry: RetryConfig{
			Strategy: "fixed",
			Attempts: 5,
			Wait:     10 * time.Second,
			MaxWait:  2 * time.Minute,
		},
		Output: OutputConfig{
			Dir:     "Report",
			Format:  "csv",
			Summary: true,
		},
		Cache: CacheConfig{
			Enabled: false,
			TTL:     7 * 24 * time.Hour,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Sink: SinkConfig{Backend: "none"},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Settings returns the config as nested maps keyed by config names, with
// durations rendered as strings. It is the shape written to the YAML file.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"provider":            c.Provider,
		"model":               c.Model,
		"api_key":             c.APIKey,
		"base_url":            c.BaseURL,
		"timeout":             c.Timeout.String(),
		"max_tokens":          c.MaxTokens,
		"temperature":         c.Temperature,
		"framing":             c.Framing,
		"root":                c.Root,
		"max_files":           c.MaxFiles,
		"extensions":          c.Extensions,
		"exclude":             c.Exclude,
		"pause_between_files": c.PauseBetweenFiles.String(),
		"guidelines_file":     c.GuidelinesFile,
		"metrics_file":        c.MetricsFile,
		"retry": map[string]any{
			"strategy":     c.Retry.Strategy,
			"attempts":     c.Retry.Attempts,
			"wait":         c.Retry.Wait.String(),
			"max_wait":     c.Retry.MaxWait.String(),
			"stop_on_auth": c.Retry.StopOnAuth,
		},
		"output": map[string]any{
			"dir":     c.Output.Dir,
			"format":  c.Output.Format,
			"summary": c.Output.Summary,
		},
		"cache": map[string]any{
			"enabled": c.Cache.Enabled,
			"dir":     c.Cache.Dir,
			"ttl":     c.Cache.TTL.String(),
		},
		"privacy": map[string]any{
			"redact_secrets": c.Privacy.RedactSecrets,
			"redact_paths":   c.Privacy.RedactPaths,
		},
		"sink": map[string]any{
			"backend": c.Sink.Backend,
			"dsn":     c.Sink.DSN,
		},
		"log": map[string]any{
			"level":  c.Log.Level,
			"format": c.Log.Format,
		},
	}
}

// flatten turns nested settings into dotted keys.
func flatten(prefix string, m map[string]any, out map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flatten(key, sub, out)
			continue
		}
		out[key] = v
	}
}

var defaults = func() map[string]any {
	out := map[string]any{}
	flatten("", Default().Settings(), out)
	return out
}()

// Keys returns every config key in dotted form, sorted.
func Keys() []string {
	return slices.Sorted(maps.Keys(defaults))
}

// New returns a viper instance with defaults, the config file search path
// and environment overrides registered. Flags are bound by the caller.
func New(configFile string) *viper.Viper {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads the config file (if any) and builds the effective config:
// defaults <- file <- env <- bound flags.
func Load(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var allowed = map[string][]string{
	"framing":        {"auto", "bare", "fenced"},
	"retry.strategy": {"fixed", "exponential"},
	"output.format":  {"csv", "json", "parquet"},
	"sink.backend":   {"none", "sqlite", "mysql", "postgres"},
	"log.level":      {"debug", "info", "warn", "error"},
	"log.format":     {"console", "json"},
}

func checkAllowed(key, value string) error {
	if !slices.Contains(allowed[key], value) {
		return fmt.Errorf("invalid %s %q (want one of %s)", key, value, strings.Join(allowed[key], ", "))
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Provider == "" {
		errs = append(errs, errors.New("provider must be set"))
	}
	if c.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("max_files must be positive, got %d", c.MaxFiles))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.Wait < 0 || c.PauseBetweenFiles < 0 {
		errs = append(errs, errors.New("retry.wait and pause_between_files must not be negative"))
	}
	if c.Sink.Backend != "none" && c.Sink.Backend != "sqlite" && c.Sink.DSN == "" {
		errs = append(errs, fmt.Errorf("sink.dsn is required for sink.backend %s", c.Sink.Backend))
	}
	for key, value := range map[string]string{
		"framing":        c.Framing,
		"retry.strategy": c.Retry.Strategy,
		"output.format":  c.Output.Format,
		"sink.backend":   c.Sink.Backend,
		"log.level":      c.Log.Level,
		"log.format":     c.Log.Format,
	} {
		if err := checkAllowed(key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "********"
	}
	if c.Sink.DSN != "" {
		c.Sink.DSN = "********"
	}
	return c
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg.Settings())
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// Write saves cfg to path. The file may hold an API key, so it is private.
func Write(path string, cfg Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Coerce converts a command-line string into the type of the key's default.
func Coerce(key, value string) (any, error) {
	def, ok := defaults[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	switch def.(type) {
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number: %w", key, err)
		}
		return f, nil
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return b, nil
	case []string:
		if strings.TrimSpace(value) == "" {
			return []string{}, nil
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}

	if _, isEnum := allowed[key]; isEnum {
		if err := checkAllowed(key, value); err != nil {
			return nil, err
		}
	}
	if isDurationKey(key) {
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
		}
	}
	return value, nil
}

func isDurationKey(key string) bool {
	switch key {
	case "timeout", "pause_between_files", "retry.wait", "retry.max_wait", "cache.ttl":
		return true
	}
	return false
}

// Set changes one key in the YAML file at path, creating the file if
// needed. Other keys in the file are preserved.
func Set(path, key, value string) error {
	val, err := Coerce(key, value)
	if err != nil {
		return err
	}

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config file: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("reading config file: %w", err)
	}

	setNested(doc, strings.Split(key, "."), val)

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0o600)
}

func setNested(m map[string]any, path []string, val any) {
	if len(path) == 1 {
		m[path[0]] = val
		return
	}
	sub, ok := m[path[0]].(map[string]any)
	if !ok {
		sub = map[string]any{}
		m[path[0]] = sub
	}
	setNested(sub, path[1:], val)
}
