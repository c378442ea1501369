package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/codeaudit/internal/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage codeaudit configuration",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file in the current directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath()
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(a.stderr, "Config file already exists at %s\n", path)
				return nil
			}
			if err := config.Write(path, config.Default()); err != nil {
				return a.fail(ExitRuntimeError, fmt.Errorf("writing config: %w", err))
			}
			fmt.Fprintf(a.stdout, "Config file created at %s\n", path)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value in the config file. Keys use dots for nesting (retry.attempts) and lists are comma-separated.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Set(a.configPath(), args[0], args[1]); err != nil {
				return a.fail(ExitUsageError, err)
			}
			fmt.Fprintf(a.stdout, "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, v, err := a.load(cmd)
			if err != nil {
				return a.fail(ExitUsageError, err)
			}
			data, err := config.Marshal(cfg.Redacted())
			if err != nil {
				return a.fail(ExitRuntimeError, err)
			}
			if used := v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.stdout, "# from %s\n", used)
			}
			fmt.Fprint(a.stdout, string(data))
			return nil
		},
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List every configuration key",
		Run: func(cmd *cobra.Command, args []string) {
			for _, k := range config.Keys() {
				fmt.Fprintln(a.stdout, k)
			}
		},
	}

	cmd.AddCommand(initCmd, setCmd, showCmd, keysCmd)
	return cmd
}

// configPath is the file init and set write to: --config, or the file name
// in the working directory.
func (a *app) configPath() string {
	if a.configFile != "" {
		return a.configFile
	}
	return config.FileName
}
