package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/codeaudit/internal/cache"
)

func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the reply cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load(cmd)
			if err != nil {
				return a.fail(ExitUsageError, err)
			}
			c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTL)
			if err != nil {
				return a.fail(ExitRuntimeError, fmt.Errorf("opening cache: %w", err))
			}
			n, err := c.Clear()
			if err != nil {
				return a.fail(ExitRuntimeError, fmt.Errorf("clearing cache: %w", err))
			}
			fmt.Fprintf(a.stdout, "Cache cleared (%d entries).\n", n)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.load(cmd)
			if err != nil {
				return a.fail(ExitUsageError, err)
			}
			c, err := cache.New(true, cfg.Cache.Dir, cfg.Cache.TTL)
			if err != nil {
				return a.fail(ExitRuntimeError, fmt.Errorf("opening cache: %w", err))
			}
			if !cfg.Cache.Enabled {
				fmt.Fprintln(a.stdout, "Cache is disabled (enable with cache.enabled or --cache).")
			}
			stats, err := c.GetStats()
			if err != nil {
				return a.fail(ExitRuntimeError, fmt.Errorf("reading cache stats: %w", err))
			}
			data, err := json.MarshalIndent(stats, "", "  ")
			if err != nil {
				return a.fail(ExitRuntimeError, err)
			}
			fmt.Fprintln(a.stdout, string(data))
			return nil
		},
	}

	cmd.AddCommand(clearCmd, showCmd)
	return cmd
}
