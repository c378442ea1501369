package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dshills/codeaudit/internal/providers"
)

type modelInfo struct {
	Provider string
	Models   []string
}

// knownModels is the offline catalogue. The first model of each provider is
// its default.
var knownModels = []modelInfo{
	{
		Provider: "gemini",
		Models: []string{
			"gemini-2.0-flash",
			"gemini-2.5-flash",
			"gemini-2.5-pro",
			"gemini-1.5-pro",
		},
	},
	{
		Provider: "anthropic",
		Models: []string{
			"claude-3-haiku-20240307",
			"claude-3-5-haiku-latest",
			"claude-sonnet-4-5",
		},
	},
	{
		Provider: "deepseek",
		Models: []string{
			"deepseek-chat",
			"deepseek-reasoner",
		},
	},
	{
		Provider: "openai",
		Models: []string{
			"gpt-4o-mini",
			"gpt-4.1-mini",
			"gpt-4o",
		},
	},
	{
		Provider: "huggingface",
		Models: []string{
			"bigcode/starcoder",
			"bigcode/starcoder2-15b",
			"Qwen/Qwen2.5-Coder-32B-Instruct",
		},
	},
	{
		Provider: "ollama",
		Models: []string{
			"qwen2.5-coder",
			"llama3.2",
			"codellama",
			"deepseek-coder-v2",
		},
	},
}

func (a *app) modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Provider and model management",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List known providers and models, or the provider's live list with --remote",
		RunE: func(cmd *cobra.Command, args []string) error {
			if remote, _ := cmd.Flags().GetBool("remote"); !remote {
				a.printKnownModels()
				return nil
			}
			cfg, _, err := a.load(cmd)
			if err != nil {
				return a.fail(ExitUsageError, err)
			}
			p, err := buildProvider(cfg)
			if err != nil {
				return a.failProvider(err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := a.printRemoteModels(ctx, p); err != nil {
				return a.failProvider(err)
			}
			return nil
		},
	}
	a.addProviderFlags(list)
	list.Flags().Bool("remote", false, "Ask the provider for its models")

	doctor := &cobra.Command{
		Use:   "doctor",
		Short: "Validate provider credentials with a one-shot request",
		RunE:  a.runDoctor,
	}
	a.addProviderFlags(doctor)

	cmd.AddCommand(list, doctor)
	return cmd
}

func (a *app) printKnownModels() {
	for _, info := range knownModels {
		fmt.Fprintf(a.stdout, "%s:\n", info.Provider)
		for i, m := range info.Models {
			suffix := ""
			if i == 0 {
				suffix = " (default)"
			}
			fmt.Fprintf(a.stdout, "  - %s%s\n", m, suffix)
		}
		fmt.Fprintln(a.stdout)
	}
}

// printRemoteModels prints the provider's live model list as a table.
func (a *app) printRemoteModels(ctx context.Context, p providers.Provider) error {
	lister, ok := p.(providers.ModelLister)
	if !ok {
		return fmt.Errorf("%s does not support listing models", p.Name())
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(a.stdout)
	table.Header([]string{"Model", "Name", "Description"})
	var data [][]string
	for _, m := range models {
		data = append(data, []string{m.ID, m.DisplayName, m.Description})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%d model(s) available from %s\n", len(models), p.Name())
	return nil
}

func (a *app) runDoctor(cmd *cobra.Command, args []string) error {
	cfg, _, err := a.load(cmd)
	if err != nil {
		return a.fail(ExitUsageError, err)
	}
	fmt.Fprintf(a.stdout, "Checking %s...\n", cfg.Provider)

	p, err := buildProvider(cfg)
	if err != nil {
		fmt.Fprintf(a.stderr, "FAIL: %v\n", err)
		if providers.IsAuthError(err) {
			a.exitCode = ExitAuthError
		} else {
			a.exitCode = ExitUsageError
		}
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := p.Submit(ctx, providers.Request{Prompt: "Respond with exactly: ok", MaxTokens: 10})
	if err != nil {
		fmt.Fprintf(a.stderr, "FAIL: %v\n", err)
		if providers.IsAuthError(err) {
			a.exitCode = ExitAuthError
		} else {
			a.exitCode = ExitRuntimeError
		}
		return nil
	}

	fmt.Fprintf(a.stdout, "OK: %s (%s) is configured and responding (%d tokens)\n", p.Name(), p.Model(), resp.TokensUsed)
	return nil
}
