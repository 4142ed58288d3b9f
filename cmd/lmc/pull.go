package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lmc/internal/mirror"
	"lmc/internal/pull"
)

var pullFormat string

var pullCmd = &cobra.Command{
	Use:   "pull <tab>",
	Short: "Overwrite a tab with the portal's current script",
	Long: `Fetch the portal's current script for the tab's facet and take it
as both the tab's content and its new baseline. Local modifications in
the tab are discarded. Mirrored files are rewritten to match; a mirror
write failure does not fail the pull.`,
	Args: cobra.ExactArgs(1),
	RunE: runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	adapter := &gatewayAdapter{env: env}
	sync := pull.NewSynchronizer(env.tabs, adapter, mirror.New(env.tabs, env.logger), env.guard, env.activePortal, env.logger)

	ctx, cancel := newOpContext()
	defer cancel()

	result, err := sync.Pull(ctx, tab.ID)
	if err != nil {
		return err
	}
	if err := env.save(); err != nil {
		return err
	}

	if pullFormat == "json" {
		return printJSON(result)
	}
	if !result.Success {
		fmt.Printf("Pull failed: %s\n", result.Error)
		return nil
	}
	fmt.Printf("Pulled version %d into tab %s\n", result.Version, tab.ID)
	return nil
}
