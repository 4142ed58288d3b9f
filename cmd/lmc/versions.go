package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lmc/internal/errors"
	"lmc/internal/lineage"
	"lmc/internal/paths"
)

var (
	versionsShow   int
	versionsFormat string
)

var versionsCmd = &cobra.Command{
	Use:   "versions <tab>",
	Short: "List the commit history of a tab's module",
	Long: `List the lineage of the tab's module: every committed version with
its reason and author. With --show, print one version's script body.
Version bodies are immutable and cached locally after first fetch.`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func init() {
	versionsCmd.Flags().IntVar(&versionsShow, "show", 0, "Print the script body of this version")
	versionsCmd.Flags().StringVar(&versionsFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}
	if !tab.ModuleBound() {
		return errors.New(errors.NotModuleBound, "tab is not bound to a module")
	}
	if tab.Binding.LineageID == 0 {
		return errors.New(errors.ModuleNotFound, "module has no lineage on the portal")
	}

	cacheDir, err := paths.LineageCacheDir()
	if err != nil {
		return err
	}
	svc := lineage.NewService(&gatewayAdapter{env: env}, lineage.NewCache(cacheDir), env.logger)

	ctx, cancel := newOpContext()
	defer cancel()

	id := tab.Binding.Identity
	if versionsShow > 0 {
		body, err := svc.Body(ctx, id.PortalID, id.ModuleType, tab.Binding.LineageID, versionsShow)
		if err != nil {
			return err
		}
		fmt.Print(body)
		return nil
	}

	list, err := svc.Versions(ctx, id.ModuleType, tab.Binding.LineageID)
	if err != nil {
		return err
	}

	if versionsFormat == "json" {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("No committed versions.")
		return nil
	}
	for _, v := range list {
		fmt.Printf("v%-5d %-20s %s\n", v.Version, v.Committer, v.Reason)
	}
	return nil
}
