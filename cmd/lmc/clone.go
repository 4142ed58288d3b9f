package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lmc/internal/errors"
	"lmc/internal/mirror"
)

var (
	cloneRepo      string
	cloneOverwrite bool
	cloneFormat    string
)

var cloneCmd = &cobra.Command{
	Use:   "clone <tab>",
	Short: "Mirror a module's scripts into a repository directory",
	Long: `Write every script facet of the tab's module into a repository
directory, one file per facet, next to a module.toml manifest. The
involved tabs become file-bound: subsequent pulls rewrite the files,
and 'lmc watch' feeds file edits back into the tabs.

The repository defaults to the 'repository' config setting.`,
	Args: cobra.ExactArgs(1),
	RunE: runClone,
}

func init() {
	cloneCmd.Flags().StringVar(&cloneRepo, "repo", "", "Repository directory (default: config 'repository')")
	cloneCmd.Flags().BoolVar(&cloneOverwrite, "overwrite", false, "Overwrite files already present in the repository")
	cloneCmd.Flags().StringVar(&cloneFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
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

	repo := cloneRepo
	if repo == "" {
		repo = env.cfg.Repository
	}
	target, err := mirror.ResolveTarget(repo)
	if err != nil {
		return err
	}

	var host string
	if entry, ok := env.registry.Get(tab.Binding.Identity.PortalID); ok {
		host = entry.Host
	}

	m := mirror.New(env.tabs, env.logger)
	result := m.Clone(tab.ID, target, host, cloneOverwrite)
	if result.Success {
		if err := env.save(); err != nil {
			return err
		}
	}

	if cloneFormat == "json" {
		return printJSON(result)
	}
	if !result.Success {
		fmt.Printf("Clone failed: %s\n", result.Error)
		return nil
	}
	fmt.Printf("Cloned into %s\n", result.Dir)
	for facet, file := range result.Files {
		fmt.Printf("  %-10s %s\n", facet, file)
	}
	return nil
}
