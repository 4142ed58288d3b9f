package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status [tab]",
	Short: "Show what would be committed",
	Long: `Show local modifications per tab: whether the script body diverged
from its baseline, and which metadata fields are dirty on the shared draft.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	listed := env.tabs.List()
	if len(args) == 1 {
		tab, err := resolveTab(env.tabs, args[0])
		if err != nil {
			return err
		}
		listed = listed[:0]
		listed = append(listed, tab)
	}

	var infos []TabInfo
	for _, tab := range listed {
		info := TabInfo{
			ID:          tab.ID,
			Name:        tab.Name,
			ScriptDirty: tab.ScriptDirty(),
			FileBound:   tab.FileBound(),
			Version:     tab.Version,
		}
		if tab.ModuleBound() {
			info.Module = tab.Binding.Identity.Key()
			info.Facet = string(tab.Binding.Facet)
		}
		if tab.FileBound() {
			info.FilePath = tab.File.Path
		}
		if d, ok := env.drafts.Get(tab.ID); ok {
			info.DirtyFields = d.DirtyFields()
		}
		infos = append(infos, info)
	}

	if statusFormat == "json" {
		return printJSON(infos)
	}
	for _, info := range infos {
		fmt.Printf("%s  %s\n", info.ID, info.Module)
		if info.ScriptDirty {
			fmt.Printf("  script: modified\n")
		}
		if len(info.DirtyFields) > 0 {
			fmt.Printf("  fields: %v\n", info.DirtyFields)
		}
		if !info.ScriptDirty && len(info.DirtyFields) == 0 {
			fmt.Printf("  clean\n")
		}
	}
	return nil
}
