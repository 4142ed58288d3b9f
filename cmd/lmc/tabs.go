package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tabsFormat string

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open tabs",
	RunE:  runTabs,
}

var tabsCloseCmd = &cobra.Command{
	Use:   "close <tab>",
	Short: "Close a tab",
	Long: `Close a tab and detach it from its shared draft.

The shared draft itself survives as long as any sibling tab of the same
module stays open; it is dropped with the last one.`,
	Args: cobra.ExactArgs(1),
	RunE: runTabsClose,
}

func init() {
	tabsCmd.Flags().StringVar(&tabsFormat, "format", "human", "Output format (json, human)")
	tabsCmd.AddCommand(tabsCloseCmd)
	rootCmd.AddCommand(tabsCmd)
}

// TabInfo describes one open tab.
type TabInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Module      string   `json:"module,omitempty"`
	Facet       string   `json:"facet,omitempty"`
	ScriptDirty bool     `json:"scriptDirty"`
	DirtyFields []string `json:"dirtyFields,omitempty"`
	FileBound   bool     `json:"fileBound"`
	FilePath    string   `json:"filePath,omitempty"`
	Version     int      `json:"version,omitempty"`
}

func runTabs(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	var infos []TabInfo
	for _, tab := range env.tabs.List() {
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

	if tabsFormat == "json" {
		return printJSON(infos)
	}
	if len(infos) == 0 {
		fmt.Println("No open tabs.")
		return nil
	}
	for _, info := range infos {
		marker := " "
		if info.ScriptDirty || len(info.DirtyFields) > 0 {
			marker = "*"
		}
		fmt.Printf("%s %-36s  %-10s %s\n", marker, info.ID, info.Facet, info.Module)
	}
	return nil
}

func runTabsClose(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	// Outstanding pulls or commits for the tab must not apply their
	// results once it is gone.
	env.guard.Invalidate("pull/" + tab.ID)
	env.guard.Invalidate("commit/" + tab.ID)
	env.drafts.Detach(tab.ID)
	env.tabs.Remove(tab.ID)

	if err := env.save(); err != nil {
		return err
	}
	fmt.Printf("Closed tab %s\n", tab.ID)
	return nil
}
