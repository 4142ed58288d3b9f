package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lmc/internal/tabs"
)

var editFromFile string

var editCmd = &cobra.Command{
	Use:   "edit <tab>",
	Short: "Replace a tab's script content",
	Long: `Replace a tab's content from a file or from stdin.

The baseline stays untouched, so the tab becomes dirty when the new
content differs from it:

  lmc edit a1b2 --from-file collection.groovy
  cat collection.groovy | lmc edit a1b2`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().StringVar(&editFromFile, "from-file", "", "Read the new content from this file (default: stdin)")
	rootCmd.AddCommand(editCmd)
}

func runEdit(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	if err := loadTabContent(env, tab.ID, editFromFile); err != nil {
		return err
	}
	if err := env.save(); err != nil {
		return err
	}

	updated := env.tabs.Get(tab.ID)
	if updated.ScriptDirty() {
		fmt.Printf("Updated tab %s (modified)\n", tab.ID)
	} else {
		fmt.Printf("Updated tab %s (matches baseline)\n", tab.ID)
	}
	return nil
}

// loadTabContent replaces the tab's content from a file, or stdin when the
// path is empty.
func loadTabContent(env *composerEnv, tabID, path string) error {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	content := string(data)
	env.tabs.Apply([]string{tabID}, func(t *tabs.Tab) {
		t.Content = content
	})
	return nil
}
