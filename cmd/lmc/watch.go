package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"lmc/internal/mirror"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch mirrored files and feed edits back into their tabs",
	Long: `Watch the repository files of every file-bound tab. When a mirrored
script changes on disk, its tab's content is updated in place, exactly
as if the edit had been typed into the tab. Runs until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", mirror.DefaultDebounce, "Quiet period before a file change is applied")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	bound := 0
	for _, tab := range env.tabs.List() {
		if tab.FileBound() {
			bound++
		}
	}
	if bound == 0 {
		fmt.Println("No file-bound tabs to watch; run 'lmc clone' first.")
		return nil
	}
	fmt.Printf("Watching %d mirrored file(s). Ctrl-C to stop.\n", bound)

	m := mirror.New(env.tabs, env.logger)
	watcher := mirror.NewWatcher(env.tabs, m, watchDebounce)

	ctx, cancel := newContext()
	defer cancel()

	return watcher.Run(ctx, func(tabID string) {
		if err := env.save(); err != nil {
			env.logger.Error("failed to persist watched change", "tab", tabID, "error", err)
			return
		}
		fmt.Printf("Updated tab %s from disk\n", tabID)
	})
}
