package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lmc/internal/commit"
	"lmc/internal/conflict"
	"lmc/internal/errors"
)

var (
	commitReason    string
	commitForce     bool
	commitSkipCheck bool
	commitFormat    string
	commitEditFile  string
)

var commitCmd = &cobra.Command{
	Use:   "commit <tab>",
	Short: "Commit a tab's changes to the portal",
	Long: `Commit the tab's script (when modified) together with any dirty
metadata fields of the shared draft, as one partial update.

A pre-commit check fetches the portal's current script and compares it
against the baseline this tab last saw. On divergence the commit is
blocked; re-running with --force commits over the portal's copy.`,
	Args: cobra.ExactArgs(1),
	RunE: runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitReason, "reason", "m", "", "Commit reason recorded in the lineage")
	commitCmd.Flags().BoolVar(&commitForce, "force", false, "Commit even if the portal's copy diverged")
	commitCmd.Flags().BoolVar(&commitSkipCheck, "skip-conflict-check", false, "Skip the pre-commit conflict fetch")
	commitCmd.Flags().StringVar(&commitEditFile, "from-file", "", "Replace the tab's content from this file before committing")
	commitCmd.Flags().StringVar(&commitFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	if commitEditFile != "" {
		if err := loadTabContent(env, tab.ID, commitEditFile); err != nil {
			return err
		}
	}

	if env.cfg.Commit.RequireReason && commitReason == "" {
		return errors.New(errors.InternalError, "commit.require_reason is set; pass --reason")
	}

	adapter := &gatewayAdapter{env: env}
	detector := conflict.NewDetector(env.tabs, adapter, env.logger)
	engine := commit.NewEngine(env.tabs, env.drafts, adapter, detector, env.guard, env.activePortal, env.logger)

	ctx, cancel := newOpContext()
	defer cancel()

	result, err := engine.Commit(ctx, tab.ID, commit.Options{
		Reason:            commitReason,
		Force:             commitForce,
		SkipConflictCheck: commitSkipCheck,
	})
	if err != nil {
		// The conflict check may have advanced baselines even when the
		// commit itself failed.
		_ = env.save()
		return err
	}
	if err := env.save(); err != nil {
		return err
	}

	if commitFormat == "json" {
		return printJSON(result)
	}
	if !result.Committed {
		if result.Conflict != nil && result.Conflict.HasConflict {
			fmt.Println("Commit blocked: the portal's copy changed since this tab last synced.")
			fmt.Printf("  %s\n", result.Conflict.Message)
			fmt.Println("  Re-run with --force to commit over it, or 'lmc pull' to take the portal's version.")
			return nil
		}
		fmt.Println("Nothing committed.")
		return nil
	}
	fmt.Printf("Committed version %d\n", result.Version)
	if result.ScriptCommitted {
		fmt.Println("  script: updated")
	}
	if len(result.FieldsCommitted) > 0 {
		fmt.Printf("  fields: %v\n", result.FieldsCommitted)
	}
	return nil
}
