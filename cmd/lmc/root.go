package main

import (
	"github.com/spf13/cobra"

	"lmc/internal/version"
)

var (
	// verbosity is the CLI -v flag count
	verbosity int
	// quiet suppresses all log output
	quiet bool
)

var rootCmd = &cobra.Command{
	Use:   "lmc",
	Short: "LMC - LogicModule Composer",
	Long: `LMC is a workbench for editing remotely-stored monitoring modules.

Open tabs bound to a module's discovery script, collection script, or
metadata; edit locally; and perform partial, conflict-aware commits back to
the portal. Tabs sharing a module stay mutually consistent, and modules can
be mirrored into a local repository for version-controlled editing.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("LMC version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
}
