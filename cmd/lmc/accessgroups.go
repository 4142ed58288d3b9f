package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var accessGroupsFormat string

var accessGroupsCmd = &cobra.Command{
	Use:   "access-groups",
	Short: "List the active portal's access groups",
	Long: `List the access groups defined on the active portal, for use as
'lmc details set <tab> accessGroups' values.`,
	RunE: runAccessGroups,
}

func init() {
	accessGroupsCmd.Flags().StringVar(&accessGroupsFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(accessGroupsCmd)
}

func runAccessGroups(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	client, err := env.portalClient("")
	if err != nil {
		return err
	}

	ctx, cancel := newOpContext()
	defer cancel()

	groups, err := client.FetchAccessGroups(ctx)
	if err != nil {
		return err
	}

	if accessGroupsFormat == "json" {
		return printJSON(groups)
	}
	for _, g := range groups {
		fmt.Printf("%-6d %-24s %s\n", g.ID, g.Name, g.Description)
	}
	return nil
}
