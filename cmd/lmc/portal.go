package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	portalAddDescription string
	portalAddToken       string
	portalListFormat     string
)

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Manage registered portals",
}

var portalAddCmd = &cobra.Command{
	Use:   "add <id> <host>",
	Short: "Register a portal",
	Long: `Register a portal by id and host. The first registered portal
becomes the active one. The API token is stored encrypted in the local
vault; pass it with --token or on stdin when prompted.`,
	Args: cobra.ExactArgs(2),
	RunE: runPortalAdd,
}

var portalUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the active portal",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortalUse,
}

var portalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered portals",
	RunE:  runPortalList,
}

var portalRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a portal and its stored credential",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortalRemove,
}

func init() {
	portalAddCmd.Flags().StringVar(&portalAddDescription, "description", "", "Free-form description")
	portalAddCmd.Flags().StringVar(&portalAddToken, "token", "", "API token (read from stdin when omitted)")
	portalListCmd.Flags().StringVar(&portalListFormat, "format", "human", "Output format (json, human)")
	portalCmd.AddCommand(portalAddCmd)
	portalCmd.AddCommand(portalUseCmd)
	portalCmd.AddCommand(portalListCmd)
	portalCmd.AddCommand(portalRemoveCmd)
	rootCmd.AddCommand(portalCmd)
}

func runPortalAdd(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	id, host := args[0], args[1]

	token := portalAddToken
	if token == "" {
		fmt.Fprint(os.Stderr, "API token: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("an API token is required")
	}

	entry, err := env.registry.Add(id, host, portalAddDescription)
	if err != nil {
		return err
	}
	if err := env.vault.SetToken(id, token); err != nil {
		return err
	}
	if err := env.registry.Save(); err != nil {
		return err
	}

	fmt.Printf("Registered portal %s (%s)\n", entry.ID, entry.Host)
	if env.registry.Active == id {
		fmt.Println("It is now the active portal.")
	}
	return nil
}

func runPortalUse(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if err := env.registry.Use(args[0]); err != nil {
		return err
	}
	if err := env.registry.Save(); err != nil {
		return err
	}
	fmt.Printf("Active portal: %s\n", args[0])
	return nil
}

func runPortalList(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	if portalListFormat == "json" {
		return printJSON(env.registry.Portals)
	}
	if len(env.registry.Portals) == 0 {
		fmt.Println("No portals registered; run 'lmc portal add <id> <host>'.")
		return nil
	}
	for _, entry := range env.registry.Portals {
		marker := " "
		if entry.ID == env.registry.Active {
			marker = "*"
		}
		cred := ""
		if !env.vault.HasToken(entry.ID) {
			cred = "  (no credential)"
		}
		fmt.Printf("%s %-16s %s%s\n", marker, entry.ID, entry.Host, cred)
	}
	return nil
}

func runPortalRemove(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	id := args[0]
	if err := env.registry.Remove(id); err != nil {
		return err
	}
	if err := env.vault.DeleteToken(id); err != nil {
		env.logger.Warn("failed to delete stored credential", "portal", id, "error", err)
	}
	if err := env.registry.Save(); err != nil {
		return err
	}
	fmt.Printf("Removed portal %s\n", id)
	return nil
}
