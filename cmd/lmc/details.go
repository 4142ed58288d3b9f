package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var detailsFormat string

var detailsCmd = &cobra.Command{
	Use:   "details",
	Short: "Inspect and edit a module's metadata draft",
	Long: `Work with the shared metadata draft behind a tab.

The first 'details get' for a module fetches its full record from the
portal and attaches the draft to every sibling tab. Edits made through
'details set' are visible from all of them.`,
}

var detailsGetCmd = &cobra.Command{
	Use:   "get <tab> [field]",
	Short: "Show the draft's field values",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDetailsGet,
}

var detailsSetCmd = &cobra.Command{
	Use:   "set <tab> <field> <value>",
	Short: "Stage a field edit on the shared draft",
	Long: `Stage a field edit. The value is parsed as JSON when possible, so
lists and numbers work naturally:

  lmc details set a1b2 collectInterval 300
  lmc details set a1b2 accessGroups '[3, 1, 2]'
  lmc details set a1b2 description "Updated by ops"

Setting a field back to its baseline value clears its dirty mark.`,
	Args: cobra.ExactArgs(3),
	RunE: runDetailsSet,
}

var detailsResetCmd = &cobra.Command{
	Use:   "reset <tab>",
	Short: "Discard all staged field edits",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetailsReset,
}

func init() {
	detailsGetCmd.Flags().StringVar(&detailsFormat, "format", "human", "Output format (json, yaml, human)")
	detailsCmd.AddCommand(detailsGetCmd)
	detailsCmd.AddCommand(detailsSetCmd)
	detailsCmd.AddCommand(detailsResetCmd)
	rootCmd.AddCommand(detailsCmd)
}

// FieldView is one field of a draft as shown to the user.
type FieldView struct {
	Field    string      `json:"field" yaml:"field"`
	Value    interface{} `json:"value" yaml:"value"`
	Original interface{} `json:"original,omitempty" yaml:"original,omitempty"`
	Dirty    bool        `json:"dirty" yaml:"dirty"`
}

func runDetailsGet(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newOpContext()
	defer cancel()

	d, err := env.drafts.LoadDetails(ctx, tab.ID)
	if err != nil {
		return err
	}
	if err := env.save(); err != nil {
		return err
	}

	dirty := make(map[string]bool)
	for _, f := range d.DirtyFields() {
		dirty[f] = true
	}

	var views []FieldView
	if len(args) == 2 {
		field := args[1]
		value, ok := d.Current[field]
		if !ok {
			return fmt.Errorf("field %q not present on %s modules", field, d.ModuleType)
		}
		views = append(views, FieldView{
			Field:    field,
			Value:    value,
			Original: d.Original[field],
			Dirty:    dirty[field],
		})
	} else {
		names := make([]string, 0, len(d.Current))
		for name := range d.Current {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v := FieldView{Field: name, Value: d.Current[name], Dirty: dirty[name]}
			if v.Dirty {
				v.Original = d.Original[name]
			}
			views = append(views, v)
		}
	}

	switch detailsFormat {
	case "json":
		return printJSON(views)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(views)
	default:
		for _, v := range views {
			marker := " "
			if v.Dirty {
				marker = "*"
			}
			fmt.Printf("%s %-20s %v\n", marker, v.Field, v.Value)
		}
		return nil
	}
}

func runDetailsSet(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := newOpContext()
	defer cancel()

	// The draft must exist before a field can be staged on it.
	if _, err := env.drafts.LoadDetails(ctx, tab.ID); err != nil {
		return err
	}

	field := args[1]
	value := parseFieldValue(args[2])
	d, err := env.drafts.UpdateField(tab.ID, field, value)
	if err != nil {
		return err
	}
	if err := env.save(); err != nil {
		return err
	}

	if len(d.DirtyFields()) == 0 {
		fmt.Printf("Set %s; draft is now clean\n", field)
	} else {
		fmt.Printf("Set %s; dirty fields: %v\n", field, d.DirtyFields())
	}
	return nil
}

func runDetailsReset(cmd *cobra.Command, args []string) error {
	env, err := newEnv()
	if err != nil {
		return err
	}
	defer env.close()

	tab, err := resolveTab(env.tabs, args[0])
	if err != nil {
		return err
	}
	if _, err := env.drafts.ResetDraft(tab.ID); err != nil {
		return err
	}
	if err := env.save(); err != nil {
		return err
	}
	fmt.Println("Draft reset to baseline.")
	return nil
}

// parseFieldValue interprets the raw argument as JSON when it parses,
// falling back to a plain string.
func parseFieldValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}
