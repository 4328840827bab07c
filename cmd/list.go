package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"vdrm.dev/pkg/vdrm/internal/controller"
)

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the rules of a rule set",
		Long:  "List every rule of the configured rule set with its kind and the positions it references.",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			caller, set, err := loadCaller()
			if err != nil {
				return err
			}

			entries := caller.Entries()

			rules := make([]controller.RuleInfo, 0, len(entries))
			for _, entry := range entries {
				rules = append(rules, controller.RuleInfo{
					Name:      entry.Name,
					Rule:      entry.Rule.String(),
					Numeric:   entry.Rule.Numeric(),
					Positions: entry.Rule.Positions(),
					Comment:   entry.Comment,
				})
			}

			return ui.DisplayRuleList(context.Background(), set.Name, rules)
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
