package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vdrm.dev/pkg/vdrm/internal/domain"
	m "vdrm.dev/pkg/vdrm/internal/model"
)

// checkCmd represents the check command.
var checkCmd = newCheckCmd()

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Compile-check rule set files",
		Long:  "Compile every rule of the given rule set files and report syntax errors with their position.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := missingPolicyOptions(viper.GetString(missingConfigKey))
			if err != nil {
				return err
			}

			failed := 0

			for _, arg := range args {
				if err := checkRuleFile(cmd, m.Path(arg), opts); err != nil {
					failed++

					cmd.Printf("%s: %v\n", arg, err)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d file(s) failed", failed, len(args))
			}

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func checkRuleFile(cmd *cobra.Command, path m.Path, opts []domain.Option) error {
	set, err := ruleSetStore.LoadRuleSet(path)
	if err != nil {
		return err
	}

	if _, err := domain.NewCaller(set, opts...); err != nil {
		return err
	}

	cmd.Printf("%s: %d rule(s) ok\n", path, len(set.Entries))

	return nil
}
