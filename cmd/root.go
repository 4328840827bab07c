// Package cmd provides the root command and CLI setup for vdrm.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vdrm.dev/pkg/vdrm/internal/adapter"
	"vdrm.dev/pkg/vdrm/internal/controller"
	m "vdrm.dev/pkg/vdrm/internal/model"
)

var ruleSetStore adapter.RuleSetStore
var sampleStore adapter.SampleStore
var reportStore adapter.ReportStore
var ui controller.UI

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

// rulesFileFlag points at the rule set used by eval and list.
var rulesFileFlag string

// verboseFlag switches file logging to debug level.
var verboseFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	// Initialize shared dependencies.
	ui = controller.NewSimpleUI(rootCmd)
	ruleSetStore = adapter.NewFileRuleSetStore()
	sampleStore = adapter.NewFileSampleStore()
	reportStore = adapter.NewFileReportStore()
}

const sampleFormatsHelp = `Sample inputs:
  - cohort.calls    one sample per line: "name: 41L 67N 70d"
  - cohort.fasta    aligned amino acid sequences, diffed against --reference
  - directory       walked recursively for *.calls files`

const rootLongDescription = `Vdrm compiles genomic drug-resistance rules and calls them against
sequenced samples, reporting per-drug resistance verdicts with the
mutations supporting each call.

` + sampleFormatsHelp

const evalLongDescription = `Evaluate every rule of a rule set against the given sample files.

` + sampleFormatsHelp

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vdrm",
		Short: "Genomic drug resistance rule caller",
		Long:  rootLongDescription,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"output directory for resistance call reports",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().StringVarP(&rulesFileFlag, rulesFlagName, "r", viper.GetString(rulesConfigKey), "rule set file (.yaml or .rules)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(rulesFlagName), rulesConfigKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, "", "log file location (default "+defaultLogFilename+")")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
