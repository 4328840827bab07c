package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vdrm.dev/pkg/vdrm/internal/controller"
	"vdrm.dev/pkg/vdrm/internal/domain"
	m "vdrm.dev/pkg/vdrm/internal/model"
	pkg "vdrm.dev/pkg/vdrm/pkg"
)

var evalParallelFlag int
var evalMissingFlag string
var evalReferenceFlag string

// evalCmd represents the eval command.
var evalCmd = newEvalCmd()

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval [samples...]",
		Short: "Evaluate a rule set against samples",
		Long:  evalLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := context.Background()

			threads := viper.GetInt(parallelConfigKey)
			if threads < 1 {
				threads = defaultParallel
			}

			caller, _, err := loadCaller()
			if err != nil {
				return err
			}

			reference := viper.GetString(referenceConfigKey)

			sampleChannel, sampleErrors := streamSamples(ctx, parsePaths(args), reference, threads)

			reports, err := caller.CallStream(ctx, sampleChannel, sampleErrors, threads)
			if err != nil {
				return err
			}

			if len(reports) == 0 {
				return fmt.Errorf("no samples found in %s", strings.Join(args, " "))
			}

			if err := ui.Start(ctx, controller.WithCallMode()); err != nil {
				return err
			}
			defer ui.Close(ctx)

			ui.DisplayConcurrencyInfo(ctx, threads, len(reports)/len(caller.Entries()), len(caller.Entries()))

			summaries, err := persistReports(m.Path(viper.GetString(outputFlagName)), reports)
			if err != nil {
				return err
			}

			if err := ui.DisplayReports(ctx, reports); err != nil {
				return err
			}

			ui.DisplaySummary(ctx, summaries, domain.ResistanceRate(summaries))
			ui.Wait(ctx)

			return nil
		},
	}

	configureEvalFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func configureEvalFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&evalParallelFlag, parallelFlagName, "p", viper.GetInt(parallelConfigKey), "number of parallel workers for rule calling")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), parallelConfigKey)

	cmd.Flags().StringVarP(&evalMissingFlag, missingFlagName, "m", viper.GetString(missingConfigKey), "missing position policy: false or propagate")
	bindFlagToConfig(cmd.Flags().Lookup(missingFlagName), missingConfigKey)

	cmd.Flags().StringVar(&evalReferenceFlag, referenceFlagName, viper.GetString(referenceConfigKey), "reference amino acid sequence for fasta inputs")
	bindFlagToConfig(cmd.Flags().Lookup(referenceFlagName), referenceConfigKey)
}

// loadCaller loads the configured rule set and compiles it under the
// configured missing position policy.
func loadCaller() (domain.Caller, m.RuleSet, error) {
	rulesPath := viper.GetString(rulesConfigKey)
	if strings.TrimSpace(rulesPath) == "" {
		return nil, m.RuleSet{}, fmt.Errorf("rule set file required (--%s)", rulesFlagName)
	}

	set, err := ruleSetStore.LoadRuleSet(m.Path(rulesPath))
	if err != nil {
		return nil, m.RuleSet{}, err
	}

	opts, err := missingPolicyOptions(viper.GetString(missingConfigKey))
	if err != nil {
		return nil, m.RuleSet{}, err
	}

	caller, err := domain.NewCaller(set, opts...)
	if err != nil {
		return nil, m.RuleSet{}, err
	}

	return caller, set, nil
}

func missingPolicyOptions(name string) ([]domain.Option, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", missingAsFalseName:
		return nil, nil
	case propagateMissingName:
		return []domain.Option{domain.WithMissingPolicy(domain.PropagateMissing)}, nil
	default:
		return nil, fmt.Errorf("unknown missing policy %q (want %q or %q)",
			name, missingAsFalseName, propagateMissingName)
	}
}

// streamSamples turns every sample input into one stream. Fasta files are
// diffed against the reference up front; everything else is forwarded from
// the calls-file channel so whole cohort directories work. Failures surface
// on the returned error channel so the pipeline can merge them with
// evaluation errors.
func streamSamples(ctx context.Context, paths []m.Path, reference string, threads int) (<-chan m.Sample, <-chan error) {
	out := make(chan m.Sample, threads)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		var callPaths []m.Path

		for _, path := range paths {
			switch filepath.Ext(string(path)) {
			case ".fasta", ".fa":
				loaded, err := sampleStore.LoadFasta(path, reference)
				if err != nil {
					errs <- err
					return
				}

				for _, sample := range loaded {
					select {
					case <-ctx.Done():
						return
					case out <- sample:
					}
				}
			default:
				callPaths = append(callPaths, path)
			}
		}

		if len(callPaths) == 0 {
			return
		}

		sampleChannel, errorChannel := sampleStore.GetChannel(ctx, callPaths, threads)

		for sample := range sampleChannel {
			select {
			case <-ctx.Done():
				return
			case out <- sample:
			}
		}

		if err := <-errorChannel; err != nil {
			errs <- err
		}
	}()

	return out, errs
}

// persistReports writes the reports to the output directory, both as a gob
// spill for large runs and as YAML for the view command, and folds the spill
// into per-rule summaries.
func persistReports(dir m.Path, reports []m.Report) ([]m.Summary, error) {
	if err := os.MkdirAll(string(dir), 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	spill, err := pkg.NewFileSpillAt[m.Report](filepath.Join(string(dir), spillFileName))
	if err != nil {
		return nil, err
	}

	defer func() { _ = spill.Close() }()

	if err := spill.AppendBatch(reports); err != nil {
		return nil, err
	}

	summaries, err := domain.SummarizeSpill(spill)
	if err != nil {
		return nil, err
	}

	reportsPath := m.Path(filepath.Join(string(dir), reportsFileName))
	if err := reportStore.SaveReports(reportsPath, reports); err != nil {
		return nil, err
	}

	return summaries, nil
}
