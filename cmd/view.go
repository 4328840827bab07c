package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"vdrm.dev/pkg/vdrm/internal/controller"
	"vdrm.dev/pkg/vdrm/internal/domain"
	m "vdrm.dev/pkg/vdrm/internal/model"
)

// newViewer builds the UI used by the view command. A variable so tests can
// substitute a non-interactive UI.
var newViewer = func() controller.UI {
	return controller.NewTUI(os.Stdout)
}

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "View previously generated resistance reports",
		Long:  "View previously generated resistance call reports from a reports directory.",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			reportsPath := m.Path(filepath.Join(viper.GetString(outputFlagName), reportsFileName))

			reports, err := reportStore.LoadReports(reportsPath)
			if err != nil {
				return err
			}

			viewer := newViewer()
			if err := viewer.Start(ctx, controller.WithViewMode()); err != nil {
				return err
			}
			defer viewer.Close(ctx)

			if err := viewer.DisplayReports(ctx, reports); err != nil {
				return err
			}

			summaries := domain.Summarize(reports)
			viewer.DisplaySummary(ctx, summaries, domain.ResistanceRate(summaries))
			viewer.Wait(ctx)

			return nil
		},
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
