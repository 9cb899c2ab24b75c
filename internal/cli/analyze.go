package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var (
	analyzeOpts        app.AnalyzeOptions
	analyzeUncertainty bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full frequency analysis and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := analyzeOpts
		if cmd.Flags().Changed("uncertainty") {
			opts.Uncertainty = &analyzeUncertainty
		}
		if opts.Format != app.FormatJSON && opts.Format != app.FormatTable {
			return fmt.Errorf("--format must be %q or %q", app.FormatJSON, app.FormatTable)
		}
		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	addSourceFlags(analyzeCmd, &analyzeOpts.Source)
	analyzeCmd.Flags().StringVar(&analyzeOpts.Distribution, "distribution", "", "Distribution to use, or auto (defaults to config)")
	analyzeCmd.Flags().IntSliceVar(&analyzeOpts.ReturnPeriods, "return-periods", nil, "Return periods in years (defaults to config)")
	analyzeCmd.Flags().BoolVar(&analyzeUncertainty, "uncertainty", false, "Compute bootstrap confidence bounds")
	analyzeCmd.Flags().IntVar(&analyzeOpts.Samples, "samples", 0, "Bootstrap resamples (defaults to config)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.Format, "format", app.FormatJSON, "Output format: json or table")
	analyzeCmd.Flags().StringVarP(&analyzeOpts.Output, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.PerStation, "per-station", false, "Analyse every station separately")
}
