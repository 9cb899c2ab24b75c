package cli

import (
	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var fitOpts app.FitOptions

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit candidate distributions and print them ranked by AIC",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Fit(cmd.Context(), fitOpts)
	},
}

func init() {
	addSourceFlags(fitCmd, &fitOpts.Source)
	fitCmd.Flags().StringSliceVar(&fitOpts.Families, "distribution", nil, "Restrict fitting to these families")
	fitCmd.Flags().StringVar(&fitOpts.Format, "format", app.FormatTable, "Output format: table or json")
	fitCmd.Flags().StringVarP(&fitOpts.Output, "output", "o", "", "Write the ranking to a file instead of stdout")
}
