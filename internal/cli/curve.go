package cli

import (
	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var curveOpts app.CurveOptions

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the fitted frequency curve with the empirical points",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Curve(cmd.Context(), curveOpts)
	},
}

func init() {
	addSourceFlags(curveCmd, &curveOpts.Source)
	curveCmd.Flags().StringVar(&curveOpts.Distribution, "distribution", "", "Distribution to draw, or auto (defaults to config)")
	curveCmd.Flags().IntVar(&curveOpts.Points, "points", 0, "Theoretical curve points (defaults to config)")
	curveCmd.Flags().StringVar(&curveOpts.Format, "format", app.FormatJSON, "Output format: json or table")
	curveCmd.Flags().StringVarP(&curveOpts.Output, "output", "o", "", "Write the curve to a file instead of stdout")
}
