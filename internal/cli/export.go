package cli

import (
	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var exportOpts app.ExportOptions

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the frequency curve as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), exportOpts)
	},
}

func init() {
	addSourceFlags(exportCmd, &exportOpts.Source)
	exportCmd.Flags().StringVar(&exportOpts.Distribution, "distribution", "", "Distribution to export, or auto (defaults to config)")
	exportCmd.Flags().IntVar(&exportOpts.Points, "points", 0, "Theoretical curve points (defaults to config)")
	exportCmd.Flags().StringVar(&exportOpts.PNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportOpts.CSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportOpts.Decimals, "decimals", -1, "Decimal places for values (defaults to config)")
}
