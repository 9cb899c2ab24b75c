package cli

import (
	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var importOpts app.ImportOptions

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load annual extremes from a CSV file into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Import(cmd.Context(), importOpts)
	},
}

func init() {
	importCmd.Flags().StringVar(&importOpts.Input, "input", "", "CSV file to import")
	importCmd.Flags().StringVar(&importOpts.Station, "station", "", "Station id for rows without a station_id column")
	importCmd.Flags().StringVar(&importOpts.AggFunc, "agg", "", "Aggregation label applied to every row")
	importCmd.Flags().BoolVar(&importOpts.DryRun, "dry-run", false, "Validate the file without writing")
}
