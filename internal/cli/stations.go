package cli

import (
	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
)

var stationsOpts app.StationsOptions

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List stations and record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stations(cmd.Context(), stationsOpts)
	},
}

func init() {
	stationsCmd.Flags().StringVar(&stationsOpts.Source.Input, "input", "", "List stations of a CSV file instead of the database")
	stationsCmd.Flags().StringVar(&stationsOpts.Source.AggFunc, "agg", "", "Aggregation label to count (defaults to config)")
	stationsCmd.Flags().StringVar(&stationsOpts.Format, "format", app.FormatTable, "Output format: table or json")
}
