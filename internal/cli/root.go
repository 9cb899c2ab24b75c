package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flood-frequency/internal/app"
	"flood-frequency/internal/config"
	"flood-frequency/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	appHandle *app.App
)

var rootCmd = &cobra.Command{
	Use:           "floodfreq",
	Short:         "Flood frequency analysis of annual extreme series",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if appHandle != nil {
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logLevel != "" {
			if _, err := logging.ParseLevel(logLevel); err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			cfg.Logging.Level = logLevel
		}

		logger := logging.NewLogger(cfg.Logging)
		appHandle = app.NewApp(cfg, logger)
		appHandle.Out = cmd.OutOrStdout()
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level defined in config")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(curveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(stationsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

func getApp() *app.App {
	if appHandle == nil {
		panic("application not initialized; PersistentPreRunE not executed")
	}
	return appHandle
}

// addSourceFlags binds the flags shared by every command that reads a series.
func addSourceFlags(cmd *cobra.Command, src *app.SourceOptions) {
	cmd.Flags().StringVar(&src.Input, "input", "", "CSV file with year,value (and optional station_id,source,agg_func) columns")
	cmd.Flags().StringSliceVar(&src.Stations, "station", nil, "Station id(s) to load; repeat or comma-separate")
	cmd.Flags().StringVar(&src.AggFunc, "agg", "", "Aggregation label of the series: max, min or mean (defaults to config)")
}
