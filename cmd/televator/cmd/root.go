package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "televator",
	Short:         "televator - elevator ride estimates from latency spikes",
	Long:          "Probes a remote endpoint, flags latency anomalies with a smoothed z-score filter and estimates elevator rides between enter and exit marks.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to configuration file (defaults to $TELEVATOR_CONFIG)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(ridesCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(versionCmd)
}
