package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Guliveer/vitalis/vmstats/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "vmstats",
	Short: "Process telemetry collector for Go runtimes",
	Long: `vmstats periodically samples garbage collection, memory, CPU time, scheduler
latency, thread and file descriptor counts of the running process and reports
each sample to a sink.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to configuration file (default: search vmstats.yaml and the standard locations)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level. One of debug, info, warn, error.")

	rootCmd.AddCommand(runCmd, versionCmd, configCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the layered configuration for the current flags.
func loadConfig(cli config.CLIOverrides) (*config.Config, error) {
	cli.LogLevel = logLevel
	if configPath != "" {
		return config.LoadLayered(cli, embeddedConfig, configPath)
	}
	return config.LoadLayered(cli, embeddedConfig)
}
