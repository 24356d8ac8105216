package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bastion",
	Short: "Bastion - operational guardrails for high-value operations",
	Long: `Bastion is an admission control service that guards high-value
operations behind a single authorization surface.

Every call passes through three gates in order: emergency pause,
circuit breaker, and rate limiter, short-circuiting on the first
denial. Alongside the hot path, a timelock governor delays sensitive
administrative actions and an anomaly detector flags volume spikes
against rolling baselines.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
