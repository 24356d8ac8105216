package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bastion-hq/bastion/pkg/cli"
	"bastion-hq/bastion/pkg/config"
)

var validateFlags struct {
	format string
	env    bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults, and run the full
validation pass without starting the server.

All validation errors are collected and reported together, each with
the dotted path of the offending field.

Examples:
  # Validate the default config
  bastion validate

  # Validate a specific file
  bastion validate --config /etc/bastion/config.yaml

  # Include BASTION_* environment overrides in the check
  bastion validate --env

  # Emit the resolved configuration as JSON
  bastion validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.format, "format", "text", "output format: text, json")
	validateCmd.Flags().BoolVar(&validateFlags.env, "env", false, "apply environment variable overrides before validating")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	load := config.LoadConfig
	if validateFlags.env {
		load = config.LoadConfigWithEnvOverrides
	}

	cfg, err := load(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	if validateFlags.format == string(cli.FormatJSON) {
		resolved := map[string]any{
			"valid":           true,
			"listen_address":  cfg.Server.ListenAddress,
			"storage_backend": cfg.Storage.Backend,
			"operation_rules": len(cfg.Guards.Operations),
			"audit_enabled":   cfg.Events.Audit.Enabled,
		}
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, resolved)
	}

	fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
	fmt.Printf("  Listen address:  %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Storage backend: %s\n", cfg.Storage.Backend)
	fmt.Printf("  Operation rules: %d\n", len(cfg.Guards.Operations))
	fmt.Printf("  Audit trail:     %v\n", cfg.Events.Audit.Enabled)
	return nil
}
