package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates a config file without probing anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a bdixprobe configuration file without running any probes.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  bdixprobe validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	endpoints, err := loadCatalog(cfg)
	if err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Timeout:     %s\n", cfg.Timeout.Duration())
	fmt.Printf("  Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("  Probe:       %s\n", cfg.Probe)
	fmt.Printf("  Catalog:     %d servers\n", len(endpoints))
	return nil
}
