// Package main is the entry point for the bdixprobe CLI.
//
// bdixprobe tests which BDIX servers are reachable from the current network
// and saves the working set for later use.
//
// Usage:
//
//	bdixprobe run                    # probe the catalog, save working servers
//	bdixprobe run -c config.yaml     # same, with a config file
//	bdixprobe fetch                  # refresh the local server list
//	bdixprobe serve -c config.yaml   # host the progress API for a UI
//	bdixprobe history --db runs.db   # list stored runs
//	bdixprobe validate -c config.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shihabalter/bdixprobe/config"
	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "bdixprobe",
	Short: "Test which BDIX servers are reachable from your network",
	Long: `bdixprobe probes a catalog of BDIX servers concurrently and reports
which are reachable, how fast they answer, and saves the working set to a
file you can reuse as a catalog for the next run.

Quick start:
  bdixprobe run

The built-in server list is used unless --catalog or a config file points
elsewhere. Press Ctrl+C once for a graceful stop (in-flight probes finish),
twice to abandon them.`,
}

// newLogger creates a JSON logger for CLI use. Log output goes to stderr so
// stdout stays clean for the per-server progress lines.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// loadConfig resolves the optional --config flag into a Config.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// loadCatalog resolves the configured catalog: a file when one is set, the
// embedded list otherwise.
func loadCatalog(cfg *config.Config) ([]catalog.Endpoint, error) {
	if cfg.Catalog != "" {
		return catalog.Load(cfg.Catalog)
	}
	return catalog.Default(), nil
}

// newProber builds the prober selected by the config.
func newProber(cfg *config.Config) probe.Prober {
	if cfg.Probe == config.ProbeTCP {
		return probe.NewTCPProber(cfg.Timeout.Duration())
	}
	return probe.NewHTTPProber(cfg.Timeout.Duration())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bdixprobe %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}
