package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shihabalter/bdixprobe/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host the probing API for a UI shell",
	Long: `Start an HTTP server exposing the probing engine to an external UI.

Endpoints:
  POST /api/run            start a run (409 while one is in flight)
  POST /api/cancel         cancel gracefully; ?hard=true abandons in-flight probes
  GET  /api/status         JSON progress snapshot
  GET  /api/events         Server-Sent Events stream of results
  GET  /api/live           WebSocket stream of results

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  bdixprobe serve -c config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("config", "c", "", "path to config file")
	serveCmd.Flags().Int("port", 0, "HTTP port (default 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	endpoints, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "endpoints", len(endpoints))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(endpoints, newProber(cfg), cfg.Concurrency, cfg.Port, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	logger.Info("server listening", "port", cfg.Port)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
