package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shihabalter/bdixprobe/config"
	"github.com/shihabalter/bdixprobe/internal/history"
	"github.com/shihabalter/bdixprobe/internal/probe"
	"github.com/shihabalter/bdixprobe/internal/report"
	"github.com/shihabalter/bdixprobe/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe the catalog and save the working servers",
	Long: `Probe every server in the catalog concurrently and report which are
reachable. Working servers are written to the output file as
"name,address,latencyMs" lines, ranked fastest first; that file is itself a
valid catalog for a later run.

Ctrl+C once stops dispatching and lets in-flight probes finish; Ctrl+C a
second time (or hard_cancel: true) abandons them.

Examples:
  bdixprobe run
  bdixprobe run --catalog bdix.txt --timeout 3s --concurrency 64
  bdixprobe run -c config.yaml -o working.txt`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file")
	runCmd.Flags().String("catalog", "", "path to a server list (default: built-in list)")
	runCmd.Flags().StringP("output", "o", "", "file for working servers (default: working_sites_<timestamp>.txt)")
	runCmd.Flags().Duration("timeout", 0, "per-probe timeout (default 5s)")
	runCmd.Flags().Int("concurrency", 0, "max in-flight probes (default 32)")
	runCmd.Flags().Bool("tcp", false, "use a plain TCP connect instead of HTTP")
	runCmd.Flags().String("history", "", "SQLite database to record the run in")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	endpoints, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		logger.Info("catalog is empty, nothing to probe")
		return nil
	}

	prober := newProber(cfg)
	if hp, ok := prober.(*probe.HTTPProber); ok {
		defer hp.Close()
	}
	run, err := runner.New(endpoints, prober, cfg.Concurrency, logger)
	if err != nil {
		return err
	}
	agg := report.New(endpoints)

	logger.Info("starting run",
		"endpoints", len(endpoints),
		"concurrency", cfg.Concurrency,
		"timeout", cfg.Timeout.Duration().String(),
		"probe", cfg.Probe,
	)

	startedAt := time.Now()
	run.Start(cmd.Context())

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	cancelled := false

	var g errgroup.Group
	g.Go(func() error {
		defer close(done)
		for res := range run.Results() {
			agg.Record(res)
			printResult(res)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-sigCh:
			cancelled = true
			if cfg.HardCancel {
				logger.Warn("interrupt: abandoning in-flight probes")
				run.Abort()
				return nil
			}
			logger.Info("interrupt: waiting for in-flight probes, press Ctrl+C again to abandon")
			run.Cancel()
			select {
			case <-sigCh:
				logger.Warn("second interrupt: abandoning in-flight probes")
				run.Abort()
			case <-done:
			}
		case <-done:
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	agg.Finalize()

	rep, err := agg.Final()
	if err != nil {
		return err
	}
	finishedAt := time.Now()

	printSummary(rep, len(endpoints), finishedAt.Sub(startedAt))

	if len(rep.Reachable) > 0 {
		out := cfg.Output
		if out == "" {
			out = report.DefaultFilename(finishedAt)
		}
		if err := report.WriteFile(out, rep.Reachable); err != nil {
			return err
		}
		logger.Info("results saved", "file", out, "working", len(rep.Reachable))
	} else {
		logger.Info("no working servers, nothing to save")
	}

	if cfg.History != "" {
		if err := saveHistory(cmd.Context(), cfg.History, rep, len(endpoints), startedAt, finishedAt, cancelled, logger); err != nil {
			// the run itself succeeded; a history failure is not fatal
			logger.Error("failed to record run history", "error", err)
		}
	}

	return nil
}

// applyRunFlags lets explicit flags override file-supplied values.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("catalog") {
		cfg.Catalog, _ = cmd.Flags().GetString("catalog")
	}
	if cmd.Flags().Changed("output") {
		cfg.Output, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("timeout") {
		d, _ := cmd.Flags().GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	}
	if cmd.Flags().Changed("tcp") {
		if tcp, _ := cmd.Flags().GetBool("tcp"); tcp {
			cfg.Probe = config.ProbeTCP
		}
	}
	if cmd.Flags().Changed("history") {
		cfg.History, _ = cmd.Flags().GetString("history")
	}
}

// printResult writes one progress line per completed probe.
func printResult(res probe.Result) {
	switch res.Outcome {
	case probe.Reachable:
		fmt.Printf("✓ %s (%s) %dms\n", res.Name, res.URL, res.Latency.Milliseconds())
	case probe.TimedOut:
		fmt.Printf("✗ %s (%s) timed out\n", res.Name, res.URL)
	case probe.Unreachable:
		fmt.Printf("✗ %s (%s) unreachable\n", res.Name, res.URL)
	default:
		fmt.Printf("✗ %s (%s) error: %v\n", res.Name, res.URL, res.Err)
	}
}

func printSummary(rep report.Report, total int, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("Test results:")
	fmt.Printf("  Total servers:   %d\n", total)
	fmt.Printf("  Tested:          %d\n", len(rep.Results))
	fmt.Printf("  Working:         %d\n", len(rep.Reachable))
	fmt.Printf("  Failed:          %d\n", len(rep.Results)-len(rep.Reachable))
	fmt.Printf("  Elapsed:         %s\n", elapsed.Round(time.Millisecond))
	for i, res := range rep.Reachable {
		fmt.Printf("  %2d. %s (%s) %dms\n", i+1, res.Name, res.URL, res.Latency.Milliseconds())
	}
}

func saveHistory(ctx context.Context, path string, rep report.Report, total int,
	startedAt, finishedAt time.Time, cancelled bool, logger *slog.Logger) error {

	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.SaveRun(ctx, history.RunRecord{
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Total:      total,
		Completed:  len(rep.Results),
		Reachable:  len(rep.Reachable),
		Cancelled:  cancelled,
	}, rep.Results)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "run_id", id, "db", path)
	return nil
}
