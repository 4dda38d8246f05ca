package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shihabalter/bdixprobe/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `List runs recorded in the history database, newest first.
With --run, print the stored per-server results of one run instead.

Examples:
  bdixprobe history --db runs.db
  bdixprobe history --db runs.db --run 6a1f...`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("config", "c", "", "path to config file")
	historyCmd.Flags().String("db", "", "history database path (overrides config)")
	historyCmd.Flags().Int("limit", 20, "how many runs to list")
	historyCmd.Flags().String("run", "", "show the results of one run by ID")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.History
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		path = db
	}
	if path == "" {
		return fmt.Errorf("no history database configured (use --db or the history config option)")
	}

	store, err := history.Open(cmd.Context(), path)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		results, err := store.RunResults(cmd.Context(), runID)
		if err != nil {
			return err
		}
		for _, r := range results {
			line := fmt.Sprintf("%-12s %s (%s)", r.Outcome, r.Name, r.URL)
			if r.Outcome == "reachable" {
				line += fmt.Sprintf(" %dms", r.LatencyMs)
			}
			if r.Error != "" {
				line += " - " + r.Error
			}
			fmt.Println(line)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	records, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	for _, rec := range records {
		status := ""
		if rec.Cancelled {
			status = " (cancelled)"
		}
		fmt.Printf("%s  %s  %d/%d tested, %d working%s\n",
			rec.ID,
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Completed, rec.Total, rec.Reachable, status)
	}
	return nil
}
