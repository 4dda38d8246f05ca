package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shihabalter/bdixprobe/internal/catalog"
)

// fetchTimeout bounds the list download, generously; the published list is a
// few kilobytes.
const fetchTimeout = 30 * time.Second

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the latest BDIX server list",
	Long: `Download the published BDIX server list and write it to a local file,
which run picks up via --catalog (or the catalog config option).

Examples:
  bdixprobe fetch
  bdixprobe fetch -o servers.txt
  bdixprobe fetch --url https://example.com/bdix.txt`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("config", "c", "", "path to config file")
	fetchCmd.Flags().StringP("output", "o", "bdix.txt", "where to write the list")
	fetchCmd.Flags().String("url", "", "list URL (default: the published BDIX list)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	listURL := cfg.CatalogURL
	if u, _ := cmd.Flags().GetString("url"); u != "" {
		listURL = u
	}
	if listURL == "" {
		listURL = catalog.DefaultListURL
	}
	out, _ := cmd.Flags().GetString("output")

	ctx, cancel := context.WithTimeout(cmd.Context(), fetchTimeout)
	defer cancel()

	logger.Info("downloading server list", "url", listURL)
	n, err := catalog.FetchToFile(ctx, listURL, out)
	if err != nil {
		return err
	}

	fmt.Printf("Saved %d servers to %s\n", n, out)
	return nil
}
