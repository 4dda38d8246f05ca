package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shihabalter/bdixprobe/internal/probe"
)

// Export writes the working set, one "name,address,latencyMs" line per
// endpoint, in the order given (the final report hands them over already
// ranked by latency). The format is accepted back by the catalog parser, so
// an exported file can seed a follow-up run.
func Export(w io.Writer, reachable []probe.Result) error {
	bw := bufio.NewWriter(w)
	for _, res := range reachable {
		if _, err := fmt.Fprintf(bw, "%s,%s,%d\n", res.Name, res.URL, res.Latency.Milliseconds()); err != nil {
			return fmt.Errorf("failed to write result line: %w", err)
		}
	}
	return bw.Flush()
}

// WriteFile exports the working set to path, replacing any existing file.
func WriteFile(path string, reachable []probe.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := Export(f, reachable); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// DefaultFilename names an export after the moment the run finished, so
// repeated runs never clobber each other.
func DefaultFilename(now time.Time) string {
	return "working_sites_" + now.Format("20060102_150405") + ".txt"
}
