package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// DefaultListURL is the published server list the tool refreshes from.
const DefaultListURL = "https://raw.githubusercontent.com/shihabalter/BDIX-TESTER/refs/heads/main/bdix.txt"

// maxListSize bounds how much of a remote list is read (1MB).
const maxListSize = 1 << 20

// listClient is the owned client for list downloads. The caller's ctx
// carries the real budget; the client timeout is a backstop so a download
// without one cannot hang forever.
var listClient = &http.Client{Timeout: time.Minute}

// Fetch downloads a catalog from listURL and parses it.
//
// The caller controls the time budget through ctx. A non-200 response is an
// error; an empty list is returned as an error rather than an empty catalog
// so callers do not silently probe nothing.
func Fetch(ctx context.Context, listURL string) ([]Endpoint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := listClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download list: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d downloading list", resp.StatusCode)
	}

	endpoints, err := Parse(io.LimitReader(resp.Body, maxListSize))
	if err != nil {
		return nil, err
	}
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("downloaded list from %s is empty", listURL)
	}
	return endpoints, nil
}

// FetchToFile downloads a catalog and writes it to path in the plain
// one-address-per-line format. Returns the number of endpoints written.
func FetchToFile(ctx context.Context, listURL, path string) (int, error) {
	endpoints, err := Fetch(ctx, listURL)
	if err != nil {
		return 0, err
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	for _, ep := range endpoints {
		if _, err := fmt.Fprintln(f, ep.URL); err != nil {
			_ = f.Close()
			return 0, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return len(endpoints), nil
}
