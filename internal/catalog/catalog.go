// Package catalog loads the ordered list of BDIX endpoints under test.
//
// A catalog is a plain text file, one endpoint per line. Two line formats are
// accepted:
//
//   - a bare address: "http://ftpbd.net" or just "ftpbd.net"
//   - a CSV record:   "name,address" (a trailing ",latencyMs" column, as
//     written by the result exporter, is accepted and ignored)
//
// Because the exporter's output is itself a valid catalog, a saved set of
// working servers can be fed straight back in for a re-run.
//
// The catalog is read-only once loaded; nothing in the probing core mutates it.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

// Endpoint describes one entry of the catalog: a display name and the
// address to probe. Endpoints are immutable after load.
type Endpoint struct {
	// Name identifies the endpoint within a catalog. Unique after Parse.
	Name string

	// URL is the address to probe, always carrying a scheme.
	URL string
}

// Load reads a catalog file from disk.
func Load(path string) ([]Endpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	endpoints, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	return endpoints, nil
}

// Parse reads endpoint lines from r, preserving their order.
//
// Blank lines and lines starting with '#' are skipped. Names are made unique
// by suffixing duplicates with "#2", "#3", and so on, so every endpoint has a
// stable identifier even when the list repeats a host.
func Parse(r io.Reader) ([]Endpoint, error) {
	var endpoints []Endpoint
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ep := parseLine(line)
		seen[ep.Name]++
		if n := seen[ep.Name]; n > 1 {
			ep.Name = fmt.Sprintf("%s#%d", ep.Name, n)
		}
		endpoints = append(endpoints, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return endpoints, nil
}

// parseLine interprets a single non-empty catalog line.
func parseLine(line string) Endpoint {
	if strings.Contains(line, ",") {
		fields := strings.Split(line, ",")
		name := strings.TrimSpace(fields[0])
		addr := Normalize(strings.TrimSpace(fields[1]))
		if name == "" {
			name = nameFor(addr)
		}
		return Endpoint{Name: name, URL: addr}
	}

	addr := Normalize(line)
	return Endpoint{Name: nameFor(addr), URL: addr}
}

// Normalize prefixes bare addresses with http://, matching how the published
// bdix.txt list is written. Addresses that already carry a scheme are
// returned unchanged; no further validation happens here. A malformed
// address surfaces as an Error outcome at probe time, not as a load failure.
func Normalize(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return addr
	}
	return "http://" + addr
}

// nameFor derives a display name from an address, preferring the host part.
func nameFor(addr string) string {
	u, err := url.Parse(addr)
	if err != nil || u.Host == "" {
		return addr
	}
	return u.Host
}
