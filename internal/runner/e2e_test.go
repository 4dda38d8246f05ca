package runner

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
	"github.com/shihabalter/bdixprobe/internal/report"
)

// TestRun_MixedOutcomes drives a full run over three local endpoints: one
// healthy, one that never answers, one with nothing listening. The exported
// working set must contain exactly the healthy endpoint and seed an
// equivalent follow-up run.
func TestRun_MixedOutcomes(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	release := make(chan struct{})
	silent := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		silent.Close()
	}()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	deadAddr := ln.Addr().String()
	_ = ln.Close()

	endpoints := []catalog.Endpoint{
		{Name: "healthy", URL: healthy.URL},
		{Name: "silent", URL: silent.URL},
		{Name: "dead", URL: "http://" + deadAddr},
	}

	prober := probe.NewHTTPProber(100 * time.Millisecond)
	defer prober.Close()

	r, err := New(endpoints, prober, 2, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	agg := report.New(endpoints)

	r.Start(context.Background())
	for res := range r.Results() {
		agg.Record(res)
	}
	agg.Finalize()

	rep, err := agg.Final()
	if err != nil {
		t.Fatalf("Final() error = %v", err)
	}

	outcomes := make(map[string]probe.Outcome)
	for _, res := range rep.Results {
		outcomes[res.Name] = res.Outcome
	}
	if outcomes["healthy"] != probe.Reachable {
		t.Errorf("healthy = %v, want Reachable", outcomes["healthy"])
	}
	if outcomes["silent"] != probe.TimedOut {
		t.Errorf("silent = %v, want TimedOut", outcomes["silent"])
	}
	if outcomes["dead"] != probe.Unreachable {
		t.Errorf("dead = %v, want Unreachable", outcomes["dead"])
	}

	if len(rep.Reachable) != 1 || rep.Reachable[0].Name != "healthy" {
		t.Fatalf("Reachable = %+v, want only healthy", rep.Reachable)
	}

	// export: exactly one line, and it round-trips into a follow-up catalog
	path := filepath.Join(t.TempDir(), "working.txt")
	if err := report.WriteFile(path, rep.Reachable); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("exported %d lines, want 1: %q", len(lines), data)
	}
	if !strings.HasPrefix(lines[0], "healthy,"+healthy.URL+",") {
		t.Errorf("exported line = %q, want healthy,%s,<latency>", lines[0], healthy.URL)
	}

	rerun, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load() on export error = %v", err)
	}
	if len(rerun) != 1 {
		t.Fatalf("re-imported %d endpoints, want 1", len(rerun))
	}

	r2, err := New(rerun, prober, 2, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	r2.Start(context.Background())
	var second []probe.Result
	for res := range r2.Results() {
		second = append(second, res)
	}
	if len(second) != 1 || second[0].Outcome != probe.Reachable {
		t.Fatalf("follow-up run = %+v, want one Reachable result", second)
	}
}
