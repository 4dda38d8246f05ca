package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shihabalter/bdixprobe/internal/catalog"
	"github.com/shihabalter/bdixprobe/internal/probe"
)

func testEndpoints(n int) []catalog.Endpoint {
	endpoints := make([]catalog.Endpoint, n)
	for i := range endpoints {
		endpoints[i] = catalog.Endpoint{
			Name: fmt.Sprintf("ep%d", i),
			URL:  fmt.Sprintf("http://ep%d.example.com", i),
		}
	}
	return endpoints
}

func reachableResult(name string, latency time.Duration) probe.Result {
	return probe.Result{
		Name:      name,
		URL:       "http://" + name + ".example.com",
		Outcome:   probe.Reachable,
		Latency:   latency,
		CheckedAt: time.Now(),
	}
}

func TestAggregator_RecordAndSnapshot(t *testing.T) {
	agg := New(testEndpoints(3))

	p := agg.Snapshot()
	if p.Completed != 0 || p.Total != 3 || p.Latest != nil || p.Finished {
		t.Errorf("initial snapshot = %+v, want empty with total 3", p)
	}

	agg.Record(reachableResult("ep1", 40*time.Millisecond))
	agg.Record(probe.Result{Name: "ep0", Outcome: probe.TimedOut})

	p = agg.Snapshot()
	if p.Completed != 2 {
		t.Errorf("Completed = %d, want 2", p.Completed)
	}
	if p.Latest == nil || p.Latest.Name != "ep0" {
		t.Errorf("Latest = %+v, want ep0", p.Latest)
	}
}

func TestAggregator_ResultsKeepCompletionOrder(t *testing.T) {
	agg := New(testEndpoints(3))

	// completion order differs from catalog order on purpose
	agg.Record(reachableResult("ep2", 10*time.Millisecond))
	agg.Record(reachableResult("ep0", 20*time.Millisecond))
	agg.Record(reachableResult("ep1", 30*time.Millisecond))

	results := agg.Results()
	wantOrder := []string{"ep2", "ep0", "ep1"}
	for i, name := range wantOrder {
		if results[i].Name != name {
			t.Errorf("results[%d] = %s, want %s", i, results[i].Name, name)
		}
	}
}

func TestAggregator_FinalBeforeFinalizeFails(t *testing.T) {
	agg := New(testEndpoints(2))
	agg.Record(reachableResult("ep0", time.Millisecond))

	if _, err := agg.Final(); err == nil {
		t.Fatal("Final() before Finalize expected error, got nil")
	}
}

func TestAggregator_FinalRanksByLatency(t *testing.T) {
	agg := New(testEndpoints(5))

	agg.Record(reachableResult("ep3", 80*time.Millisecond))
	agg.Record(probe.Result{Name: "ep1", Outcome: probe.Unreachable})
	agg.Record(reachableResult("ep4", 15*time.Millisecond))
	agg.Record(probe.Result{Name: "ep2", Outcome: probe.TimedOut})
	agg.Record(reachableResult("ep0", 40*time.Millisecond))
	agg.Finalize()

	rep, err := agg.Final()
	if err != nil {
		t.Fatalf("Final() error = %v", err)
	}

	if len(rep.Results) != 5 {
		t.Errorf("Results = %d entries, want 5", len(rep.Results))
	}
	wantRank := []string{"ep4", "ep0", "ep3"}
	if len(rep.Reachable) != len(wantRank) {
		t.Fatalf("Reachable = %d entries, want %d", len(rep.Reachable), len(wantRank))
	}
	for i, name := range wantRank {
		if rep.Reachable[i].Name != name {
			t.Errorf("Reachable[%d] = %s, want %s", i, rep.Reachable[i].Name, name)
		}
	}
}

func TestAggregator_LatencyTieBreaksOnCatalogOrder(t *testing.T) {
	agg := New(testEndpoints(3))

	// identical latencies, recorded backwards
	agg.Record(reachableResult("ep2", 25*time.Millisecond))
	agg.Record(reachableResult("ep1", 25*time.Millisecond))
	agg.Record(reachableResult("ep0", 25*time.Millisecond))
	agg.Finalize()

	rep, err := agg.Final()
	if err != nil {
		t.Fatalf("Final() error = %v", err)
	}

	wantRank := []string{"ep0", "ep1", "ep2"}
	for i, name := range wantRank {
		if rep.Reachable[i].Name != name {
			t.Errorf("Reachable[%d] = %s, want %s (catalog order breaks ties)", i, rep.Reachable[i].Name, name)
		}
	}
}

func TestAggregator_SubscribeReceivesUpdates(t *testing.T) {
	agg := New(testEndpoints(2))
	sub := agg.Subscribe()

	agg.Record(reachableResult("ep0", time.Millisecond))
	agg.Record(reachableResult("ep1", time.Millisecond))

	for _, want := range []string{"ep0", "ep1"} {
		select {
		case res := <-sub:
			if res.Name != want {
				t.Errorf("subscriber got %s, want %s", res.Name, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber never received %s", want)
		}
	}
}

func TestAggregator_FinalizeClosesSubscribers(t *testing.T) {
	agg := New(testEndpoints(1))
	sub := agg.Subscribe()

	agg.Finalize()
	agg.Finalize() // idempotent

	select {
	case _, ok := <-sub:
		if ok {
			t.Error("expected closed subscriber channel after Finalize")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed after Finalize")
	}
}

func TestAggregator_SubscribeAfterFinalizeIsClosed(t *testing.T) {
	agg := New(testEndpoints(1))
	agg.Finalize()

	sub := agg.Subscribe()
	select {
	case _, ok := <-sub:
		if ok {
			t.Error("late Subscribe() delivered a value, want closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("late Subscribe() channel not closed")
	}
}

func TestAggregator_Unsubscribe(t *testing.T) {
	agg := New(testEndpoints(1))
	sub := agg.Subscribe()
	agg.Unsubscribe(sub)
	agg.Unsubscribe(sub) // second call is a no-op

	// recording after unsubscribe must not panic on the closed channel
	agg.Record(reachableResult("ep0", time.Millisecond))
}

func TestExport_LineFormat(t *testing.T) {
	reachable := []probe.Result{
		reachableResult("Movies", 12*time.Millisecond),
		reachableResult("FTP", 450*time.Millisecond),
	}

	var buf bytes.Buffer
	if err := Export(&buf, reachable); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	want := "Movies,http://Movies.example.com,12\nFTP,http://FTP.example.com,450\n"
	if buf.String() != want {
		t.Errorf("Export() = %q, want %q", buf.String(), want)
	}
}

func TestExport_RoundTripsThroughCatalog(t *testing.T) {
	reachable := []probe.Result{
		reachableResult("ep0", 30*time.Millisecond),
		reachableResult("ep1", 90*time.Millisecond),
	}

	var buf bytes.Buffer
	if err := Export(&buf, reachable); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	endpoints, err := catalog.Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() on exported data error = %v", err)
	}
	if len(endpoints) != len(reachable) {
		t.Fatalf("round trip lost endpoints: got %d, want %d", len(endpoints), len(reachable))
	}
	for i, res := range reachable {
		if endpoints[i].Name != res.Name || endpoints[i].URL != res.URL {
			t.Errorf("endpoints[%d] = %+v, want %s/%s", i, endpoints[i], res.Name, res.URL)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "working.txt")
	reachable := []probe.Result{reachableResult("ep0", 5 * time.Millisecond)}

	if err := WriteFile(path, reachable); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "ep0,http://ep0.example.com,5") {
		t.Errorf("exported file = %q, want ep0 line", data)
	}
}

func TestDefaultFilename(t *testing.T) {
	now := time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
	if got, want := DefaultFilename(now), "working_sites_20250314_150926.txt"; got != want {
		t.Errorf("DefaultFilename() = %q, want %q", got, want)
	}
}
