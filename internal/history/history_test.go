package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shihabalter/bdixprobe/internal/probe"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleResults() []probe.Result {
	return []probe.Result{
		{
			Name:      "fast",
			URL:       "http://fast.example.com",
			Outcome:   probe.Reachable,
			Latency:   12 * time.Millisecond,
			CheckedAt: time.Now(),
		},
		{
			Name:      "slow",
			URL:       "http://slow.example.com",
			Outcome:   probe.Reachable,
			Latency:   340 * time.Millisecond,
			CheckedAt: time.Now(),
		},
		{
			Name:      "down",
			URL:       "http://down.example.com",
			Outcome:   probe.Unreachable,
			CheckedAt: time.Now(),
			Err:       errors.New("connection refused"),
		},
	}
}

func TestStore_SaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	rec := RunRecord{
		StartedAt:  started,
		FinishedAt: started.Add(30 * time.Second),
		Total:      3,
		Completed:  3,
		Reachable:  2,
	}

	id, err := s.SaveRun(ctx, rec, sampleResults())
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if id == "" {
		t.Fatal("SaveRun() returned empty ID")
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() = %d runs, want 1", len(runs))
	}

	got := runs[0]
	if got.ID != id {
		t.Errorf("ID = %s, want %s", got.ID, id)
	}
	if got.Total != 3 || got.Completed != 3 || got.Reachable != 2 {
		t.Errorf("counts = %d/%d/%d, want 3/3/2", got.Total, got.Completed, got.Reachable)
	}
	if got.Cancelled {
		t.Error("Cancelled = true, want false")
	}
	if got.StartedAt.Sub(started).Abs() > time.Second {
		t.Errorf("StartedAt = %v, want ~%v", got.StartedAt, started)
	}
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := RunRecord{
			StartedAt:  base.Add(time.Duration(i) * time.Hour),
			FinishedAt: base.Add(time.Duration(i)*time.Hour + time.Minute),
			Total:      1,
			Completed:  1,
		}
		id, err := s.SaveRun(ctx, rec, nil)
		if err != nil {
			t.Fatalf("SaveRun() error = %v", err)
		}
		ids = append(ids, id)
	}

	runs, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns(2) = %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("order = %s, %s; want newest first (%s, %s)", runs[0].ID, runs[1].ID, ids[2], ids[1])
	}
}

func TestStore_RunResults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := RunRecord{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Total:      3,
		Completed:  3,
		Reachable:  2,
	}
	id, err := s.SaveRun(ctx, rec, sampleResults())
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	rows, err := s.RunResults(ctx, id)
	if err != nil {
		t.Fatalf("RunResults() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("RunResults() = %d rows, want 3", len(rows))
	}

	if rows[0].Name != "fast" || rows[0].Outcome != string(probe.Reachable) || rows[0].LatencyMs != 12 {
		t.Errorf("rows[0] = %+v, want fast/reachable/12ms", rows[0])
	}
	if rows[2].Name != "down" || rows[2].Error != "connection refused" {
		t.Errorf("rows[2] = %+v, want down with stored error text", rows[2])
	}
}

func TestStore_CancelledFlagRoundTrips(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := RunRecord{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Total:      10,
		Completed:  4,
		Cancelled:  true,
	}
	if _, err := s.SaveRun(ctx, rec, nil); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if !runs[0].Cancelled {
		t.Error("Cancelled = false after round trip, want true")
	}
	if runs[0].Completed != 4 || runs[0].Total != 10 {
		t.Errorf("partial counts = %d/%d, want 4/10", runs[0].Completed, runs[0].Total)
	}
}

func TestStore_ExplicitRunIDPreserved(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := NewRunID()
	rec := RunRecord{ID: want, StartedAt: time.Now(), FinishedAt: time.Now()}
	got, err := s.SaveRun(ctx, rec, nil)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if got != want {
		t.Errorf("SaveRun() ID = %s, want %s", got, want)
	}
}

func TestStore_RunResultsUnknownRun(t *testing.T) {
	s := openTestStore(t)

	rows, err := s.RunResults(context.Background(), "no-such-run")
	if err != nil {
		t.Fatalf("RunResults() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("RunResults() = %d rows for unknown run, want 0", len(rows))
	}
}
