package kpi

import (
	"path/filepath"
	"testing"
	"time"

	coremetrics "github.com/kilianp07/railopt/core/metrics"
)

func TestSQLiteStore_Accumulates(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kpi.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()

	morning := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	recs := []coremetrics.OptimizationRecord{
		{Method: "ga", Success: true, TotalDelay: 30, Duration: time.Second, Time: morning},
		{Method: "ga", Success: true, Degraded: true, TotalDelay: 10, Duration: time.Second, Time: morning.Add(6 * time.Hour)},
		{Method: "ga", Success: false, Duration: time.Second, Time: morning.Add(7 * time.Hour)},
		{Method: "ga", Success: true, TotalDelay: 99, Time: morning.Add(24 * time.Hour)},
		{Method: "aco", Success: true, TotalDelay: 5, Time: morning},
	}
	for _, r := range recs {
		if err := store.RecordOptimization(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	out, err := store.Query("ga", morning, morning)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 day, got %d", len(out))
	}
	r := out[0]
	if r.Runs != 3 || r.Successes != 2 || r.Degraded != 1 {
		t.Fatalf("unexpected counts %+v", r)
	}
	if r.AverageDelay() != 20 {
		t.Fatalf("average delay %v", r.AverageDelay())
	}
	if r.Duration != 3*time.Second || !r.Date.Equal(Day(morning)) {
		t.Fatalf("unexpected record %+v", r)
	}

	out, err = store.Query("ga", morning, morning.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 days, got %d", len(out))
	}
}
