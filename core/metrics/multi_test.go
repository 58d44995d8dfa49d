package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/internal/eventbus"
)

type recordSink struct {
	count  int
	reopts chan ReoptimizationRecord
}

func (r *recordSink) RecordOptimization(OptimizationRecord) error {
	r.count++
	return nil
}

func (r *recordSink) RecordDecisions([]DecisionRecord) error {
	r.count++
	return nil
}

func (r *recordSink) RecordReoptimization(rec ReoptimizationRecord) error {
	if r.reopts != nil {
		r.reopts <- rec
	}
	r.count++
	return nil
}

// optOnly records optimizations but no decisions.
type optOnly struct{ count int }

func (o *optOnly) RecordOptimization(OptimizationRecord) error {
	o.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &optOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordOptimization(OptimizationRecord{Method: "heuristic"}); err != nil {
		t.Fatalf("record result: %v", err)
	}
	if err := m.RecordDecisions(nil); err != nil {
		t.Fatalf("record decisions: %v", err)
	}
	if s1.count != 2 || s2.count != 1 {
		t.Fatalf("records not forwarded: %d %d", s1.count, s2.count)
	}
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	defer bus.Close()
	sink := &recordSink{reopts: make(chan ReoptimizationRecord, 1)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartEventCollector(ctx, bus, sink)
	// the collector subscribes synchronously, so the event cannot be missed
	bus.Publish(events.ReoptimizationEvent{
		DisruptionID:     "d1",
		Method:           "comprehensive_hybrid",
		AffectedSections: []string{"S1", "S2"},
		AffectedTrains:   []string{"T1"},
	})
	select {
	case rec := <-sink.reopts:
		if rec.DisruptionID != "d1" || rec.AffectedSections != 2 || rec.AffectedTrains != 1 {
			t.Fatalf("unexpected record %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("reoptimization not recorded")
	}
}
