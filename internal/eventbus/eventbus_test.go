package eventbus

import (
	"testing"

	"github.com/kilianp07/railopt/core/events"
)

// Every subscriber sees the optimizer, decision and reoptimization events in
// publication order.
func TestBusFanOutKeepsOrder(t *testing.T) {
	bus := New()
	subs := []<-chan Event{bus.Subscribe(), bus.Subscribe()}
	published := []Event{
		events.OptimizationEvent{RunID: "r1", Method: "heuristic", Success: true},
		events.DecisionEvent{BatchID: "b1", Conflicts: 1, Proceed: 1, Hold: 2},
		events.ReoptimizationEvent{DisruptionID: "D1", Method: "comprehensive_hybrid"},
	}
	for _, e := range published {
		bus.Publish(e)
	}
	for i, ch := range subs {
		for j, want := range published {
			got := <-ch
			switch w := want.(type) {
			case events.OptimizationEvent:
				if g, ok := got.(events.OptimizationEvent); !ok || g.RunID != w.RunID {
					t.Fatalf("sub %d event %d: got %#v", i, j, got)
				}
			case events.DecisionEvent:
				if g, ok := got.(events.DecisionEvent); !ok || g.BatchID != w.BatchID || g.Hold != 2 {
					t.Fatalf("sub %d event %d: got %#v", i, j, got)
				}
			case events.ReoptimizationEvent:
				if g, ok := got.(events.ReoptimizationEvent); !ok || g.DisruptionID != w.DisruptionID {
					t.Fatalf("sub %d event %d: got %#v", i, j, got)
				}
			}
		}
	}
	if bus.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", bus.Dropped())
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	kept := bus.Subscribe()
	gone := bus.Subscribe()
	bus.Unsubscribe(gone)
	if _, ok := <-gone; ok {
		t.Fatalf("expected unsubscribed channel closed")
	}
	bus.Publish(events.StrategyEvent{Method: "aco", Action: events.ActionDone})
	if ev, ok := (<-kept).(events.StrategyEvent); !ok || ev.Method != "aco" {
		t.Fatalf("unexpected event %v", ev)
	}
}

func TestBusCloseIsFinal(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed")
	}
	bus.Publish(events.DecisionEvent{BatchID: "late"})
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
