package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/railopt/core/events"
	"github.com/kilianp07/railopt/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records reoptimization
// events on sink. It stops when the context is canceled or the bus closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	rec, ok := sink.(ReoptimizationRecorder)
	if !ok {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if e, ok := ev.(events.ReoptimizationEvent); ok {
					_ = rec.RecordReoptimization(ReoptimizationRecord{
						DisruptionID:     e.DisruptionID,
						Method:           e.Method,
						AffectedSections: len(e.AffectedSections),
						AffectedTrains:   len(e.AffectedTrains),
						TotalDelay:       e.TotalDelay,
						Time:             time.Now(),
					})
				}
			}
		}
	}()
}
