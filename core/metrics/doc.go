// Package metrics defines interfaces and implementations for collecting
// optimizer metrics. Sinks like PromSink and InfluxSink record optimization
// results, conflict decisions and reoptimizations and can be combined with
// NewMultiSink. The factory helpers return a MultiSink automatically when
// multiple sinks are configured. StartEventCollector feeds sinks from the
// internal event bus.
package metrics
