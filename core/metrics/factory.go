package metrics

import (
	"fmt"

	"github.com/kilianp07/railopt/core/factory"
)

var sinkRegistry = factory.Modules[MetricsSink]("metrics sink")

// RegisterMetricsSink adds a metrics sink factory identified by name.
func RegisterMetricsSink(name string, f factory.Builder[MetricsSink, map[string]any]) error {
	return sinkRegistry.Register(name, f)
}

// NewMetricsSink creates a MetricsSink from the configured sinks. No sink
// yields a NopSink and several sinks are wrapped in a MultiSink.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	switch len(cfgs) {
	case 0:
		return NopSink{}, nil
	case 1:
		s, err := factory.Create(sinkRegistry, cfgs[0])
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		return s, nil
	}
	sinks := make([]MetricsSink, len(cfgs))
	for i, c := range cfgs {
		s, err := factory.Create(sinkRegistry, c)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
