package metrics

import "errors"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOptimization forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordOptimization(rec OptimizationRecord) error {
	for _, s := range m.Sinks {
		if err := s.RecordOptimization(rec); err != nil {
			return err
		}
	}
	return nil
}

// RecordDecisions forwards decisions to the sinks able to record them.
func (m *MultiSink) RecordDecisions(recs []DecisionRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(DecisionRecorder); ok {
			if err := r.RecordDecisions(recs); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReoptimization forwards the record to the sinks able to record it.
func (m *MultiSink) RecordReoptimization(rec ReoptimizationRecord) error {
	for _, s := range m.Sinks {
		if r, ok := s.(ReoptimizationRecorder); ok {
			if err := r.RecordReoptimization(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the sinks holding resources and joins their errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(interface{ Close() error }); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
