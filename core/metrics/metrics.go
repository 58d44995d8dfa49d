package metrics

import "time"

// OptimizationRecord is one strategy result to be recorded.
type OptimizationRecord struct {
	RunID             string
	Method            string
	TotalDelay        float64
	AverageDelay      float64
	Throughput        float64
	Conflicts         int
	ConflictsResolved int
	Success           bool
	Degraded          bool
	Duration          time.Duration
	Time              time.Time
}

// MetricsSink records optimization results for observability purposes.
type MetricsSink interface {
	RecordOptimization(rec OptimizationRecord) error
}

// DecisionRecord is the decision taken for one train in a section conflict.
type DecisionRecord struct {
	BatchID     string
	SectionID   string
	TrainID     string
	Decision    string
	Score       float64
	HoldMinutes int
	Time        time.Time
}

// DecisionRecorder records conflict decisions.
type DecisionRecorder interface {
	RecordDecisions(recs []DecisionRecord) error
}

// ReoptimizationRecord summarizes the handling of a disruption.
type ReoptimizationRecord struct {
	DisruptionID     string
	Method           string
	AffectedSections int
	AffectedTrains   int
	TotalDelay       float64
	Time             time.Time
}

// ReoptimizationRecorder records disruption handling.
type ReoptimizationRecorder interface {
	RecordReoptimization(rec ReoptimizationRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOptimization(OptimizationRecord) error     { return nil }
func (NopSink) RecordDecisions([]DecisionRecord) error           { return nil }
func (NopSink) RecordReoptimization(ReoptimizationRecord) error { return nil }
