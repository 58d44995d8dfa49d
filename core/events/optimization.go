package events

import "time"

// OptimizationEvent is published for every result returned by the
// orchestrator.
type OptimizationEvent struct {
	RunID      string
	Method     string
	TotalDelay float64
	Success    bool
	Degraded   bool
	Duration   time.Duration
}

// DecisionEvent is published after a batch of section conflicts has been
// resolved.
type DecisionEvent struct {
	BatchID   string
	Conflicts int
	Proceed   int
	Hold      int
}

// ReoptimizationEvent is published once a disruption has been handled.
type ReoptimizationEvent struct {
	DisruptionID     string
	Method           string
	AffectedSections []string
	AffectedTrains   []string
	TotalDelay       float64
}
