package model

import (
	"strings"
	"time"
)

// DisruptionKind classifies the cause of a disruption.
type DisruptionKind string

const (
	DisruptionMaintenance   DisruptionKind = "maintenance"
	DisruptionWeather       DisruptionKind = "weather"
	DisruptionSignalFailure DisruptionKind = "signal_failure"
)

// Severity grades how strongly a disruption impacts traffic.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Disruption is an immutable record of an event affecting one section during
// [Start, End). A new Disruption supersedes an older one; records are never
// edited. ImpactMinutes, when positive, overrides the severity based estimate.
type Disruption struct {
	ID            string         `json:"id" yaml:"id" validate:"required"`
	SectionID     string         `json:"section_id" yaml:"section_id" validate:"required"`
	Kind          DisruptionKind `json:"kind" yaml:"kind" validate:"required,oneof=maintenance weather signal_failure"`
	Severity      Severity       `json:"severity" yaml:"severity" validate:"required,oneof=low medium high critical"`
	Start         time.Time      `json:"start" yaml:"start"`
	End           time.Time      `json:"end" yaml:"end"`
	ImpactMinutes float64        `json:"impact_minutes,omitempty" yaml:"impact_minutes" validate:"gte=0"`
}

// Blocks reports whether the disruption closes the section for its window.
// Maintenance closes the track; signal failures close it only when severe.
func (d Disruption) Blocks() bool {
	if d.Start.IsZero() || !d.End.After(d.Start) {
		return false
	}
	switch DisruptionKind(strings.ToLower(string(d.Kind))) {
	case DisruptionMaintenance:
		return true
	case DisruptionSignalFailure:
		s := Severity(strings.ToLower(string(d.Severity)))
		return s == SeverityHigh || s == SeverityCritical
	}
	return false
}

// Overlaps reports whether [start, end) intersects the disruption window. A
// disruption without window overlaps everything.
func (d Disruption) Overlaps(start, end time.Time) bool {
	if d.Start.IsZero() && d.End.IsZero() {
		return true
	}
	if d.End.IsZero() {
		return end.After(d.Start)
	}
	return start.Before(d.End) && end.After(d.Start)
}
