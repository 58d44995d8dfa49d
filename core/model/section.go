package model

import (
	"strings"
	"time"
)

// SignalState is the aspect currently shown at the entry of a section.
type SignalState string

const (
	SignalGreen  SignalState = "Green"
	SignalYellow SignalState = "Yellow"
	SignalRed    SignalState = "Red"
)

// Normalize maps free-form input ("red", "RED") onto the canonical aspect.
func (s SignalState) Normalize() SignalState {
	switch strings.ToLower(string(s)) {
	case "red":
		return SignalRed
	case "yellow", "amber":
		return SignalYellow
	case "green", "":
		return SignalGreen
	default:
		return s
	}
}

// Section is a stretch of track between two stations. TrackCapacity is the
// maximum number of trains allowed to occupy it simultaneously.
type Section struct {
	ID            string      `json:"id" yaml:"id" validate:"required"`
	FromStation   string      `json:"from_station" yaml:"from_station"`
	ToStation     string      `json:"to_station" yaml:"to_station"`
	LengthKM      float64     `json:"length_km" yaml:"length_km" validate:"gte=0"`
	TrackCapacity int         `json:"track_capacity" yaml:"track_capacity" validate:"gte=1"`
	SignalState   SignalState `json:"signal_state,omitempty" yaml:"signal_state"`
	Junction      bool        `json:"junction,omitempty" yaml:"junction"`
}

// TrainSection binds one train to one section for the planned occupancy
// interval [Start, End).
type TrainSection struct {
	ID        string    `json:"id" yaml:"id" validate:"required"`
	TrainID   string    `json:"train_id" yaml:"train_id" validate:"required"`
	SectionID string    `json:"section_id" yaml:"section_id" validate:"required"`
	Start     time.Time `json:"start" yaml:"start" validate:"required"`
	End       time.Time `json:"end" yaml:"end" validate:"required,gtfield=Start"`
}

// Duration returns the planned occupancy time.
func (ts TrainSection) Duration() time.Duration { return ts.End.Sub(ts.Start) }

// Occupancy is a fixed use of a section over [Start, End) by a train that is
// not being rescheduled.
type Occupancy struct {
	TrainID   string    `json:"train_id,omitempty" yaml:"train_id"`
	SectionID string    `json:"section_id" yaml:"section_id" validate:"required"`
	Start     time.Time `json:"start" yaml:"start" validate:"required"`
	End       time.Time `json:"end" yaml:"end" validate:"required,gtfield=Start"`
}
