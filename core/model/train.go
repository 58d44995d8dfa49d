package model

import "time"

// Train is an immutable description of a train taking part in an
// optimization run. Priority is an optional static rank (1 is the most
// important); zero means the rank is derived from Type.
type Train struct {
	ID               string    `json:"id" yaml:"id" validate:"required"`
	Name             string    `json:"name,omitempty" yaml:"name"`
	Type             string    `json:"train_type" yaml:"train_type"`
	Priority         int       `json:"priority,omitempty" yaml:"priority" validate:"gte=0"`
	ScheduledTime    time.Time `json:"scheduled_time" yaml:"scheduled_time"`
	DelayMinutes     float64   `json:"delay_minutes" yaml:"delay_minutes" validate:"gte=0"`
	Length           float64   `json:"length" yaml:"length" validate:"gte=0"`
	PassengerLoad    float64   `json:"passenger_load" yaml:"passenger_load" validate:"gte=0"`
	EnergyEfficiency float64   `json:"energy_efficiency" yaml:"energy_efficiency" validate:"gte=0,lte=1"`
}

// WithDelay returns a copy of the train carrying the given delay. Negative
// values are clamped to zero.
func (t Train) WithDelay(minutes float64) Train {
	if minutes < 0 {
		minutes = 0
	}
	t.DelayMinutes = minutes
	return t
}
