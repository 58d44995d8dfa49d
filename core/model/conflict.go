package model

// Weather conditions understood by the decision engine.
const (
	WeatherClear = "Clear"
	WeatherRain  = "Rain"
	WeatherFog   = "Fog"
	WeatherStorm = "Storm"
)

// SectionConflict is a point-in-time view of trains competing for a section.
// It is never persisted. PlatformAvailability maps train IDs to whether a
// platform is ready for them; missing entries count as available.
type SectionConflict struct {
	SectionID            string          `json:"section_id" yaml:"section_id"`
	CompetingTrains      []string        `json:"competing_trains" yaml:"competing_trains"`
	SignalState          SignalState     `json:"signal_state" yaml:"signal_state"`
	WeatherCondition     string          `json:"weather_condition" yaml:"weather_condition"`
	PlatformAvailability map[string]bool `json:"platform_availability,omitempty" yaml:"platform_availability"`
	TrackCapacity        int             `json:"track_capacity" yaml:"track_capacity"`
}

// PlatformAvailable reports whether the train has a platform.
func (c SectionConflict) PlatformAvailable(trainID string) bool {
	if c.PlatformAvailability == nil {
		return true
	}
	ok, found := c.PlatformAvailability[trainID]
	return !found || ok
}
