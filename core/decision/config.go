package decision

import (
	"fmt"
	"strings"
)

// Config holds the weights of the conflict score.
type Config struct {
	// WeatherDelay maps a weather condition (case-insensitive) to the
	// expected extra minutes it adds to every competing train.
	WeatherDelay map[string]float64 `json:"weather_delay"`
	// SignalPenalty maps a signal aspect (case-insensitive) to a penalty.
	SignalPenalty       map[string]float64 `json:"signal_penalty"`
	PrecedenceWeight    float64            `json:"precedence_weight"`
	LengthDivisor       float64            `json:"length_divisor"`
	LoadDivisor         float64            `json:"load_divisor"`
	MinHoldMinutes      int                `json:"min_hold_minutes"`
	FallbackHoldMinutes int                `json:"fallback_hold_minutes"`
}

// DefaultConfig returns the standard weights.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if len(c.WeatherDelay) == 0 {
		c.WeatherDelay = map[string]float64{"clear": 0, "rain": 2, "fog": 5, "storm": 10}
	}
	if len(c.SignalPenalty) == 0 {
		c.SignalPenalty = map[string]float64{"green": 0, "yellow": 10, "red": 20}
	}
	if c.PrecedenceWeight == 0 {
		c.PrecedenceWeight = 10
	}
	if c.LengthDivisor == 0 {
		c.LengthDivisor = 100
	}
	if c.LoadDivisor == 0 {
		c.LoadDivisor = 1000
	}
	if c.MinHoldMinutes == 0 {
		c.MinHoldMinutes = 5
	}
	if c.FallbackHoldMinutes == 0 {
		c.FallbackHoldMinutes = 10
	}
}

// Validate checks the weights.
func (c Config) Validate() error {
	if c.PrecedenceWeight < 0 {
		return fmt.Errorf("precedence_weight must be >= 0")
	}
	if c.LengthDivisor <= 0 || c.LoadDivisor <= 0 {
		return fmt.Errorf("length_divisor and load_divisor must be > 0")
	}
	if c.MinHoldMinutes < 0 || c.FallbackHoldMinutes < 0 {
		return fmt.Errorf("hold minutes must be >= 0")
	}
	for k, v := range c.WeatherDelay {
		if v < 0 {
			return fmt.Errorf("weather_delay[%s] must be >= 0", k)
		}
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.WeatherDelay = lowerKeys(c.WeatherDelay)
	out.SignalPenalty = lowerKeys(c.SignalPenalty)
	return out
}

func lowerKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}
