package priority

import (
	"fmt"
	"strings"
)

// HourWindow is an inclusive range of hours of the day. From may be greater
// than To for windows wrapping midnight (e.g. 23-5).
type HourWindow struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether hour falls inside the window.
func (w HourWindow) Contains(hour int) bool {
	if w.From <= w.To {
		return hour >= w.From && hour <= w.To
	}
	return hour >= w.From || hour <= w.To
}

// Config holds the ranking tables used to score trains. It is copied into
// the Engine so later changes by the caller have no effect.
type Config struct {
	// Ranks maps a train type (case-insensitive) to its base rank. Rank 1 is
	// the most important.
	Ranks            map[string]float64 `json:"ranks"`
	DefaultRank      float64            `json:"default_rank"`
	PeakMultiplier   float64            `json:"peak_multiplier"`
	NightMultiplier  float64            `json:"night_multiplier"`
	NormalMultiplier float64            `json:"normal_multiplier"`
	PeakHours        []HourWindow       `json:"peak_hours"`
	NightHours       HourWindow         `json:"night_hours"`
	// DelayFactor converts delay minutes into a penalty, capped at DelayCap.
	DelayFactor float64 `json:"delay_factor"`
	DelayCap    float64 `json:"delay_cap"`
}

// DefaultRanks returns the ranking table of the supported train categories.
func DefaultRanks() map[string]float64 {
	return map[string]float64{
		"premium":      1,
		"rajdhani":     1,
		"shatabdi":     1,
		"vande bharat": 1,
		"duronto":      2,
		"express":      3,
		"mail":         3,
		"superfast":    3,
		"passenger":    4,
		"local":        5,
		"memu":         5,
		"demu":         5,
		"freight":      6,
	}
}

// DefaultConfig returns the standard tables.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if len(c.Ranks) == 0 {
		c.Ranks = DefaultRanks()
	}
	if c.DefaultRank == 0 {
		c.DefaultRank = 4
	}
	if c.PeakMultiplier == 0 {
		c.PeakMultiplier = 0.8
	}
	if c.NightMultiplier == 0 {
		c.NightMultiplier = 1.2
	}
	if c.NormalMultiplier == 0 {
		c.NormalMultiplier = 1.0
	}
	if len(c.PeakHours) == 0 {
		c.PeakHours = []HourWindow{{From: 7, To: 10}, {From: 17, To: 20}}
	}
	if c.NightHours == (HourWindow{}) {
		c.NightHours = HourWindow{From: 23, To: 5}
	}
	if c.DelayFactor == 0 {
		c.DelayFactor = 0.01
	}
	if c.DelayCap == 0 {
		c.DelayCap = 0.5
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	for k, v := range c.Ranks {
		if v <= 0 {
			return fmt.Errorf("priority: rank for %q must be positive", k)
		}
	}
	if c.DefaultRank <= 0 {
		return fmt.Errorf("priority: default_rank must be positive")
	}
	if c.PeakMultiplier <= 0 || c.NightMultiplier <= 0 || c.NormalMultiplier <= 0 {
		return fmt.Errorf("priority: time multipliers must be positive")
	}
	if c.DelayFactor < 0 || c.DelayCap < 0 {
		return fmt.Errorf("priority: delay factor and cap must not be negative")
	}
	return nil
}

func (c Config) clone() Config {
	cp := c
	cp.Ranks = make(map[string]float64, len(c.Ranks))
	for k, v := range c.Ranks {
		cp.Ranks[strings.ToLower(k)] = v
	}
	cp.PeakHours = append([]HourWindow(nil), c.PeakHours...)
	return cp
}
