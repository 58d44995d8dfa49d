package reopt

import (
	"fmt"
	"strings"

	"github.com/kilianp07/railopt/core/model"
	"github.com/kilianp07/railopt/core/optimizer"
)

// Config controls how disruptions are turned into delays and which
// strategy reschedules the affected scope.
type Config struct {
	// SeverityImpact is the delay in minutes added to each directly
	// affected train, per severity.
	SeverityImpact map[string]float64 `json:"severity_impact"`
	// KindFactor scales the severity impact per disruption kind.
	KindFactor map[string]float64 `json:"kind_factor"`
	Method     string             `json:"method"`
	// CompareAll also runs every strategy on the scope for audit.
	CompareAll bool `json:"compare_all"`
}

// DefaultConfig returns the standard impact tables.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if len(c.SeverityImpact) == 0 {
		c.SeverityImpact = map[string]float64{
			string(model.SeverityLow):      5,
			string(model.SeverityMedium):   15,
			string(model.SeverityHigh):     30,
			string(model.SeverityCritical): 60,
		}
	}
	if len(c.KindFactor) == 0 {
		c.KindFactor = map[string]float64{
			string(model.DisruptionMaintenance):   1,
			string(model.DisruptionSignalFailure): 1,
			string(model.DisruptionWeather):       0.5,
		}
	}
	if c.Method == "" {
		c.Method = string(optimizer.MethodHybrid)
	}
}

// Validate checks the tables and the method name.
func (c Config) Validate() error {
	for k, v := range c.SeverityImpact {
		if v < 0 {
			return fmt.Errorf("severity_impact[%s] must be >= 0", k)
		}
	}
	for k, v := range c.KindFactor {
		if v < 0 {
			return fmt.Errorf("kind_factor[%s] must be >= 0", k)
		}
	}
	if _, err := optimizer.ParseMethod(c.Method); err != nil {
		return fmt.Errorf("reopt method: %w", err)
	}
	return nil
}

// Impact returns the delay added to each train directly hit by d.
func (c Config) Impact(d model.Disruption) float64 {
	if d.ImpactMinutes > 0 {
		return d.ImpactMinutes
	}
	sev := c.SeverityImpact[strings.ToLower(string(d.Severity))]
	f, ok := c.KindFactor[strings.ToLower(string(d.Kind))]
	if !ok {
		f = 1
	}
	return sev * f
}
