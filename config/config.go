package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/railopt/core/decision"
	"github.com/kilianp07/railopt/core/decision/audit"
	"github.com/kilianp07/railopt/core/metrics"
	"github.com/kilianp07/railopt/core/optimizer"
	"github.com/kilianp07/railopt/core/priority"
	"github.com/kilianp07/railopt/core/reopt"
)

type Config struct {
	Priority  priority.Config  `json:"priority"`
	Optimizer optimizer.Config `json:"optimizer"`
	Decision  decision.Config  `json:"decision"`
	Reopt     reopt.Config     `json:"reopt"`
	Audit     audit.Config     `json:"audit"`
	Metrics   metrics.Config   `json:"metrics"`
	Logging   LoggingConfig    `json:"logging"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills unset fields of every section.
func (c *Config) SetDefaults() {
	c.Priority.SetDefaults()
	c.Optimizer.SetDefaults()
	c.Decision.SetDefaults()
	c.Reopt.SetDefaults()
	c.Audit.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and names the first one failing.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"priority", c.Priority.Validate},
		{"optimizer", c.Optimizer.Validate},
		{"decision", c.Decision.Validate},
		{"reopt", c.Reopt.Validate},
		{"audit", c.Audit.Validate},
		{"logging", c.Logging.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

// Load reads a YAML or JSON file, applies K_ prefixed environment overrides
// (K_OPTIMIZER__SEED=7 sets optimizer.seed) and returns the defaulted,
// validated configuration.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
