package audit

import (
	"fmt"
	"strings"

	"github.com/kilianp07/railopt/core/factory"
)

// Config selects the audit backend.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	Path    string `json:"path" yaml:"path"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "decisions.db"
		case "jsonl":
			c.Path = "decisions.jsonl"
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "jsonl", "sqlite", "nop":
	default:
		return fmt.Errorf("audit backend must be jsonl, sqlite or nop")
	}
	if c.Backend != "nop" && c.Path == "" {
		return fmt.Errorf("audit path required")
	}
	return nil
}

var registry = factory.Modules[Store]("audit backend")

func init() {
	registry.MustRegister("nop", func(map[string]any) (Store, error) { return NopStore{}, nil })
	registry.MustRegister("jsonl", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path)
	})
	registry.MustRegister("sqlite", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
}

// RegisterStore adds a store factory identified by name.
func RegisterStore(name string, f factory.Builder[Store, map[string]any]) error {
	return registry.Register(name, f)
}

// Open creates the store selected by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend := strings.ToLower(cfg.Backend)
	return factory.Create(registry, factory.ModuleConfig{
		Type: backend,
		Conf: map[string]any{"backend": backend, "path": cfg.Path},
	})
}
