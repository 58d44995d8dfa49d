package factory

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// ErrUnknown is returned when no builder is registered under a name.
var ErrUnknown = errors.New("not registered")

// ModuleConfig selects a module by type and carries its raw settings, as
// read from the configuration file.
type ModuleConfig struct {
	Type string         `json:"type" yaml:"type"`
	Conf map[string]any `json:"conf" yaml:"conf"`
}

// Builder constructs a T from an argument of type A.
type Builder[T, A any] func(A) (T, error)

// Registry maps names to builders. Names are matched case-insensitively.
type Registry[T, A any] struct {
	kind     string
	mu       sync.RWMutex
	builders map[string]Builder[T, A]
}

// NewRegistry returns an empty registry. kind names the registered things
// in error messages, e.g. "strategy" or "metrics sink".
func NewRegistry[T, A any](kind string) *Registry[T, A] {
	return &Registry[T, A]{kind: kind, builders: make(map[string]Builder[T, A])}
}

// Modules returns a registry of config-driven modules.
func Modules[T any](kind string) *Registry[T, map[string]any] {
	return NewRegistry[T, map[string]any](kind)
}

func normalize(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds b under name. Empty names, nil builders and duplicates are
// rejected.
func (r *Registry[T, A]) Register(name string, b Builder[T, A]) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("%s: empty name", r.kind)
	}
	if b == nil {
		return fmt.Errorf("%s %q: nil builder", r.kind, key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.builders[key]; ok {
		return fmt.Errorf("%s %q already registered", r.kind, key)
	}
	r.builders[key] = b
	return nil
}

// MustRegister is Register for init functions. It panics on error.
func (r *Registry[T, A]) MustRegister(name string, b Builder[T, A]) {
	if err := r.Register(name, b); err != nil {
		panic(err)
	}
}

// Has reports whether name is registered.
func (r *Registry[T, A]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[normalize(name)]
	return ok
}

// Build runs the builder registered under name. Unknown names return an
// error wrapping ErrUnknown that lists the registered names.
func (r *Registry[T, A]) Build(name string, arg A) (T, error) {
	r.mu.RLock()
	b, ok := r.builders[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %q %w (known: %s)", r.kind, name, ErrUnknown, strings.Join(r.Names(), ", "))
	}
	return b(arg)
}

// Create builds the module selected by cfg from a Modules registry.
func Create[T any](r *Registry[T, map[string]any], cfg ModuleConfig) (T, error) {
	return r.Build(cfg.Type, cfg.Conf)
}

// Names lists the registered names in sorted order.
func (r *Registry[T, A]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.builders))
	for name := range r.builders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Decode fills out from raw settings using json tags. Strings such as "5s"
// are accepted for time.Duration fields and "3" for numbers.
func Decode(data map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(data)
}
