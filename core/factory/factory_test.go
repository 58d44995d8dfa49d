package factory

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type sinkConf struct {
	Bucket  string        `json:"bucket"`
	Retries int           `json:"retries"`
	Timeout time.Duration `json:"timeout"`
}

func TestModules_CreateDecodesSettings(t *testing.T) {
	reg := Modules[sinkConf]("metrics sink")
	reg.MustRegister("Influx", func(conf map[string]any) (sinkConf, error) {
		var c sinkConf
		err := Decode(conf, &c)
		return c, err
	})
	got, err := Create(reg, ModuleConfig{Type: " INFLUX ", Conf: map[string]any{
		"bucket": "railopt", "retries": "3", "timeout": "2s",
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got != (sinkConf{Bucket: "railopt", Retries: 3, Timeout: 2 * time.Second}) {
		t.Fatalf("unexpected settings %+v", got)
	}
	if !reg.Has("influx") {
		t.Fatalf("influx not registered")
	}
}

type plan struct{ horizon int }

func TestRegistry_BuildPassesArgument(t *testing.T) {
	reg := NewRegistry[string, plan]("strategy")
	reg.MustRegister("heuristic", func(p plan) (string, error) {
		return strings.Repeat("h", p.horizon), nil
	})
	got, err := reg.Build("Heuristic", plan{horizon: 3})
	if err != nil || got != "hhh" {
		t.Fatalf("build: %q, %v", got, err)
	}
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int, struct{}]("strategy")
	if err := reg.Register("ga", func(struct{}) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("aco", func(struct{}) (int, error) { return 2, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("GA", func(struct{}) (int, error) { return 3, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("rl", nil); err == nil {
		t.Fatal("expected nil builder error")
	}
	if err := reg.Register("  ", func(struct{}) (int, error) { return 4, nil }); err == nil {
		t.Fatal("expected empty name error")
	}

	_, err := reg.Build("milp", struct{}{})
	if !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected ErrUnknown, got %v", err)
	}
	if !strings.Contains(err.Error(), "aco, ga") {
		t.Fatalf("error does not list known names: %v", err)
	}
	if got := reg.Names(); len(got) != 2 || got[0] != "aco" || got[1] != "ga" {
		t.Fatalf("unexpected names %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("MustRegister did not panic on duplicate")
		}
	}()
	reg.MustRegister("aco", func(struct{}) (int, error) { return 5, nil })
}
