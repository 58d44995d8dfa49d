package optimizer

import (
	"github.com/kilianp07/railopt/core/factory"
	"github.com/kilianp07/railopt/core/logger"
)

// buildEnv is handed to every strategy builder.
type buildEnv struct {
	cfg Config
	log logger.Logger
}

var strategies = factory.NewRegistry[Strategy, buildEnv]("strategy")

func init() {
	strategies.MustRegister(string(MethodHeuristic), func(e buildEnv) (Strategy, error) { return NewHeuristic(e.log), nil })
	strategies.MustRegister(string(MethodGA), func(e buildEnv) (Strategy, error) { return NewGenetic(e.cfg, e.log), nil })
	strategies.MustRegister(string(MethodACO), func(e buildEnv) (Strategy, error) { return NewAntColony(e.cfg, e.log), nil })
	strategies.MustRegister(string(MethodMILP), func(e buildEnv) (Strategy, error) { return NewExact(e.cfg, e.log), nil })
	strategies.MustRegister(string(MethodRL), func(e buildEnv) (Strategy, error) { return NewQLearning(e.cfg, e.log), nil })
	strategies.MustRegister(string(MethodHybrid), func(e buildEnv) (Strategy, error) { return NewHybrid(e.cfg, e.log), nil })
}

// newRegistry builds one instance of every registered strategy from cfg,
// keyed by the method each one reports.
func newRegistry(cfg Config, l logger.Logger) map[Method]Strategy {
	env := buildEnv{cfg: cfg, log: l}
	out := make(map[Method]Strategy, len(AllMethods()))
	for _, name := range strategies.Names() {
		s, err := strategies.Build(name, env)
		if err != nil {
			l.Errorf("strategy %s: %v", name, err)
			continue
		}
		out[s.Method()] = s
	}
	return out
}
