package optimizer

import (
	"context"
	"time"

	"github.com/kilianp07/railopt/core/logger"
)

// Heuristic dispatches trains greedily by priority score, placing each at
// its earliest feasible slot. It is deterministic and never fails on valid
// input.
type Heuristic struct {
	logger logger.Logger
}

// NewHeuristic returns the greedy strategy.
func NewHeuristic(l logger.Logger) *Heuristic {
	return &Heuristic{logger: logger.OrNop(l)}
}

func (h *Heuristic) Method() Method { return MethodHeuristic }

func (h *Heuristic) Optimize(_ context.Context, in Input) (Result, error) {
	started := time.Now()
	if in.Problem.N() == 0 {
		return emptyResult(MethodHeuristic), nil
	}
	sol := in.Problem.Decode(priorityOrder(in), nil)
	r := newResult(in, MethodHeuristic, sol, started)
	r.Status = "ok"
	h.logger.Debugf("heuristic placed %d trains, total delay %.1f", in.Problem.N(), sol.TotalDelay)
	return r, nil
}
