package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/railopt/core/logger"
)

// Hybrid chains heuristic, ant colony and genetic search. Each stage is
// seeded with the best schedule so far and is only accepted when it does not
// increase the total delay.
type Hybrid struct {
	stages []Strategy
	logger logger.Logger
}

// NewHybrid returns the comprehensive hybrid pipeline.
func NewHybrid(cfg Config, l logger.Logger) *Hybrid {
	l = logger.OrNop(l)
	return &Hybrid{
		stages: []Strategy{NewHeuristic(l), NewAntColony(cfg, l), NewGenetic(cfg, l)},
		logger: l,
	}
}

func (h *Hybrid) Method() Method { return MethodHybrid }

func (h *Hybrid) Optimize(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	if in.Problem.N() == 0 {
		return emptyResult(MethodHybrid), nil
	}
	var (
		best   *Result
		stages []StageSummary
		trail  *TrailStats
	)
	for _, st := range h.stages {
		stageIn := in
		if best != nil {
			stageIn.Seed = best.Solution
		}
		r, err := st.Optimize(ctx, stageIn)
		if err != nil {
			if best == nil {
				return Result{}, fmt.Errorf("hybrid stage %s: %w", st.Method(), err)
			}
			h.logger.Warnf("hybrid stage %s failed, keeping previous stage: %v", st.Method(), err)
			stages = append(stages, StageSummary{Method: st.Method(), Accepted: false})
			continue
		}
		accepted := best == nil || r.TotalDelay <= best.TotalDelay
		stages = append(stages, StageSummary{
			Method:          st.Method(),
			TotalDelay:      r.TotalDelay,
			ComputationTime: r.ComputationTime,
			Accepted:        accepted,
		})
		if r.Trail != nil {
			trail = r.Trail
		}
		if !accepted {
			h.logger.Warnf("hybrid stage %s worsened delay (%.1f > %.1f), keeping previous stage", st.Method(), r.TotalDelay, best.TotalDelay)
			continue
		}
		cp := r
		best = &cp
	}

	out := *best
	out.Method = MethodHybrid
	out.Stages = stages
	out.Trail = trail
	out.ComputationTime = time.Since(started)
	out.Status = "ok"
	out.Note = ""
	h.logger.Infof("hybrid pipeline finished with total delay %.1f", out.TotalDelay)
	return out, nil
}
