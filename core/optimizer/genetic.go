package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/MaxHalford/eaopt"

	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/schedule"
)

// Genetic evolves per-train entry offsets relative to a baseline schedule.
// The baseline is the seed when given, the heuristic schedule otherwise, and
// is always part of the initial population so the result never does worse.
type Genetic struct {
	cfg    GAConfig
	weight float64
	seed   int64
	logger logger.Logger
}

// NewGenetic returns the GA strategy.
func NewGenetic(cfg Config, l logger.Logger) *Genetic {
	return &Genetic{cfg: cfg.GA, weight: cfg.ConflictWeight, seed: cfg.Seed, logger: logger.OrNop(l)}
}

func (g *Genetic) Method() Method { return MethodGA }

// gaRun holds what every genome of one run shares.
type gaRun struct {
	in       Input
	baseline schedule.Solution
	rank     []int
	weight   float64
	sigma    float64
	limit    float64
}

func (r *gaRun) decode(off []float64) schedule.Solution {
	p := r.in.Problem
	n := p.N()
	desired := make([][]float64, n)
	keys := make([]float64, n)
	for i := 0; i < n; i++ {
		starts := r.baseline.Starts[i]
		desired[i] = make([]float64, len(starts))
		for k, s := range starts {
			desired[i][k] = s + off[i]
		}
		if len(starts) > 0 {
			keys[i] = starts[0] + off[i]
		}
	}
	order := p.Identity()
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := order[a], order[b]
		if keys[ia] != keys[ib] {
			return keys[ia] < keys[ib]
		}
		return r.rank[ia] < r.rank[ib]
	})
	return p.Decode(order, desired)
}

func (r *gaRun) fitness(sol schedule.Solution) float64 {
	return Objective(sol.TotalDelay, r.in.Problem.Conflicts(sol), r.weight)
}

// offsets is the eaopt genome.
type offsets struct {
	run *gaRun
	off []float64
}

func (o *offsets) Evaluate() (float64, error) {
	return o.run.fitness(o.run.decode(o.off)), nil
}

func (o *offsets) Mutate(rng *rand.Rand) {
	if len(o.off) == 0 {
		return
	}
	genes := 1 + rng.Intn(int(math.Ceil(float64(len(o.off))/4)))
	for ; genes > 0; genes-- {
		i := rng.Intn(len(o.off))
		o.off[i] = clamp(o.off[i]+rng.NormFloat64()*o.run.sigma, o.run.limit)
	}
}

func (o *offsets) Crossover(other eaopt.Genome, rng *rand.Rand) {
	eaopt.CrossUniformFloat64(o.off, other.(*offsets).off, rng)
}

func (o *offsets) Clone() eaopt.Genome {
	return &offsets{run: o.run, off: append([]float64(nil), o.off...)}
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// Optimize runs the GA until the generation budget, the patience window or
// the time budget is exhausted.
func (g *Genetic) Optimize(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	n := in.Problem.N()
	if n == 0 {
		return emptyResult(MethodGA), nil
	}
	ctx, cancel := deadline(ctx, g.cfg.TimeBudgetMS)
	defer cancel()

	var baseline schedule.Solution
	if in.Seed != nil {
		baseline = in.Seed.Clone()
	} else {
		baseline = in.Problem.Decode(priorityOrder(in), nil)
	}
	run := &gaRun{
		in:       in,
		baseline: baseline,
		rank:     make([]int, n),
		weight:   g.weight,
		sigma:    g.cfg.MutationSigma,
		limit:    g.cfg.MaxOffset,
	}
	for pos, i := range baseline.Order {
		run.rank[i] = pos
	}

	pop := g.cfg.Population
	if pop%2 == 1 {
		pop++
	}
	conf := eaopt.GAConfig{
		NPops:        1,
		PopSize:      uint(pop),
		NGenerations: uint(g.cfg.Generations),
		HofSize:      1,
		RNG:          newRand(g.seed),
		Model: eaopt.ModGenerational{
			Selector:  eaopt.SelTournament{NContestants: uint(g.cfg.TournamentSize)},
			MutRate:   g.cfg.MutationRate,
			CrossRate: g.cfg.CrossoverRate,
		},
	}
	ga, err := conf.NewGA()
	if err != nil {
		return Result{}, fmt.Errorf("ga config: %w", err)
	}

	var history []float64
	stale := 0
	ga.Callback = func(ga *eaopt.GA) {
		best := ga.HallOfFame[0].Fitness
		if len(history) > 0 && best < history[len(history)-1] {
			stale = 0
		} else if len(history) > 0 {
			stale++
		}
		history = append(history, best)
	}
	ga.EarlyStop = func(*eaopt.GA) bool {
		return expired(ctx) || (g.cfg.Patience > 0 && stale >= g.cfg.Patience)
	}

	created := 0
	err = ga.Minimize(func(rng *rand.Rand) eaopt.Genome {
		off := make([]float64, n)
		created++
		if created > 1 {
			for i := range off {
				if rng.Float64() < 0.5 {
					off[i] = clamp(rng.NormFloat64()*2*run.sigma, run.limit)
				}
			}
		}
		return &offsets{run: run, off: off}
	})
	if err != nil {
		return Result{}, fmt.Errorf("ga: %w", err)
	}

	best := ga.HallOfFame[0].Genome.(*offsets)
	sol := run.decode(best.off)
	if run.fitness(sol) > run.fitness(baseline) {
		sol = baseline
	}
	if len(history) == 0 {
		history = append(history, run.fitness(sol))
	}
	r := newResult(in, MethodGA, sol, started)
	r.FitnessHistory = history
	r.Status = "ok"
	if expired(ctx) {
		r.Note = "time budget reached, best so far returned"
	}
	g.logger.Debugf("ga finished after %d generations, best fitness %.2f", ga.Generations, history[len(history)-1])
	return r, nil
}
