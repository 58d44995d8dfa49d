package optimizer

import (
	"context"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/railopt/core/logger"
	"github.com/kilianp07/railopt/core/schedule"
)

// TrailStats summarizes the pheromone matrix at the end of a run.
type TrailStats struct {
	Mean          float64 `json:"mean"`
	StdDev        float64 `json:"std_dev"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Iterations    int     `json:"iterations"`
	BestIteration int     `json:"best_iteration"`
}

// AntColony builds dispatch sequences with pheromone-guided ants. The
// decision points are (train, section) pairs: trail tau[j][a][b] is the
// preference for train b entering section j right after train a, with a == n
// standing for an empty section. A candidate's attraction is the mean trail
// over the sections of its route.
type AntColony struct {
	cfg    ACOConfig
	seed   int64
	logger logger.Logger
}

// NewAntColony returns the ACO strategy.
func NewAntColony(cfg Config, l logger.Logger) *AntColony {
	return &AntColony{cfg: cfg.ACO, seed: cfg.Seed, logger: logger.OrNop(l)}
}

func (a *AntColony) Method() Method { return MethodACO }

type colony struct {
	cfg ACOConfig
	p   *schedule.Problem
	tau [][][]float64
	rng *rand.Rand
}

func newColony(cfg ACOConfig, p *schedule.Problem, rng *rand.Rand) *colony {
	n := p.N()
	tau := make([][][]float64, len(p.Sections))
	for j := range tau {
		tau[j] = make([][]float64, n+1)
		for a := range tau[j] {
			tau[j][a] = make([]float64, n)
			for b := range tau[j][a] {
				tau[j][a][b] = 1
			}
		}
	}
	return &colony{cfg: cfg, p: p, tau: tau, rng: rng}
}

func (c *colony) entryPoints() []int {
	last := make([]int, len(c.p.Sections))
	for j := range last {
		last[j] = c.p.N()
	}
	return last
}

// edges replays order and calls fn for every (section, previous train,
// train) decision it contains.
func (c *colony) edges(order []int, fn func(section, from, to int)) {
	last := c.entryPoints()
	for _, i := range order {
		for _, leg := range c.p.Trains[i].Legs {
			fn(leg.Section, last[leg.Section], i)
			last[leg.Section] = i
		}
	}
}

// trail is the mean pheromone on the decisions admitting train i next.
func (c *colony) trail(last []int, i int) float64 {
	legs := c.p.Trains[i].Legs
	if len(legs) == 0 {
		return 1
	}
	sum := 0.0
	for _, leg := range legs {
		sum += c.tau[leg.Section][last[leg.Section]][i]
	}
	return sum / float64(len(legs))
}

// walk builds one ant's dispatch sequence.
func (c *colony) walk() schedule.Solution {
	n := c.p.N()
	st := c.p.NewState()
	order := make([]int, 0, n)
	weights := make([]float64, n)
	last := c.entryPoints()
	for len(order) < n {
		total := 0.0
		for i := 0; i < n; i++ {
			weights[i] = 0
			if st.Placed(i) {
				continue
			}
			m := st.Mark()
			added := st.Place(i, nil)
			st.Rollback(m)
			eta := 1 / (1 + added)
			weights[i] = math.Pow(c.trail(last, i), c.cfg.Alpha) * math.Pow(eta, c.cfg.Beta)
			total += weights[i]
		}
		next := c.pick(weights, total, st)
		st.Place(next, nil)
		order = append(order, next)
		for _, leg := range c.p.Trains[next].Legs {
			last[leg.Section] = next
		}
	}
	return st.Solution(order)
}

func (c *colony) pick(weights []float64, total float64, st *schedule.State) int {
	if total > 0 {
		r := c.rng.Float64() * total
		for i, w := range weights {
			if w <= 0 {
				continue
			}
			r -= w
			if r <= 0 {
				return i
			}
		}
	}
	last := -1
	for i := range weights {
		if !st.Placed(i) {
			last = i
			if weights[i] > 0 {
				return i
			}
		}
	}
	return last
}

func (c *colony) evaporate() {
	keep := 1 - c.cfg.Evaporation
	for j := range c.tau {
		for a := range c.tau[j] {
			for b := range c.tau[j][a] {
				c.tau[j][a][b] = math.Max(c.tau[j][a][b]*keep, c.cfg.MinPheromone)
			}
		}
	}
}

func (c *colony) deposit(sol schedule.Solution, weight float64) {
	amount := weight * c.cfg.Deposit / (1 + sol.TotalDelay)
	c.edges(sol.Order, func(j, from, to int) { c.tau[j][from][to] += amount })
}

func (c *colony) stats() TrailStats {
	var flat []float64
	for _, rows := range c.tau {
		for _, row := range rows {
			flat = append(flat, row...)
		}
	}
	if len(flat) == 0 {
		return TrailStats{}
	}
	mean, std := stat.MeanStdDev(flat, nil)
	if math.IsNaN(std) {
		std = 0
	}
	return TrailStats{Mean: mean, StdDev: std, Min: floats.Min(flat), Max: floats.Max(flat)}
}

// Optimize runs the colony for the configured iterations or until the time
// budget expires, returning the best sequence found.
func (a *AntColony) Optimize(ctx context.Context, in Input) (Result, error) {
	started := time.Now()
	if in.Problem.N() == 0 {
		return emptyResult(MethodACO), nil
	}
	ctx, cancel := deadline(ctx, a.cfg.TimeBudgetMS)
	defer cancel()

	col := newColony(a.cfg, in.Problem, newRand(a.seed))
	var best *schedule.Solution
	bestIter := 0
	if in.Seed != nil {
		seed := in.Problem.Decode(in.Seed.Order, nil)
		if seed.TotalDelay > in.Seed.TotalDelay {
			seed = in.Seed.Clone()
		}
		best = &seed
		col.edges(seed.Order, func(j, from, to int) { col.tau[j][from][to] *= a.cfg.SeedBias })
	}

	var history []float64
	iters := 0
	for it := 0; it < a.cfg.Iterations && !expired(ctx); it++ {
		var iterBest *schedule.Solution
		for ant := 0; ant < a.cfg.Ants; ant++ {
			sol := col.walk()
			if iterBest == nil || sol.TotalDelay < iterBest.TotalDelay {
				iterBest = &sol
			}
			if expired(ctx) {
				break
			}
		}
		col.evaporate()
		col.deposit(*iterBest, 1)
		if best == nil || iterBest.TotalDelay < best.TotalDelay {
			b := iterBest.Clone()
			best = &b
			bestIter = it + 1
		}
		if a.cfg.EliteWeight > 0 {
			col.deposit(*best, a.cfg.EliteWeight)
		}
		history = append(history, best.TotalDelay)
		iters++
	}
	if best == nil {
		// budget expired before the first ant: fall back to the priority order
		sol := in.Problem.Decode(priorityOrder(in), nil)
		best = &sol
	}

	r := newResult(in, MethodACO, *best, started)
	r.FitnessHistory = history
	ts := col.stats()
	ts.Iterations = iters
	ts.BestIteration = bestIter
	r.Trail = &ts
	r.Status = "ok"
	if expired(ctx) {
		r.Note = "time budget reached, best so far returned"
	}
	a.logger.Debugf("aco finished %d iterations, best delay %.1f", iters, best.TotalDelay)
	return r, nil
}
